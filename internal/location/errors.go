package location

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/impact-cli/internal/model"
)

// GeocodingValidationError means a location descriptor cannot be resolved as
// given. Reason is meant for the user.
type GeocodingValidationError struct {
	LocationType model.LocationType
	Reason       string
	Err          error
}

func (e *GeocodingValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("location: %s: %s: %v", e.LocationType, e.Reason, e.Err)
	}
	return fmt.Sprintf("location: %s: %s", e.LocationType, e.Reason)
}

func (e *GeocodingValidationError) Unwrap() error {
	return e.Err
}

// Lookup failures reported by Regions.
var (
	ErrCountryNotFound     = eris.New("location: country not found")
	ErrAdminRegionNotFound = eris.New("location: no admin region at point")
)

func invalid(t model.LocationType, format string, args ...any) error {
	return &GeocodingValidationError{LocationType: t, Reason: fmt.Sprintf(format, args...)}
}
