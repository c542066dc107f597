package location

import (
	"strings"

	"github.com/sells-group/impact-cli/internal/model"
)

// Validate checks that d carries what its location type needs. Every type
// needs a country. Point-like types take an address or coordinates, never
// both. Country-level types take neither.
func Validate(d model.LocationDescriptor) error {
	t := d.Type
	if !t.Valid() {
		return invalid(t, "unknown location type")
	}
	if strings.TrimSpace(d.Country) == "" {
		return invalid(t, "country missing")
	}

	hasAddress := strings.TrimSpace(d.Address) != ""
	hasCoords := d.Latitude != nil || d.Longitude != nil
	if hasCoords {
		if d.Latitude == nil || d.Longitude == nil {
			return invalid(t, "latitude and longitude must be given together")
		}
		if *d.Latitude < -90 || *d.Latitude > 90 {
			return invalid(t, "latitude out of range")
		}
		if *d.Longitude < -180 || *d.Longitude > 180 {
			return invalid(t, "longitude out of range")
		}
	}

	switch t {
	case model.LocationAggregationPoint, model.LocationPointOfProduction, model.LocationEUDR:
		if hasAddress && hasCoords {
			return invalid(t, "address and coordinates both provided")
		}
		if !hasAddress && !hasCoords {
			return invalid(t, "address or coordinates required")
		}
	case model.LocationAdminRegionOfProduction:
		if strings.TrimSpace(d.AdminRegionInput) == "" {
			return invalid(t, "admin region input required")
		}
		if hasAddress || hasCoords {
			return invalid(t, "address and coordinates are not accepted, use the admin region input")
		}
	default:
		if hasAddress || hasCoords {
			return invalid(t, "address and coordinates are not accepted for country-level locations")
		}
	}
	return nil
}
