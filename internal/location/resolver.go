// Package location resolves the free-form location of a new intervention
// location into an admin region and a geo region.
package location

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/impact-cli/internal/model"
	"github.com/sells-group/impact-cli/pkg/geocode"
)

// Resolved is the outcome of resolving a location descriptor.
type Resolved struct {
	AdminRegionID string `json:"admin_region_id" yaml:"admin_region_id"`
	GeoRegionID   string `json:"geo_region_id" yaml:"geo_region_id"`
	Warning       string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// Resolver resolves location descriptors.
type Resolver interface {
	Resolve(ctx context.Context, d model.LocationDescriptor) (Resolved, error)
}

// Region is an admin region together with its geo region.
type Region struct {
	AdminRegionID string
	GeoRegionID   string
}

// Regions is the spatial reference data resolution runs against.
type Regions interface {
	// CountryByName returns the level 0 admin region named name, or
	// ErrCountryNotFound.
	CountryByName(ctx context.Context, name string) (Region, error)
	// AdminRegionAt returns the admin region of the given level containing
	// the point, or ErrAdminRegionNotFound.
	AdminRegionAt(ctx context.Context, lat, lng float64, level int) (Region, error)
	// ClosestAdminRegion returns the admin region nearest to the point.
	ClosestAdminRegion(ctx context.Context, lat, lng float64) (string, error)
	// SaveRadius stores a geo region covering radiusKM around the point.
	SaveRadius(ctx context.Context, name string, lat, lng, radiusKM float64) (string, error)
	// SavePoint stores a geo region covering the cell of the point.
	SavePoint(ctx context.Context, name string, lat, lng float64) (string, error)
}

// DefaultRadiusKM is the radius of aggregation point geo regions.
const DefaultRadiusKM = 50

// Service implements Resolver on Regions and a geocoder.
type Service struct {
	regions  Regions
	geocoder geocode.Client
	radiusKM float64
	log      *zap.Logger
}

// NewService creates a Service. A non-positive radius uses DefaultRadiusKM.
func NewService(regions Regions, geocoder geocode.Client, radiusKM float64) *Service {
	if radiusKM <= 0 {
		radiusKM = DefaultRadiusKM
	}
	return &Service{
		regions:  regions,
		geocoder: geocoder,
		radiusKM: radiusKM,
		log:      zap.L().With(zap.String("component", "location")),
	}
}

// Resolve validates d and resolves it according to its location type.
func (s *Service) Resolve(ctx context.Context, d model.LocationDescriptor) (Resolved, error) {
	if err := Validate(d); err != nil {
		return Resolved{}, err
	}

	switch d.Type {
	case model.LocationAggregationPoint:
		return s.resolvePoint(ctx, d, true)
	case model.LocationPointOfProduction, model.LocationEUDR:
		return s.resolvePoint(ctx, d, false)
	case model.LocationAdminRegionOfProduction:
		return s.resolveAdminRegion(ctx, d)
	default:
		return s.resolveCountry(ctx, d)
	}
}

func (s *Service) resolveCountry(ctx context.Context, d model.LocationDescriptor) (Resolved, error) {
	r, err := s.regions.CountryByName(ctx, d.Country)
	if errors.Is(err, ErrCountryNotFound) {
		return Resolved{}, &GeocodingValidationError{
			LocationType: d.Type,
			Reason:       fmt.Sprintf("country %q not found", d.Country),
			Err:          err,
		}
	}
	if err != nil {
		return Resolved{}, eris.Wrapf(err, "location: country %q", d.Country)
	}
	return Resolved{AdminRegionID: r.AdminRegionID, GeoRegionID: r.GeoRegionID}, nil
}

// resolvePoint handles the point-like types. Coordinates are used as given;
// an address is geocoded first. An address Google places at an admin level 1
// or 2 area resolves to that admin region instead of a point.
func (s *Service) resolvePoint(ctx context.Context, d model.LocationDescriptor, radius bool) (Resolved, error) {
	var (
		lat, lng float64
		warning  string
	)
	if d.Latitude != nil {
		lat, lng = *d.Latitude, *d.Longitude
	} else {
		res, err := s.geocode(ctx, d, d.Address)
		if err != nil {
			return Resolved{}, err
		}
		warning = countryWarning(res, d.Country)
		if level := res.AdminLevel(); level > 0 {
			r, err := s.adminRegionAt(ctx, d, res.Latitude, res.Longitude, level)
			if err != nil {
				return Resolved{}, err
			}
			return Resolved{AdminRegionID: r.AdminRegionID, GeoRegionID: r.GeoRegionID, Warning: warning}, nil
		}
		lat, lng = res.Latitude, res.Longitude
	}

	var (
		geoRegionID string
		err         error
	)
	if radius {
		geoRegionID, err = s.regions.SaveRadius(ctx, d.Country, lat, lng, s.radiusKM)
	} else {
		geoRegionID, err = s.regions.SavePoint(ctx, d.Country, lat, lng)
	}
	if err != nil {
		return Resolved{}, eris.Wrap(err, "location: save geo region")
	}

	adminRegionID, err := s.regions.ClosestAdminRegion(ctx, lat, lng)
	if err != nil {
		return Resolved{}, eris.Wrap(err, "location: closest admin region")
	}

	s.log.Debug("resolved point location",
		zap.String("location_type", string(d.Type)),
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.String("geo_region_id", geoRegionID),
		zap.String("admin_region_id", adminRegionID),
	)
	return Resolved{AdminRegionID: adminRegionID, GeoRegionID: geoRegionID, Warning: warning}, nil
}

// resolveAdminRegion geocodes the admin region input. Results that are not
// an admin area themselves resolve to the enclosing level 1 region.
func (s *Service) resolveAdminRegion(ctx context.Context, d model.LocationDescriptor) (Resolved, error) {
	res, err := s.geocode(ctx, d, d.AdminRegionInput)
	if err != nil {
		return Resolved{}, err
	}
	warning := countryWarning(res, d.Country)

	level := res.AdminLevel()
	if level == 0 {
		level = 1
		warning = joinWarnings(warning, fmt.Sprintf("%q is not an admin region, using the enclosing level 1 region", d.AdminRegionInput))
	}
	r, err := s.adminRegionAt(ctx, d, res.Latitude, res.Longitude, level)
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{AdminRegionID: r.AdminRegionID, GeoRegionID: r.GeoRegionID, Warning: warning}, nil
}

func (s *Service) geocode(ctx context.Context, d model.LocationDescriptor, address string) (*geocode.Result, error) {
	if s.geocoder == nil {
		return nil, &GeocodingValidationError{LocationType: d.Type, Reason: "address geocoding is not configured"}
	}
	res, err := s.geocoder.Geocode(ctx, geocode.AddressInput{Address: address, Country: d.Country})
	if err != nil {
		return nil, eris.Wrapf(err, "location: geocode %q", address)
	}
	if !res.Matched {
		return nil, invalid(d.Type, "%q in %s could not be geocoded", address, d.Country)
	}
	if res.IsCountry() {
		return nil, invalid(d.Type, "%q in %s is a country, should be an address within a country", address, d.Country)
	}
	return res, nil
}

func (s *Service) adminRegionAt(ctx context.Context, d model.LocationDescriptor, lat, lng float64, level int) (Region, error) {
	r, err := s.regions.AdminRegionAt(ctx, lat, lng, level)
	if errors.Is(err, ErrAdminRegionNotFound) {
		return Region{}, &GeocodingValidationError{
			LocationType: d.Type,
			Reason:       fmt.Sprintf("no level %d admin region at %.5f,%.5f", level, lat, lng),
			Err:          err,
		}
	}
	if err != nil {
		return Region{}, eris.Wrap(err, "location: admin region at point")
	}
	return r, nil
}

// countryWarning flags geocoding results whose formatted address does not
// mention the requested country.
func countryWarning(res *geocode.Result, country string) string {
	if res.FormattedAddress == "" {
		return ""
	}
	if strings.Contains(Normalize(res.FormattedAddress), Normalize(country)) {
		return ""
	}
	return fmt.Sprintf("geocoded address %q may not be in %s", res.FormattedAddress, country)
}

func joinWarnings(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
