package location

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/impact-cli/internal/model"
	"github.com/sells-group/impact-cli/pkg/geocode"
)

type fakeRegions struct {
	countries map[string]Region
	atLevel   map[int]Region
	closest   string

	radii   []float64
	points  int
	lastLat float64
	lastLng float64
}

func (f *fakeRegions) CountryByName(_ context.Context, name string) (Region, error) {
	for n, r := range f.countries {
		if SameName(n, name) {
			return r, nil
		}
	}
	return Region{}, ErrCountryNotFound
}

func (f *fakeRegions) AdminRegionAt(_ context.Context, lat, lng float64, level int) (Region, error) {
	f.lastLat, f.lastLng = lat, lng
	r, ok := f.atLevel[level]
	if !ok {
		return Region{}, ErrAdminRegionNotFound
	}
	return r, nil
}

func (f *fakeRegions) ClosestAdminRegion(_ context.Context, lat, lng float64) (string, error) {
	f.lastLat, f.lastLng = lat, lng
	return f.closest, nil
}

func (f *fakeRegions) SaveRadius(_ context.Context, _ string, _, _, radiusKM float64) (string, error) {
	f.radii = append(f.radii, radiusKM)
	return "radius-geo", nil
}

func (f *fakeRegions) SavePoint(context.Context, string, float64, float64) (string, error) {
	f.points++
	return "point-geo", nil
}

type geocodeFunc func(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error)

func (f geocodeFunc) Geocode(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
	return f(ctx, addr)
}

func staticGeocoder(r *geocode.Result) geocodeFunc {
	return func(context.Context, geocode.AddressInput) (*geocode.Result, error) { return r, nil }
}

func newRegions() *fakeRegions {
	return &fakeRegions{
		countries: map[string]Region{"España": {AdminRegionID: "adm-es", GeoRegionID: "geo-es"}},
		atLevel:   map[int]Region{1: {AdminRegionID: "adm-cat", GeoRegionID: "geo-cat"}},
		closest:   "adm-lleida",
	}
}

func TestResolve_Country(t *testing.T) {
	regions := newRegions()
	svc := NewService(regions, nil, 0)

	got, err := svc.Resolve(context.Background(), model.LocationDescriptor{Type: model.LocationCountryOfProduction, Country: "espana"})
	require.NoError(t, err)
	assert.Equal(t, Resolved{AdminRegionID: "adm-es", GeoRegionID: "geo-es"}, got)
}

func TestResolve_CountryNotFound(t *testing.T) {
	svc := NewService(newRegions(), nil, 0)

	_, err := svc.Resolve(context.Background(), model.LocationDescriptor{Type: model.LocationUnknown, Country: "Atlantis"})
	var verr *GeocodingValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Reason, "Atlantis")
	assert.ErrorIs(t, err, ErrCountryNotFound)
}

func TestResolve_AggregationPointCoordinates(t *testing.T) {
	regions := newRegions()
	svc := NewService(regions, nil, 0)

	got, err := svc.Resolve(context.Background(), model.LocationDescriptor{
		Type: model.LocationAggregationPoint, Country: "Spain", Latitude: f64(41.6), Longitude: f64(0.62),
	})
	require.NoError(t, err)
	assert.Equal(t, Resolved{AdminRegionID: "adm-lleida", GeoRegionID: "radius-geo"}, got)
	assert.Equal(t, []float64{DefaultRadiusKM}, regions.radii)
	assert.InDelta(t, 41.6, regions.lastLat, 1e-9)
	assert.InDelta(t, 0.62, regions.lastLng, 1e-9)
}

func TestResolve_PointOfProductionAddress(t *testing.T) {
	regions := newRegions()
	var gotAddr geocode.AddressInput
	geo := geocodeFunc(func(_ context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
		gotAddr = addr
		return &geocode.Result{Matched: true, Latitude: 41.61, Longitude: 0.62, FormattedAddress: "Lleida, Spain", Types: []string{"locality"}}, nil
	})
	svc := NewService(regions, geo, 10)

	got, err := svc.Resolve(context.Background(), model.LocationDescriptor{
		Type: model.LocationPointOfProduction, Country: "Spain", Address: "Lleida",
	})
	require.NoError(t, err)
	assert.Equal(t, geocode.AddressInput{Address: "Lleida", Country: "Spain"}, gotAddr)
	assert.Equal(t, Resolved{AdminRegionID: "adm-lleida", GeoRegionID: "point-geo"}, got)
	assert.Equal(t, 1, regions.points)
	assert.Empty(t, regions.radii)
}

func TestResolve_AddressAtAdminLevel(t *testing.T) {
	regions := newRegions()
	svc := NewService(regions, staticGeocoder(&geocode.Result{
		Matched: true, Latitude: 41.8, Longitude: 1.5, FormattedAddress: "Catalonia, Spain",
		Types: []string{"administrative_area_level_1", "political"},
	}), 0)

	got, err := svc.Resolve(context.Background(), model.LocationDescriptor{
		Type: model.LocationAggregationPoint, Country: "Spain", Address: "Catalonia",
	})
	require.NoError(t, err)
	assert.Equal(t, Resolved{AdminRegionID: "adm-cat", GeoRegionID: "geo-cat"}, got)
	assert.Empty(t, regions.radii)
}

func TestResolve_AddressIsCountry(t *testing.T) {
	svc := NewService(newRegions(), staticGeocoder(&geocode.Result{
		Matched: true, Types: []string{"country", "political"},
	}), 0)

	_, err := svc.Resolve(context.Background(), model.LocationDescriptor{
		Type: model.LocationAggregationPoint, Country: "Spain", Address: "Spain",
	})
	var verr *GeocodingValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Reason, "is a country")
}

func TestResolve_AddressUnmatched(t *testing.T) {
	svc := NewService(newRegions(), staticGeocoder(&geocode.Result{Matched: false}), 0)

	_, err := svc.Resolve(context.Background(), model.LocationDescriptor{
		Type: model.LocationEUDR, Country: "Spain", Address: "nowhere",
	})
	var verr *GeocodingValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Reason, "could not be geocoded")
}

func TestResolve_GeocoderError(t *testing.T) {
	svc := NewService(newRegions(), geocodeFunc(func(context.Context, geocode.AddressInput) (*geocode.Result, error) {
		return nil, errors.New("quota exceeded")
	}), 0)

	_, err := svc.Resolve(context.Background(), model.LocationDescriptor{
		Type: model.LocationEUDR, Country: "Spain", Address: "Lleida",
	})
	require.Error(t, err)
	var verr *GeocodingValidationError
	assert.False(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestResolve_AddressWithoutGeocoder(t *testing.T) {
	svc := NewService(newRegions(), nil, 0)

	_, err := svc.Resolve(context.Background(), model.LocationDescriptor{
		Type: model.LocationEUDR, Country: "Spain", Address: "Lleida",
	})
	var verr *GeocodingValidationError
	require.True(t, errors.As(err, &verr))
}

func TestResolve_AdminRegionOfProduction(t *testing.T) {
	svc := NewService(newRegions(), staticGeocoder(&geocode.Result{
		Matched: true, Latitude: 41.8, Longitude: 1.5, FormattedAddress: "Lleida, Spain", Types: []string{"locality"},
	}), 0)

	got, err := svc.Resolve(context.Background(), model.LocationDescriptor{
		Type: model.LocationAdminRegionOfProduction, Country: "Spain", AdminRegionInput: "Lleida",
	})
	require.NoError(t, err)
	assert.Equal(t, "adm-cat", got.AdminRegionID)
	assert.Equal(t, "geo-cat", got.GeoRegionID)
	assert.Contains(t, got.Warning, "not an admin region")
}

func TestResolve_AdminRegionMissing(t *testing.T) {
	svc := NewService(newRegions(), staticGeocoder(&geocode.Result{
		Matched: true, Types: []string{"administrative_area_level_2"},
	}), 0)

	_, err := svc.Resolve(context.Background(), model.LocationDescriptor{
		Type: model.LocationAdminRegionOfProduction, Country: "Spain", AdminRegionInput: "Segria",
	})
	var verr *GeocodingValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, ErrAdminRegionNotFound)
}

func TestResolve_InvalidDescriptor(t *testing.T) {
	_, err := NewService(newRegions(), nil, 0).Resolve(context.Background(), model.LocationDescriptor{Type: model.LocationEUDR})
	var verr *GeocodingValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "country missing", verr.Reason)
}

func TestCountryWarning(t *testing.T) {
	assert.Empty(t, countryWarning(&geocode.Result{FormattedAddress: "Abidjan, Côte d’Ivoire"}, "côte d’ivoire"))
	assert.Empty(t, countryWarning(&geocode.Result{}, "Spain"))
	assert.Contains(t, countryWarning(&geocode.Result{FormattedAddress: "Lleida, Spain"}, "France"), "may not be in France")
}
