package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

	// Geocoding responses are small; anything past this is not a valid answer.
	maxGoogleBody = 1 << 20
)

// ErrQuotaExceeded is returned when Google reports OVER_QUERY_LIMIT. It is
// not cached.
var ErrQuotaExceeded = eris.New("geocode: google quota exceeded")

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string   `json:"formatted_address"`
		Types            []string `json:"types"`
		Geometry         struct {
			LocationType string `json:"location_type"`
			Location     struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// geocodeGoogle asks the Google Geocoding API for addr. Only the first
// candidate is used.
func (g *geocoder) geocodeGoogle(ctx context.Context, addr AddressInput) (*Result, error) {
	if g.googleKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: google rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.googleURL(addr), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: google returned status %d", resp.StatusCode)
	}
	return decodeGoogle(io.LimitReader(resp.Body, maxGoogleBody))
}

func (g *geocoder) googleURL(addr AddressInput) string {
	q := url.Values{}
	q.Set("address", formatOneLine(addr))
	q.Set("key", g.googleKey)
	return g.endpoint + "?" + q.Encode()
}

func decodeGoogle(r io.Reader) (*Result, error) {
	var body googleResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &Result{}, nil
	case "OVER_QUERY_LIMIT":
		return nil, eris.Wrap(ErrQuotaExceeded, body.ErrorMessage)
	default:
		return nil, eris.Errorf("geocode: google status %s: %s", body.Status, body.ErrorMessage)
	}
	if len(body.Results) == 0 {
		return &Result{}, nil
	}

	first := body.Results[0]
	return &Result{
		Latitude:         first.Geometry.Location.Lat,
		Longitude:        first.Geometry.Location.Lng,
		FormattedAddress: first.FormattedAddress,
		Types:            first.Types,
		Quality:          googleLocationTypeToQuality(first.Geometry.LocationType),
		Matched:          true,
	}, nil
}

// formatOneLine joins the address and its country for a single-line query.
func formatOneLine(addr AddressInput) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{addr.Address, addr.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

var googleQuality = map[string]string{
	"ROOFTOP":            "rooftop",
	"RANGE_INTERPOLATED": "range",
	"GEOMETRIC_CENTER":   "centroid",
}

// googleLocationTypeToQuality maps Google's location_type onto Result.Quality.
func googleLocationTypeToQuality(locType string) string {
	if q, ok := googleQuality[strings.ToUpper(locType)]; ok {
		return q
	}
	return "approximate"
}
