// Package geocode resolves free-form addresses to coordinates with the Google
// Geocoding API, optionally cached in Postgres.
package geocode

import (
	"context"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/impact-cli/internal/db"
)

// Client geocodes addresses.
type Client interface {
	// Geocode geocodes a single address. An address Google cannot place is
	// not an error: the result comes back with Matched false.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput is a free-form address, optionally scoped to a country.
type AddressInput struct {
	Address string
	Country string
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	Types            []string // Google result types, e.g. "locality", "country"
	Quality          string   // "rooftop", "range", "centroid", "approximate"
	Matched          bool
}

// IsCountry reports whether the result is a whole country rather than a
// place within one.
func (r *Result) IsCountry() bool {
	return slices.Contains(r.Types, "country")
}

// AdminLevel returns 1 or 2 when the result is a first or second level
// administrative area, and 0 otherwise.
func (r *Result) AdminLevel() int {
	switch {
	case slices.Contains(r.Types, "administrative_area_level_1"):
		return 1
	case slices.Contains(r.Types, "administrative_area_level_2"):
		return 2
	}
	return 0
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey sets the Google Geocoding API key.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for Google calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// WithCache stores results in public.geocode_cache. A positive ttlDays
// ignores entries older than that.
func WithCache(pool db.Pool, ttlDays int) Option {
	return func(g *geocoder) {
		g.pool = pool
		g.cacheTTLDays = ttlDays
	}
}

type geocoder struct {
	httpClient   *http.Client
	endpoint     string
	googleKey    string
	limiter      *rate.Limiter
	pool         db.Pool
	cacheTTLDays int
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   googleGeocodeURL,
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode checks the cache, then asks Google. Both matches and non-matches
// are cached.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	var key string
	if g.pool != nil {
		key = cacheKey(addr)
		if cached, err := g.checkCache(ctx, key); err == nil {
			return cached, nil
		}
	}

	result, err := g.geocodeGoogle(ctx, addr)
	if err != nil {
		return nil, err
	}

	if g.pool != nil {
		if err := g.storeCache(ctx, key, result); err != nil {
			zap.L().Warn("geocode: cache write failed", zap.Error(err))
		}
	}
	return result, nil
}
