package main

import (
	"context"

	"github.com/sells-group/impact-cli/internal/indicator"
	"github.com/sells-group/impact-cli/internal/location"
	"github.com/sells-group/impact-cli/internal/resilience"
	"github.com/sells-group/impact-cli/internal/spatial"
	"github.com/sells-group/impact-cli/internal/store"
	"github.com/sells-group/impact-cli/pkg/geocode"
)

// initStore validates the config for mode and opens the Postgres store.
func initStore(ctx context.Context, mode string) (*store.PostgresStore, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns:         cfg.Store.MaxConns,
		MinConns:         cfg.Store.MinConns,
		StatementTimeout: cfg.Store.StatementTimeout,
	})
}

// newCalculator builds the indicator calculator over the H3 gateway, behind
// the configured circuit breaker.
func newCalculator(st *store.PostgresStore) *indicator.Calculator {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Name:             "spatial",
		FailureThreshold: cfg.Spatial.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Spatial.Breaker.ResetTimeout,
	})
	gw := spatial.NewPostgresGateway(st.Pool(), breaker)
	return indicator.NewCalculator(gw, indicator.ReferencesFromConfig(cfg.Spatial))
}

// newResolver builds the location resolver. Without a Google API key only
// coordinate and admin-region inputs can be resolved.
func newResolver(st *store.PostgresStore) *location.Service {
	opts := []geocode.Option{
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
		geocode.WithCache(st.Pool(), cfg.Geocode.CacheTTLDays),
	}
	var gc geocode.Client
	if cfg.Geocode.GoogleAPIKey != "" {
		gc = geocode.NewClient(append(opts, geocode.WithGoogleAPIKey(cfg.Geocode.GoogleAPIKey))...)
	}
	regions := location.NewPostgresRegions(st.Pool(), location.DefaultResolution)
	return location.NewService(regions, gc, cfg.Geocode.RadiusKM)
}
