package spatial

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/impact-cli/internal/db"
	"github.com/sells-group/impact-cli/internal/model"
	"github.com/sells-group/impact-cli/internal/resilience"
)

// regionCells expands a GeoRegion's compacted cells ($1) to resolution $2.
const regionCells = "get_h3_uncompact_geo_region($1, $2) region"

// PostgresGateway implements Gateway on Postgres with the h3 extension. Every
// query runs through a circuit breaker; failures of the database itself are
// reported as *UnavailableError and never retried here.
type PostgresGateway struct {
	pool    db.Pool
	breaker *resilience.Breaker
}

// NewPostgresGateway creates a gateway. A nil breaker gets the defaults.
func NewPostgresGateway(pool db.Pool, breaker *resilience.Breaker) *PostgresGateway {
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.BreakerConfig{Name: "spatial"})
	}
	return &PostgresGateway{pool: pool, breaker: breaker}
}

// SumOverRegion implements Gateway.
func (g *PostgresGateway) SumOverRegion(ctx context.Context, regionID string, resolution int, c Column) (float64, error) {
	return g.scalar(ctx, "sum over region", productSQL(c), regionID, resolution)
}

// SumProductOverRegion implements Gateway.
func (g *PostgresGateway) SumProductOverRegion(ctx context.Context, regionID string, resolution int, a, b Column) (float64, error) {
	return g.scalar(ctx, "sum product over region", productSQL(a, b), regionID, resolution)
}

// SumTripleProductOverRegion implements Gateway.
func (g *PostgresGateway) SumTripleProductOverRegion(ctx context.Context, regionID string, resolution int, a, b, c Column) (float64, error) {
	return g.scalar(ctx, "sum triple product over region", productSQL(a, b, c), regionID, resolution)
}

// ShareAboveThreshold implements Gateway.
func (g *PostgresGateway) ShareAboveThreshold(ctx context.Context, regionID string, resolution int, c Column, threshold float64) (float64, error) {
	col := pgx.Identifier{c.Column}.Sanitize()
	q := fmt.Sprintf(`SELECT round(sum(CASE WHEN l0.%s > $3 THEN 1 ELSE 0 END)::numeric / nullif(count(l0.%s), 0), 2)::float8
		FROM %s
		INNER JOIN %s l0 ON l0.h3index = region.h3index`,
		col, col, regionCells, pgx.Identifier{c.Table}.Sanitize())
	return g.scalar(ctx, "share above threshold", q, regionID, resolution, threshold)
}

// MaterialPhysicalLayer implements Gateway.
func (g *PostgresGateway) MaterialPhysicalLayer(ctx context.Context, materialID string, layerType LayerType) (Layer, error) {
	l, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (Layer, error) {
		var l Layer
		err := g.pool.QueryRow(ctx, `
			SELECT h.id::text, h.h3_table_name, h.h3_column_name, h.h3_resolution
			FROM material_to_h3 m
			INNER JOIN h3_data h ON h.id = m.h3_data_id
			WHERE m.material_id = $1 AND m.type = $2`,
			materialID, string(layerType),
		).Scan(&l.ID, &l.Column.Table, &l.Column.Column, &l.Resolution)
		return l, err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Layer{}, &MissingSpatialDataError{MaterialID: materialID, LayerType: layerType}
	}
	if err != nil {
		return Layer{}, wrap("material physical layer", err)
	}
	return l, nil
}

// IndicatorCoefficient implements Gateway.
func (g *PostgresGateway) IndicatorCoefficient(ctx context.Context, adminRegionID, materialID string, indicator model.IndicatorType) (float64, error) {
	v, err := g.scalar(ctx, "indicator coefficient", `
		SELECT ic.value
		FROM indicator_coefficients ic
		INNER JOIN indicators i ON i.id = ic.indicator_id
		WHERE i.name_code = $3
		  AND ic.material_id = $2
		  AND (ic.admin_region_id = $1 OR ic.admin_region_id IS NULL)
		  AND ic.value IS NOT NULL
		ORDER BY ic.admin_region_id NULLS LAST
		LIMIT 1`,
		nullable(adminRegionID), materialID, string(indicator))
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// scalar runs a single-value aggregate. SQL NULL (no covered cells) reads as 0.
func (g *PostgresGateway) scalar(ctx context.Context, op, query string, args ...any) (float64, error) {
	v, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*float64, error) {
		var out *float64
		err := g.pool.QueryRow(ctx, query, args...).Scan(&out)
		return out, err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	if err != nil {
		return 0, wrap(op, err)
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}

// productSQL sums the per-cell product of cols over the region.
func productSQL(cols ...Column) string {
	terms := make([]string, len(cols))
	var joins strings.Builder
	for i, c := range cols {
		alias := fmt.Sprintf("l%d", i)
		terms[i] = alias + "." + pgx.Identifier{c.Column}.Sanitize()
		fmt.Fprintf(&joins, "\n\t\tINNER JOIN %s %s ON %s.h3index = region.h3index",
			pgx.Identifier{c.Table}.Sanitize(), alias, alias)
	}
	return fmt.Sprintf("SELECT sum(%s)::float8\n\t\tFROM %s%s",
		strings.Join(terms, " * "), regionCells, joins.String())
}

func wrap(op string, err error) error {
	if resilience.IsUnavailable(err) {
		return &UnavailableError{Op: op, Err: err}
	}
	return eris.Wrapf(err, "spatial: %s", op)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
