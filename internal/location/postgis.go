package location

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/impact-cli/internal/db"
)

// DefaultResolution is the H3 resolution new geo regions are filled at.
const DefaultResolution = 6

// PostgresRegions implements Regions on PostGIS with the h3 extension.
type PostgresRegions struct {
	pool       db.Pool
	resolution int
}

// NewPostgresRegions creates a PostgresRegions. A non-positive resolution
// uses DefaultResolution.
func NewPostgresRegions(pool db.Pool, resolution int) *PostgresRegions {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &PostgresRegions{pool: pool, resolution: resolution}
}

// CountryByName implements Regions. Names and ISO codes are compared after
// Normalize.
func (p *PostgresRegions) CountryByName(ctx context.Context, name string) (Region, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, name, coalesce(iso_a2, ''), coalesce(geo_region_id::text, '')
		FROM admin_regions
		WHERE level = 0`)
	if err != nil {
		return Region{}, eris.Wrap(err, "location: query countries")
	}
	defer rows.Close()

	for rows.Next() {
		var r Region
		var country, iso string
		if err := rows.Scan(&r.AdminRegionID, &country, &iso, &r.GeoRegionID); err != nil {
			return Region{}, eris.Wrap(err, "location: scan country")
		}
		if SameName(country, name) || (iso != "" && strings.EqualFold(iso, strings.TrimSpace(name))) {
			return r, nil
		}
	}
	if err := rows.Err(); err != nil {
		return Region{}, eris.Wrap(err, "location: iterate countries")
	}
	return Region{}, ErrCountryNotFound
}

// AdminRegionAt implements Regions.
func (p *PostgresRegions) AdminRegionAt(ctx context.Context, lat, lng float64, level int) (Region, error) {
	pt, err := pointEWKB(lat, lng)
	if err != nil {
		return Region{}, err
	}
	var r Region
	err = p.pool.QueryRow(ctx, `
		SELECT a.id::text, a.geo_region_id::text
		FROM admin_regions a
		INNER JOIN geo_regions g ON g.id = a.geo_region_id
		WHERE a.level = $2 AND ST_Intersects(g.the_geom, ST_GeomFromEWKB($1))
		LIMIT 1`,
		pt, level,
	).Scan(&r.AdminRegionID, &r.GeoRegionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Region{}, ErrAdminRegionNotFound
	}
	if err != nil {
		return Region{}, eris.Wrap(err, "location: admin region at point")
	}
	return r, nil
}

// ClosestAdminRegion implements Regions. Only regions with a geometry are
// candidates.
func (p *PostgresRegions) ClosestAdminRegion(ctx context.Context, lat, lng float64) (string, error) {
	pt, err := pointEWKB(lat, lng)
	if err != nil {
		return "", err
	}
	var id string
	err = p.pool.QueryRow(ctx, `
		SELECT a.id::text
		FROM admin_regions a
		INNER JOIN geo_regions g ON g.id = a.geo_region_id
		WHERE g.the_geom IS NOT NULL
		ORDER BY g.the_geom <-> ST_GeomFromEWKB($1)
		LIMIT 1`,
		pt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrAdminRegionNotFound
	}
	if err != nil {
		return "", eris.Wrap(err, "location: closest admin region")
	}
	return id, nil
}

// SaveRadius implements Regions. The buffer is computed on the geography so
// the radius is in metres on the ground.
func (p *PostgresRegions) SaveRadius(ctx context.Context, name string, lat, lng, radiusKM float64) (string, error) {
	pt, err := pointEWKB(lat, lng)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = p.pool.Exec(ctx, `
		WITH shape AS (
			SELECT ST_Buffer(ST_GeomFromEWKB($3)::geography, $4 * 1000)::geometry AS geom
		)
		INSERT INTO geo_regions (id, name, the_geom, h3_compacted, is_radius)
		SELECT $1, $2, shape.geom,
			ARRAY(SELECT h3_compact_cells(ARRAY(SELECT h3_polygon_to_cells(shape.geom, $5)))::text),
			true
		FROM shape`,
		id, name, pt, radiusKM, p.resolution,
	)
	if err != nil {
		return "", eris.Wrap(err, "location: save radius geo region")
	}
	return id, nil
}

// SavePoint implements Regions.
func (p *PostgresRegions) SavePoint(ctx context.Context, name string, lat, lng float64) (string, error) {
	pt, err := pointEWKB(lat, lng)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = p.pool.Exec(ctx, `
		INSERT INTO geo_regions (id, name, the_geom, h3_compacted, is_radius)
		VALUES ($1, $2, ST_GeomFromEWKB($3), ARRAY[h3_lat_lng_to_cell(ST_GeomFromEWKB($3), $4)::text], false)`,
		id, name, pt, p.resolution,
	)
	if err != nil {
		return "", eris.Wrap(err, "location: save point geo region")
	}
	return id, nil
}

// pointEWKB encodes a WGS84 point for PostGIS.
func pointEWKB(lat, lng float64) ([]byte, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326)
	data, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "location: encode point")
	}
	return data, nil
}
