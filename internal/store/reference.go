package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/impact-cli/internal/model"
)

// Descendants returns the ids of every strict descendant of ids in the tree
// of kind, found by materialized path prefix.
func (s *PostgresStore) Descendants(ctx context.Context, kind model.EntityKind, ids []string) ([]string, error) {
	table := kind.Table()
	if table == "" {
		return nil, eris.Errorf("postgres: unknown entity kind %q", kind)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	q := builder().
		Select("DISTINCT d.id").
		From(table + " d").
		Join(table + " a ON d.mpath LIKE a.mpath || '" + model.MPathSeparator + "%'").
		Where(sq.Eq{"a.id": ids}).
		OrderBy("d.id")
	return collect(ctx, s, q, "descendants of "+string(kind), pgx.RowTo[string])
}

// Materials returns the materials with the given ids, or all when ids is
// empty.
func (s *PostgresStore) Materials(ctx context.Context, ids []string) ([]model.Material, error) {
	q := byIDs(builder().
		Select("id", "name", "coalesce(parent_id, '')", "mpath", "coalesce(hs_code, '')").
		From("materials"), ids)
	return collect(ctx, s, q, "materials", func(row pgx.CollectableRow) (model.Material, error) {
		var m model.Material
		err := row.Scan(&m.ID, &m.Name, &m.ParentID, &m.MPath, &m.HSCode)
		return m, err
	})
}

// AdminRegions returns the admin regions with the given ids, or all when ids
// is empty.
func (s *PostgresStore) AdminRegions(ctx context.Context, ids []string) ([]model.AdminRegion, error) {
	q := byIDs(builder().
		Select("id", "name", "coalesce(parent_id, '')", "mpath", "coalesce(iso_a2, '')", "level", "coalesce(geo_region_id, '')").
		From("admin_regions"), ids)
	return collect(ctx, s, q, "admin regions", func(row pgx.CollectableRow) (model.AdminRegion, error) {
		var a model.AdminRegion
		err := row.Scan(&a.ID, &a.Name, &a.ParentID, &a.MPath, &a.ISOA2, &a.Level, &a.GeoRegionID)
		return a, err
	})
}

// Suppliers returns the suppliers with the given ids, or all when ids is
// empty.
func (s *PostgresStore) Suppliers(ctx context.Context, ids []string) ([]model.Supplier, error) {
	q := byIDs(builder().
		Select("id", "name", "coalesce(parent_id, '')", "mpath", "coalesce(type, '')").
		From("suppliers"), ids)
	return collect(ctx, s, q, "suppliers", func(row pgx.CollectableRow) (model.Supplier, error) {
		var sp model.Supplier
		var typ string
		err := row.Scan(&sp.ID, &sp.Name, &sp.ParentID, &sp.MPath, &typ)
		sp.Type = model.SupplierType(typ)
		return sp, err
	})
}

// BusinessUnits returns the business units with the given ids, or all when
// ids is empty.
func (s *PostgresStore) BusinessUnits(ctx context.Context, ids []string) ([]model.BusinessUnit, error) {
	q := byIDs(builder().
		Select("id", "name", "coalesce(parent_id, '')", "mpath").
		From("business_units"), ids)
	return collect(ctx, s, q, "business units", func(row pgx.CollectableRow) (model.BusinessUnit, error) {
		var b model.BusinessUnit
		err := row.Scan(&b.ID, &b.Name, &b.ParentID, &b.MPath)
		return b, err
	})
}

// Indicators returns the indicators with the given ids, or all when ids is
// empty.
func (s *PostgresStore) Indicators(ctx context.Context, ids []string) ([]model.Indicator, error) {
	q := builder().
		Select("id", "name_code", "name", "unit").
		From("indicators").
		OrderBy("name_code")
	if len(ids) > 0 {
		q = q.Where(sq.Eq{"id": ids})
	}
	return collect(ctx, s, q, "indicators", func(row pgx.CollectableRow) (model.Indicator, error) {
		var ind model.Indicator
		var code string
		err := row.Scan(&ind.ID, &code, &ind.Name, &ind.Unit)
		ind.NameCode = model.IndicatorType(code)
		return ind, err
	})
}

func byIDs(q sq.SelectBuilder, ids []string) sq.SelectBuilder {
	if len(ids) > 0 {
		q = q.Where(sq.Eq{"id": ids})
	}
	return q.OrderBy("mpath")
}

// collect runs q and maps every row with fn.
func collect[T any](ctx context.Context, s *PostgresStore, q sq.Sqlizer, op string, fn pgx.RowToFunc[T]) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: build %s query", op)
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query %s", op)
	}
	out, err := pgx.CollectRows(rows, fn)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: scan %s", op)
	}
	return out, nil
}
