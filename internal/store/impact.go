package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/impact-cli/internal/impact"
	"github.com/sells-group/impact-cli/internal/model"
	"github.com/sells-group/impact-cli/internal/tree"
)

// grouping is how a GroupBy maps onto sourcing_locations sl.
type grouping struct {
	kind   model.EntityKind
	table  string
	column string
}

func groupingFor(g impact.GroupBy) (grouping, error) {
	switch g {
	case impact.GroupByMaterial:
		return grouping{model.KindMaterial, "materials", "sl.material_id"}, nil
	case impact.GroupByBusinessUnit:
		return grouping{model.KindBusinessUnit, "business_units", "sl.business_unit_id"}, nil
	case impact.GroupByRegion:
		return grouping{model.KindAdminRegion, "admin_regions", "sl.admin_region_id"}, nil
	case impact.GroupByT1Supplier:
		return grouping{model.KindSupplier, "suppliers", "sl.t1_supplier_id"}, nil
	case impact.GroupByProducer:
		return grouping{model.KindSupplier, "suppliers", "sl.producer_id"}, nil
	case impact.GroupByLocationType:
		return grouping{column: "sl.location_type"}, nil
	}
	return grouping{}, eris.Errorf("postgres: unknown group by %q", g)
}

// shadowed matches actual locations that an active CANCELED copy in the
// scenario stands in for.
const shadowed = "EXISTS (SELECT 1 FROM sourcing_locations c" +
	" JOIN scenario_interventions ci ON ci.id = c.scenario_intervention_id" +
	" WHERE c.replaces_location_id = sl.id AND c.intervention_type = 'CANCELED'" +
	" AND ci.scenario_id = ? AND ci.status = 'active')"

// visible restricts sourcing_locations sl to the actual data, or to the
// scenario view: actual locations not shadowed by the scenario plus the
// overlays of its active interventions. It expects scenario_interventions si
// left joined on sl.
func visible(scenarioID string) sq.Sqlizer {
	if scenarioID == "" {
		return sq.Eq{"sl.scenario_intervention_id": nil}
	}
	return sq.Or{
		sq.And{
			sq.Eq{"sl.scenario_intervention_id": nil},
			sq.Expr("NOT "+shadowed, scenarioID),
		},
		sq.And{
			sq.Eq{"si.scenario_id": scenarioID},
			sq.Eq{"si.status": string(model.InterventionActive)},
		},
	}
}

// scoped applies the location filters, location types and visibility of q.
func scoped(b sq.SelectBuilder, q impact.Query) sq.SelectBuilder {
	b = b.LeftJoin("scenario_interventions si ON si.id = sl.scenario_intervention_id").
		Where(locationFilters(q.Filters)).
		Where(visible(q.ScenarioID))
	if len(q.LocationTypes) > 0 {
		types := make([]string, len(q.LocationTypes))
		for i, t := range q.LocationTypes {
			types[i] = string(t)
		}
		b = b.Where(sq.Eq{"sl.location_type": types})
	}
	return b
}

// ImpactRows implements impact.Source. Values and tonnes are summed per
// (indicator, entity, year) and per side of the scenario.
func (s *PostgresStore) ImpactRows(ctx context.Context, q impact.Query) ([]impact.Row, error) {
	g, err := groupingFor(q.GroupBy)
	if err != nil {
		return nil, err
	}
	entity := g.column
	if g.table != "" {
		entity = "e.name"
	}
	const isScenario = "(sl.scenario_intervention_id IS NOT NULL)"

	b := builder().
		Select("ir.indicator_id", entity+" AS entity", "sr.year", "sum(ir.value)::float8", "sum(sr.tonnage)::float8", isScenario+" AS scenario").
		From("indicator_records ir").
		Join("sourcing_records sr ON sr.id = ir.sourcing_record_id").
		Join("sourcing_locations sl ON sl.id = sr.sourcing_location_id")
	if g.table != "" {
		b = b.Join(g.table + " e ON e.id = " + g.column)
	}
	b = scoped(b, q).
		Where(sq.GtOrEq{"sr.year": q.StartYear}).
		Where(sq.LtOrEq{"sr.year": q.EndYear}).
		GroupBy("ir.indicator_id", entity, "sr.year", isScenario).
		OrderBy("ir.indicator_id", "entity", "sr.year", "scenario")
	if len(q.IndicatorIDs) > 0 {
		b = b.Where(sq.Eq{"ir.indicator_id": q.IndicatorIDs})
	}

	return collect(ctx, s, b, "impact rows", func(row pgx.CollectableRow) (impact.Row, error) {
		var r impact.Row
		err := row.Scan(&r.IndicatorID, &r.Entity, &r.Year, &r.Value, &r.Tonnes, &r.Scenario)
		return r, err
	})
}

// EntityForest implements impact.Source. The tree of the grouping is pruned
// to the entities the visible locations use. Location types have no tree.
func (s *PostgresStore) EntityForest(ctx context.Context, q impact.Query) ([]impact.Entity, error) {
	g, err := groupingFor(q.GroupBy)
	if err != nil {
		return nil, err
	}
	if g.table == "" {
		return nil, nil
	}

	inUse, err := collect(ctx, s, scoped(builder().
		Select("DISTINCT "+g.column).
		From("sourcing_locations sl"), q).
		Where(sq.NotEq{g.column: nil}).
		OrderBy(g.column),
		"entities in use", pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	switch g.kind {
	case model.KindMaterial:
		return pruned(ctx, s.Materials, inUse)
	case model.KindBusinessUnit:
		return pruned(ctx, s.BusinessUnits, inUse)
	case model.KindAdminRegion:
		return pruned(ctx, s.AdminRegions, inUse)
	default:
		return pruned(ctx, s.Suppliers, inUse)
	}
}

func pruned[T tree.Named[T]](ctx context.Context, load func(context.Context, []string) ([]T, error), inUse []string) ([]impact.Entity, error) {
	flat, err := load(ctx, nil)
	if err != nil {
		return nil, err
	}
	return impact.EntityForest(tree.Prune(tree.Build(flat), inUse)), nil
}
