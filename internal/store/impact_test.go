package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/impact-cli/internal/impact"
	"github.com/sells-group/impact-cli/internal/model"
)

var impactRowColumns = []string{"indicator_id", "entity", "year", "value", "tonnes", "scenario"}

func TestImpactRows_Actual(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`JOIN materials e ON e.id = sl.material_id LEFT JOIN scenario_interventions si ON si.id = sl.scenario_intervention_id `+
		`WHERE \(1=1\) AND sl.scenario_intervention_id IS NULL AND sr.year >= \$1 AND sr.year <= \$2 AND ir.indicator_id IN \(\$3\) `+
		`GROUP BY ir.indicator_id, e.name, sr.year`).
		WithArgs(2020, 2021, "ind-lu").
		WillReturnRows(pgxmock.NewRows(impactRowColumns).
			AddRow("ind-lu", "Cotton", 2020, 50.0, 1000.0, false).
			AddRow("ind-lu", "Cotton", 2021, 55.0, 1100.0, false))

	rows, err := s.ImpactRows(context.Background(), impact.Query{
		IndicatorIDs: []string{"ind-lu"},
		StartYear:    2020,
		EndYear:      2021,
		GroupBy:      impact.GroupByMaterial,
	})
	require.NoError(t, err)
	assert.Equal(t, []impact.Row{
		{IndicatorID: "ind-lu", Entity: "Cotton", Year: 2020, Value: 50, Tonnes: 1000},
		{IndicatorID: "ind-lu", Entity: "Cotton", Year: 2021, Value: 55, Tonnes: 1100},
	}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImpactRows_ScenarioByLocationType(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT ir.indicator_id, sl.location_type AS entity, .* `+
		`WHERE \(1=1\) AND \(\(sl.scenario_intervention_id IS NULL AND NOT EXISTS \(.*ci.scenario_id = \$1.*\)\) `+
		`OR \(si.scenario_id = \$2 AND si.status = \$3\)\) AND sl.location_type IN \(\$4\)`).
		WithArgs("scn-1", "scn-1", "active", "eudr", 2020, 2020).
		WillReturnRows(pgxmock.NewRows(impactRowColumns).
			AddRow("ind-lu", "eudr", 2020, 20.0, 400.0, true))

	rows, err := s.ImpactRows(context.Background(), impact.Query{
		StartYear:     2020,
		EndYear:       2020,
		GroupBy:       impact.GroupByLocationType,
		ScenarioID:    "scn-1",
		LocationTypes: []model.LocationType{model.LocationEUDR},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Scenario)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImpactRows_UnknownGroupBy(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	_, err := s.ImpactRows(context.Background(), impact.Query{GroupBy: "planet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown group by")
}

func TestVisible(t *testing.T) {
	sql, args, err := visible("").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "sl.scenario_intervention_id IS NULL", sql)
	assert.Empty(t, args)

	sql, args, err = visible("scn-1").ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "NOT EXISTS")
	assert.Contains(t, sql, "c.replaces_location_id = sl.id")
	assert.Contains(t, sql, "OR (si.scenario_id = ? AND si.status = ?)")
	assert.Equal(t, []any{"scn-1", "scn-1", "active"}, args)
}

func TestEntityForest_PrunesToInUse(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT DISTINCT sl.producer_id FROM sourcing_locations sl .* AND sl.producer_id IS NOT NULL`).
		WillReturnRows(pgxmock.NewRows([]string{"producer_id"}).AddRow("farm-a"))
	mock.ExpectQuery(`FROM suppliers ORDER BY mpath`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "parent_id", "mpath", "type"}).
			AddRow("coop", "Cooperative", "", "coop", "producer").
			AddRow("farm-a", "Farm A", "coop", "coop.farm-a", "producer").
			AddRow("farm-b", "Farm B", "coop", "coop.farm-b", "producer"))

	got, err := s.EntityForest(context.Background(), impact.Query{GroupBy: impact.GroupByProducer})
	require.NoError(t, err)
	assert.Equal(t, []impact.Entity{{
		Name:     "Cooperative",
		Children: []impact.Entity{{Name: "Farm A", Children: []impact.Entity{}}},
	}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEntityForest_LocationTypeHasNoTree(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	got, err := s.EntityForest(context.Background(), impact.Query{GroupBy: impact.GroupByLocationType})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
