package impact

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/impact-cli/internal/model"
	"github.com/sells-group/impact-cli/internal/tree"
)

// Query selects the data of an impact table.
type Query struct {
	IndicatorIDs  []string             `json:"indicator_ids" yaml:"indicator_ids"`
	StartYear     int                  `json:"start_year" yaml:"start_year"`
	EndYear       int                  `json:"end_year" yaml:"end_year"`
	GroupBy       GroupBy              `json:"group_by" yaml:"group_by"`
	Filters       model.Filters        `json:"filters" yaml:"filters"`
	LocationTypes []model.LocationType `json:"location_types,omitempty" yaml:"location_types,omitempty"`

	// ScenarioID adds the overlay of the scenario's active interventions.
	ScenarioID string `json:"scenario_id,omitempty" yaml:"scenario_id,omitempty"`

	SortingYear  int   `json:"sorting_year,omitempty" yaml:"sorting_year,omitempty"`
	SortingOrder Order `json:"sorting_order,omitempty" yaml:"sorting_order,omitempty"`

	Page     int `json:"page,omitempty" yaml:"page,omitempty"`
	PageSize int `json:"page_size,omitempty" yaml:"page_size,omitempty"`
}

// Validate checks the query shape.
func (q Query) Validate() error {
	if q.StartYear == 0 || q.EndYear == 0 {
		return eris.New("impact: start and end year are required")
	}
	if q.EndYear < q.StartYear {
		return eris.Errorf("impact: end year %d before start year %d", q.EndYear, q.StartYear)
	}
	if !q.GroupBy.Valid() {
		return eris.Errorf("impact: unknown group by %q", q.GroupBy)
	}
	if q.SortingYear != 0 && (q.SortingYear < q.StartYear || q.SortingYear > q.EndYear) {
		return eris.Errorf("impact: sorting year %d outside %d-%d", q.SortingYear, q.StartYear, q.EndYear)
	}
	return nil
}

// Source loads impact rows and their grouping hierarchy.
type Source interface {
	tree.DescendantSource

	// Indicators returns the indicators with the given ids, or all of them
	// when ids is empty.
	Indicators(ctx context.Context, ids []string) ([]model.Indicator, error)

	// ImpactRows returns (indicator, entity, year) aggregates of the
	// indicator records matching q. With q.ScenarioID set, rows of the
	// scenario's overlay are included and flagged Scenario, and actual
	// locations the overlay replaces are left out.
	ImpactRows(ctx context.Context, q Query) ([]Row, error)

	// EntityForest returns the pruned hierarchy of the entities in use by
	// the locations matching q.
	EntityForest(ctx context.Context, q Query) ([]Entity, error)
}

// Settings are the table tunables.
type Settings struct {
	GrowthRate         float64
	MaxRankingEntities int
	PageSize           int
}

// Service builds impact tables from a Source.
type Service struct {
	src Source
	cfg Settings
	log *zap.Logger
}

// NewService creates a Service.
func NewService(src Source, cfg Settings) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Service{
		src: src,
		cfg: cfg,
		log: zap.L().With(zap.String("component", "impact")),
	}
}

// Table returns the nested, sorted and paginated impact table of q.
func (s *Service) Table(ctx context.Context, q Query) (*Table, PageMeta, error) {
	t, err := s.build(ctx, q)
	if err != nil {
		return nil, PageMeta{}, err
	}
	if q.SortingYear != 0 {
		t = SortByYear(t, q.SortingYear, q.SortingOrder)
	}
	size := q.PageSize
	if size <= 0 {
		size = s.cfg.PageSize
	}
	t, meta := Paginate(t, q.Page, size)
	return t, meta, nil
}

// Ranked returns the table with only the top entities of every indicator, the
// rest aggregated into Others. A non-positive limit uses the configured
// maximum.
func (s *Service) Ranked(ctx context.Context, q Query, limit int) (*Table, error) {
	t, err := s.build(ctx, q)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.MaxRankingEntities
	}
	return Rank(t, limit, q.StartYear, q.SortingOrder), nil
}

// Compare builds the actual table and the q.ScenarioID table and pairs them.
func (s *Service) Compare(ctx context.Context, q Query) (*Comparison, error) {
	if q.ScenarioID == "" {
		return nil, eris.New("impact: comparison needs a scenario")
	}
	actualQ := q
	actualQ.ScenarioID = ""
	actual, err := s.build(ctx, actualQ)
	if err != nil {
		return nil, eris.Wrap(err, "impact: actual table")
	}
	scenario, err := s.build(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "impact: scenario table")
	}
	return Compare(actual, scenario), nil
}

func (s *Service) build(ctx context.Context, q Query) (*Table, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q, err := s.expand(ctx, q)
	if err != nil {
		return nil, err
	}

	indicators, err := s.src.Indicators(ctx, q.IndicatorIDs)
	if err != nil {
		return nil, eris.Wrap(err, "impact: load indicators")
	}
	rows, err := s.src.ImpactRows(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "impact: load rows")
	}
	if q.ScenarioID != "" {
		rows = MergeScenario(rows)
	}

	s.log.Debug("building impact table",
		zap.Int("rows", len(rows)),
		zap.Int("indicators", len(indicators)),
		zap.String("group_by", string(q.GroupBy)),
		zap.String("scenario_id", q.ScenarioID),
	)

	t, err := Build(Request{
		Indicators: indicators,
		StartYear:  q.StartYear,
		EndYear:    q.EndYear,
		GroupBy:    q.GroupBy,
		GrowthRate: s.cfg.GrowthRate,
	}, rows)
	if err != nil {
		return nil, err
	}

	entities, err := s.src.EntityForest(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "impact: load entity tree")
	}
	return Nest(t, entities), nil
}

// expand widens the tree-shaped filters to include descendants. Suppliers
// are served flat and are not expanded.
func (s *Service) expand(ctx context.Context, q Query) (Query, error) {
	var err error
	f := q.Filters
	if f.MaterialIDs, err = tree.Descendants(ctx, s.src, model.KindMaterial, f.MaterialIDs); err != nil {
		return q, err
	}
	if f.AdminRegionIDs, err = tree.Descendants(ctx, s.src, model.KindAdminRegion, f.AdminRegionIDs); err != nil {
		return q, err
	}
	if f.BusinessUnitIDs, err = tree.Descendants(ctx, s.src, model.KindBusinessUnit, f.BusinessUnitIDs); err != nil {
		return q, err
	}
	q.Filters = f
	return q, nil
}
