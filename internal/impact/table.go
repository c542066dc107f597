// Package impact builds impact tables: per indicator, the yearly impact of each
// entity of a grouping, with missing years projected forward at a fixed growth
// rate, plus the yearly purchased volume.
package impact

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/impact-cli/internal/model"
)

// DefaultGrowthRate is the annual growth, in percent, used to project years
// without data.
const DefaultGrowthRate = 1.5

var (
	// ErrNoPurchasedVolume means the requested range holds no tonnage at all.
	ErrNoPurchasedVolume = eris.New("impact: no purchased volume to project from")
)

// GroupBy names the hierarchy the table rows are grouped by.
type GroupBy string

const (
	GroupByMaterial     GroupBy = "material"
	GroupByBusinessUnit GroupBy = "business-unit"
	GroupByRegion       GroupBy = "region"
	GroupByT1Supplier   GroupBy = "t1Supplier"
	GroupByProducer     GroupBy = "producer"
	GroupByLocationType GroupBy = "location-type"
)

// Valid reports whether g is a known grouping.
func (g GroupBy) Valid() bool {
	switch g {
	case GroupByMaterial, GroupByBusinessUnit, GroupByRegion, GroupByT1Supplier, GroupByProducer, GroupByLocationType:
		return true
	}
	return false
}

// Request parameterizes Build.
type Request struct {
	Indicators []model.Indicator
	StartYear  int
	EndYear    int
	GroupBy    GroupBy
	GrowthRate float64
}

// Row is one pre-aggregated (indicator, entity, year) impact value together
// with the tonnage behind it.
type Row struct {
	IndicatorID string  `json:"indicatorId"`
	Entity      string  `json:"entityName"`
	Year        int     `json:"year"`
	Value       float64 `json:"value"`
	Tonnes      float64 `json:"tonnes"`
	Scenario    bool    `json:"scenario,omitempty"`
}

// YearValue is one year of an entity row or of the purchased volume.
type YearValue struct {
	Year        int     `json:"year" yaml:"year"`
	Value       float64 `json:"value" yaml:"value"`
	IsProjected bool    `json:"isProjected" yaml:"isProjected"`
}

// YearSum is the total across all entities of one indicator for a year.
type YearSum struct {
	Year  int     `json:"year" yaml:"year"`
	Value float64 `json:"value" yaml:"value"`
}

// EntityRow holds an entity's yearly values. Children are only present once
// the table is nested.
type EntityRow struct {
	Name     string      `json:"entityName" yaml:"entityName"`
	Values   []YearValue `json:"values" yaml:"values"`
	Children []EntityRow `json:"children,omitempty" yaml:"children,omitempty"`
}

// Others aggregates the rows cut off by ranking.
type Others struct {
	AggregatedValues           []YearSum `json:"aggregatedValues" yaml:"aggregatedValues"`
	NumberOfAggregatedEntities int       `json:"numberOfAggregatedEntities" yaml:"numberOfAggregatedEntities"`
	Sort                       Order     `json:"sort" yaml:"sort"`
}

// IndicatorTable is the table of one indicator.
type IndicatorTable struct {
	IndicatorID string      `json:"indicatorId" yaml:"indicatorId"`
	Indicator   string      `json:"indicatorShortName,omitempty" yaml:"indicatorShortName,omitempty"`
	Unit        string      `json:"unit,omitempty" yaml:"unit,omitempty"`
	GroupBy     GroupBy     `json:"groupBy,omitempty" yaml:"groupBy,omitempty"`
	Rows        []EntityRow `json:"rows" yaml:"rows"`
	YearSum     []YearSum   `json:"yearSum" yaml:"yearSum"`
	Others      *Others     `json:"others,omitempty" yaml:"others,omitempty"`
}

// Table is the full impact table.
type Table struct {
	PerIndicator    []IndicatorTable `json:"perIndicator" yaml:"perIndicator"`
	PurchasedTonnes []YearValue      `json:"purchasedTonnes" yaml:"purchasedTonnes"`
}

// Years returns the requested years in ascending order.
func (r Request) Years() []int {
	if r.EndYear < r.StartYear {
		return nil
	}
	years := make([]int, 0, r.EndYear-r.StartYear+1)
	for y := r.StartYear; y <= r.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// Build assembles the impact table of rows. Indicators are emitted in request
// order; when the request names none, in first-seen row order. Rows outside
// the year range are ignored and rows sharing (indicator, entity, year) are
// summed.
func Build(req Request, rows []Row) (*Table, error) {
	if req.EndYear < req.StartYear {
		return nil, eris.Errorf("impact: end year %d before start year %d", req.EndYear, req.StartYear)
	}
	years := req.Years()

	byIndicator := make(map[string][]Row)
	var seen []string
	for _, r := range rows {
		if r.Year < req.StartYear || r.Year > req.EndYear {
			continue
		}
		if _, ok := byIndicator[r.IndicatorID]; !ok {
			seen = append(seen, r.IndicatorID)
		}
		byIndicator[r.IndicatorID] = append(byIndicator[r.IndicatorID], r)
	}

	indicators := req.Indicators
	if len(indicators) == 0 {
		for _, id := range seen {
			indicators = append(indicators, model.Indicator{ID: id})
		}
	}

	t := &Table{PerIndicator: make([]IndicatorTable, 0, len(indicators))}
	for _, ind := range indicators {
		t.PerIndicator = append(t.PerIndicator, buildIndicator(ind, req, years, byIndicator[ind.ID]))
	}

	tonnes, err := purchasedTonnes(years, rows, req.GrowthRate)
	if err != nil {
		return nil, err
	}
	t.PurchasedTonnes = tonnes
	return t, nil
}

func buildIndicator(ind model.Indicator, req Request, years []int, rows []Row) IndicatorTable {
	it := IndicatorTable{
		IndicatorID: ind.ID,
		Indicator:   string(ind.NameCode),
		Unit:        ind.Unit,
		GroupBy:     req.GroupBy,
		Rows:        []EntityRow{},
	}

	// entity -> year -> value, entities in first-seen order
	values := make(map[string]map[int]float64)
	var entities []string
	for _, r := range rows {
		ev, ok := values[r.Entity]
		if !ok {
			ev = make(map[int]float64)
			values[r.Entity] = ev
			entities = append(entities, r.Entity)
		}
		ev[r.Year] += finite(r.Value)
	}

	for _, e := range entities {
		it.Rows = append(it.Rows, EntityRow{Name: e, Values: fillYears(years, values[e], req.GrowthRate)})
	}

	it.YearSum = yearSum(years, it.Rows)
	return it
}

// fillYears lays known onto years. Years before the first one with data are
// 0 and not projected; later gaps are projected from the previous year.
func fillYears(years []int, known map[int]float64, growthRate float64) []YearValue {
	out := make([]YearValue, len(years))
	started := false
	for i, y := range years {
		out[i].Year = y
		if v, ok := known[y]; ok {
			out[i].Value = v
			started = true
			continue
		}
		if started {
			out[i].Value = Project(out[i-1].Value, growthRate)
			out[i].IsProjected = true
		}
	}
	return out
}

// yearSum adds up the rows positionally: index i of every row is year i.
func yearSum(years []int, rows []EntityRow) []YearSum {
	sums := make([]YearSum, len(years))
	for i, y := range years {
		sums[i].Year = y
		for _, r := range rows {
			sums[i].Value += r.Values[i].Value
		}
	}
	return sums
}

// purchasedTonnes totals the tonnage per year. Every indicator carries the
// same tonnage for an (entity, year), so each is counted once, from the first
// row seen. Actual and scenario rows count separately.
func purchasedTonnes(years []int, rows []Row, growthRate float64) ([]YearValue, error) {
	type key struct {
		entity   string
		year     int
		scenario bool
	}
	counted := make(map[key]bool)
	totals := make(map[int]float64)
	for _, r := range rows {
		k := key{entity: r.Entity, year: r.Year, scenario: r.Scenario}
		if counted[k] {
			continue
		}
		counted[k] = true
		totals[r.Year] += finite(r.Tonnes)
	}

	inRange := make(map[int]float64, len(years))
	for _, y := range years {
		if v, ok := totals[y]; ok {
			inRange[y] = v
		}
	}
	if len(inRange) == 0 {
		return nil, eris.Wrapf(ErrNoPurchasedVolume, "years %d-%d", years[0], years[len(years)-1])
	}
	return fillYears(years, inRange, growthRate), nil
}

// Project grows prev by growthRate percent: prev * (1 + growthRate/100). The
// product is taken in decimal so that repeated projection compounds exactly.
func Project(prev, growthRate float64) float64 {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(growthRate).Div(decimal.NewFromInt(100)))
	return decimal.NewFromFloat(finite(prev)).Mul(factor).InexactFloat64()
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
