package impact

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/sells-group/impact-cli/internal/tree"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "ASC"
	Desc Order = "DESC"
)

// DefaultPageSize is used when a page size is not given.
const DefaultPageSize = 25

// MergeScenario folds scenario rows into the actual rows sharing their
// (indicator, entity, year). Scenario rows without an actual counterpart are
// appended, in order, after the actual rows.
func MergeScenario(rows []Row) []Row {
	type key struct {
		indicator string
		entity    string
		year      int
	}
	var (
		out      []Row
		index    = make(map[key]int)
		scenario []Row
	)
	for _, r := range rows {
		if r.Scenario {
			scenario = append(scenario, r)
			continue
		}
		k := key{r.IndicatorID, r.Entity, r.Year}
		if i, ok := index[k]; ok {
			out[i].Value += r.Value
			out[i].Tonnes += r.Tonnes
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	for _, r := range scenario {
		k := key{r.IndicatorID, r.Entity, r.Year}
		if i, ok := index[k]; ok {
			out[i].Value += r.Value
			out[i].Tonnes += r.Tonnes
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

// Entity is a node of the hierarchy rows are nested under.
type Entity struct {
	Name     string
	Children []Entity
}

// EntityForest converts an organizational forest into the nesting hierarchy.
func EntityForest[T tree.Named[T]](forest []T) []Entity {
	out := make([]Entity, 0, len(forest))
	for _, n := range forest {
		out = append(out, Entity{Name: n.NodeName(), Children: EntityForest(n.NodeChildren())})
	}
	return out
}

// Nest arranges every indicator's flat rows along entities. A parent's values
// are its own plus its children's, per year; a value is projected if any
// contributor is. Entities without data in their subtree are dropped, and
// rows whose entity is not in the forest are kept as roots after the nested
// ones. Year sums are unchanged.
func Nest(t *Table, entities []Entity) *Table {
	out := &Table{PurchasedTonnes: t.PurchasedTonnes}
	for _, it := range t.PerIndicator {
		flat := make(map[string]EntityRow, len(it.Rows))
		for _, r := range it.Rows {
			flat[r.Name] = r
		}
		years := make([]int, len(it.YearSum))
		for i, s := range it.YearSum {
			years[i] = s.Year
		}

		used := make(map[string]bool)
		var rows []EntityRow
		for _, e := range entities {
			if r, ok := nest(e, flat, years, used); ok {
				rows = append(rows, r)
			}
		}
		for _, r := range it.Rows {
			if !used[r.Name] {
				rows = append(rows, r)
			}
		}
		if rows == nil {
			rows = []EntityRow{}
		}

		it.Rows = rows
		out.PerIndicator = append(out.PerIndicator, it)
	}
	return out
}

func nest(e Entity, flat map[string]EntityRow, years []int, used map[string]bool) (EntityRow, bool) {
	row := EntityRow{Name: e.Name, Values: make([]YearValue, len(years))}
	for i, y := range years {
		row.Values[i].Year = y
	}

	var contributors [][]YearValue
	if self, ok := flat[e.Name]; ok && !used[e.Name] {
		used[e.Name] = true
		contributors = append(contributors, self.Values)
	}
	for _, c := range e.Children {
		if child, ok := nest(c, flat, years, used); ok {
			row.Children = append(row.Children, child)
			contributors = append(contributors, child.Values)
		}
	}
	if len(contributors) == 0 {
		return EntityRow{}, false
	}

	for i := range row.Values {
		for _, c := range contributors {
			if i < len(c) {
				row.Values[i].Value += c[i].Value
				row.Values[i].IsProjected = row.Values[i].IsProjected || c[i].IsProjected
			}
		}
	}
	return row, true
}

// Rank keeps the top limit root rows of every indicator by their startYear
// value (descending unless order is Asc) and aggregates the rest per year
// into Others.
func Rank(t *Table, limit int, startYear int, order Order) *Table {
	if order == "" {
		order = Desc
	}
	out := &Table{PurchasedTonnes: t.PurchasedTonnes}
	for _, it := range t.PerIndicator {
		rows := slices.Clone(it.Rows)
		sortRows(rows, startYear, order)

		cut := min(max(limit, 0), len(rows))
		rest := rows[cut:]
		it.Rows = rows[:cut]

		others := &Others{NumberOfAggregatedEntities: len(rest), Sort: order}
		for i, s := range it.YearSum {
			agg := YearSum{Year: s.Year}
			for _, r := range rest {
				if i < len(r.Values) {
					agg.Value += r.Values[i].Value
				}
			}
			others.AggregatedValues = append(others.AggregatedValues, agg)
		}
		it.Others = others
		out.PerIndicator = append(out.PerIndicator, it)
	}
	return out
}

// SortByYear sorts rows, and recursively their children, by their value in
// year.
func SortByYear(t *Table, year int, order Order) *Table {
	if order == "" {
		order = Desc
	}
	out := &Table{PurchasedTonnes: t.PurchasedTonnes}
	for _, it := range t.PerIndicator {
		it.Rows = sortTree(it.Rows, year, order)
		out.PerIndicator = append(out.PerIndicator, it)
	}
	return out
}

func sortTree(rows []EntityRow, year int, order Order) []EntityRow {
	out := slices.Clone(rows)
	for i := range out {
		if len(out[i].Children) > 0 {
			out[i].Children = sortTree(out[i].Children, year, order)
		}
	}
	sortRows(out, year, order)
	return out
}

func sortRows(rows []EntityRow, year int, order Order) {
	slices.SortStableFunc(rows, func(a, b EntityRow) int {
		if order == Asc {
			return cmp.Compare(a.valueAt(year), b.valueAt(year))
		}
		return cmp.Compare(b.valueAt(year), a.valueAt(year))
	})
}

func (r EntityRow) valueAt(year int) float64 {
	for _, v := range r.Values {
		if v.Year == year {
			return v.Value
		}
	}
	return 0
}

// PageMeta describes one page of root rows.
type PageMeta struct {
	TotalItems int `json:"totalItems" yaml:"totalItems"`
	TotalPages int `json:"totalPages" yaml:"totalPages"`
	Size       int `json:"size" yaml:"size"`
	Page       int `json:"page" yaml:"page"`
}

// Paginate returns the given 1-based page of every indicator's root rows.
// TotalItems is the largest root row count across indicators.
func Paginate(t *Table, page, size int) (*Table, PageMeta) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	meta := PageMeta{Size: size, Page: page}
	for _, it := range t.PerIndicator {
		meta.TotalItems = max(meta.TotalItems, len(it.Rows))
	}
	meta.TotalPages = (meta.TotalItems + size - 1) / size

	out := &Table{PurchasedTonnes: t.PurchasedTonnes}
	for _, it := range t.PerIndicator {
		start := min((page-1)*size, len(it.Rows))
		end := min(start+size, len(it.Rows))
		it.Rows = it.Rows[start:end:end]
		out.PerIndicator = append(out.PerIndicator, it)
	}
	return out, meta
}

// ComparedValue is one year of an actual-versus-scenario comparison.
type ComparedValue struct {
	Year                 int     `json:"year" yaml:"year"`
	Value                float64 `json:"value" yaml:"value"`
	ScenarioValue        float64 `json:"scenarioValue" yaml:"scenarioValue"`
	AbsoluteDifference   float64 `json:"absoluteDifference" yaml:"absoluteDifference"`
	PercentageDifference float64 `json:"percentageDifference" yaml:"percentageDifference"`
	IsProjected          bool    `json:"isProjected" yaml:"isProjected"`
}

// ComparedRow is an entity row of a comparison.
type ComparedRow struct {
	Name     string          `json:"entityName" yaml:"entityName"`
	Values   []ComparedValue `json:"values" yaml:"values"`
	Children []ComparedRow   `json:"children,omitempty" yaml:"children,omitempty"`
}

// ComparedIndicator is the comparison of one indicator.
type ComparedIndicator struct {
	IndicatorID string          `json:"indicatorId" yaml:"indicatorId"`
	Indicator   string          `json:"indicatorShortName,omitempty" yaml:"indicatorShortName,omitempty"`
	Unit        string          `json:"unit,omitempty" yaml:"unit,omitempty"`
	Rows        []ComparedRow   `json:"rows" yaml:"rows"`
	YearSum     []ComparedValue `json:"yearSum" yaml:"yearSum"`
}

// Comparison pairs an actual table with a scenario table.
type Comparison struct {
	PerIndicator    []ComparedIndicator `json:"perIndicator" yaml:"perIndicator"`
	PurchasedTonnes []ComparedValue     `json:"purchasedTonnes" yaml:"purchasedTonnes"`
}

// Compare pairs actual and scenario per indicator, entity and year. Rows only
// present in the scenario compare against 0 and are appended after the actual
// ones. Both tables are expected to cover the same years.
func Compare(actual, scenario *Table) *Comparison {
	scen := make(map[string]IndicatorTable, len(scenario.PerIndicator))
	for _, it := range scenario.PerIndicator {
		scen[it.IndicatorID] = it
	}

	out := &Comparison{PurchasedTonnes: compareValues(actual.PurchasedTonnes, scenario.PurchasedTonnes)}
	for _, a := range actual.PerIndicator {
		s := scen[a.IndicatorID]
		out.PerIndicator = append(out.PerIndicator, ComparedIndicator{
			IndicatorID: a.IndicatorID,
			Indicator:   a.Indicator,
			Unit:        a.Unit,
			Rows:        compareRows(a.Rows, s.Rows),
			YearSum:     compareValues(sumValues(a.YearSum), sumValues(s.YearSum)),
		})
	}
	return out
}

func compareRows(actual, scenario []EntityRow) []ComparedRow {
	byName := make(map[string]EntityRow, len(scenario))
	for _, r := range scenario {
		byName[r.Name] = r
	}
	out := make([]ComparedRow, 0, len(actual))
	matched := make(map[string]bool)
	for _, a := range actual {
		s, ok := byName[a.Name]
		matched[a.Name] = ok
		out = append(out, ComparedRow{
			Name:     a.Name,
			Values:   compareValues(a.Values, s.Values),
			Children: compareRows(a.Children, s.Children),
		})
	}
	for _, s := range scenario {
		if matched[s.Name] {
			continue
		}
		zero := make([]YearValue, len(s.Values))
		for i, v := range s.Values {
			zero[i] = YearValue{Year: v.Year}
		}
		out = append(out, ComparedRow{
			Name:     s.Name,
			Values:   compareValues(zero, s.Values),
			Children: compareRows(nil, s.Children),
		})
	}
	return out
}

// compareValues pairs values by year position. A missing scenario value
// counts as 0.
func compareValues(actual, scenario []YearValue) []ComparedValue {
	out := make([]ComparedValue, len(actual))
	for i, a := range actual {
		var s YearValue
		if i < len(scenario) {
			s = scenario[i]
		}
		out[i] = ComparedValue{
			Year:                 a.Year,
			Value:                a.Value,
			ScenarioValue:        s.Value,
			AbsoluteDifference:   Difference(a.Value, s.Value),
			PercentageDifference: PercentageDifference(a.Value, s.Value),
			IsProjected:          a.IsProjected || s.IsProjected,
		}
	}
	return out
}

func sumValues(sums []YearSum) []YearValue {
	out := make([]YearValue, len(sums))
	for i, s := range sums {
		out[i] = YearValue{Year: s.Year, Value: s.Value}
	}
	return out
}

// Difference returns scenario - actual.
func Difference(actual, scenario float64) float64 {
	return decimal.NewFromFloat(finite(scenario)).Sub(decimal.NewFromFloat(finite(actual))).InexactFloat64()
}

// PercentageDifference returns (scenario - actual) / actual * 100, or 0 when
// actual is 0.
func PercentageDifference(actual, scenario float64) float64 {
	a := decimal.NewFromFloat(finite(actual))
	if a.IsZero() {
		return 0
	}
	s := decimal.NewFromFloat(finite(scenario))
	return s.Sub(a).Mul(decimal.NewFromInt(100)).DivRound(a, 8).InexactFloat64()
}
