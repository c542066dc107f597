package intervention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sells-group/impact-cli/internal/indicator"
	"github.com/sells-group/impact-cli/internal/location"
	"github.com/sells-group/impact-cli/internal/model"
)

type fakeStore struct {
	mu sync.Mutex

	locations   []model.SourcingLocation
	descendants map[model.EntityKind]map[string][]string
	stored      map[string]*model.Intervention

	gotFilters []model.Filters
	fetched    map[string][][]string
	commits    []commit
	commitErr  error
	statusErr  error
	statuses   map[string]model.InterventionStatus
}

type commit struct {
	iv      *model.Intervention
	replace bool
}

func newFakeStore(locs ...model.SourcingLocation) *fakeStore {
	return &fakeStore{
		locations:   locs,
		descendants: map[model.EntityKind]map[string][]string{},
		stored:      map[string]*model.Intervention{},
		fetched:     map[string][][]string{},
		statuses:    map[string]model.InterventionStatus{},
	}
}

func (f *fakeStore) Descendants(_ context.Context, kind model.EntityKind, ids []string) ([]string, error) {
	out := append([]string(nil), ids...)
	for _, id := range ids {
		out = append(out, f.descendants[kind][id]...)
	}
	return out, nil
}

func (f *fakeStore) ActualLocations(_ context.Context, filters model.Filters) ([]model.SourcingLocation, error) {
	f.gotFilters = append(f.gotFilters, filters)
	return f.locations, nil
}

func (f *fakeStore) record(kind string, ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched[kind] = append(f.fetched[kind], ids)
}

func (f *fakeStore) Materials(_ context.Context, ids []string) ([]model.Material, error) {
	f.record("materials", ids)
	out := make([]model.Material, len(ids))
	for i, id := range ids {
		out[i] = model.Material{ID: id, Name: "material " + id}
	}
	return out, nil
}

func (f *fakeStore) AdminRegions(_ context.Context, ids []string) ([]model.AdminRegion, error) {
	f.record("admin_regions", ids)
	out := make([]model.AdminRegion, len(ids))
	for i, id := range ids {
		out[i] = model.AdminRegion{ID: id}
	}
	return out, nil
}

func (f *fakeStore) BusinessUnits(_ context.Context, ids []string) ([]model.BusinessUnit, error) {
	f.record("business_units", ids)
	out := make([]model.BusinessUnit, len(ids))
	for i, id := range ids {
		out[i] = model.BusinessUnit{ID: id}
	}
	return out, nil
}

func (f *fakeStore) Suppliers(_ context.Context, ids []string) ([]model.Supplier, error) {
	f.record("suppliers", ids)
	out := make([]model.Supplier, len(ids))
	for i, id := range ids {
		out[i] = model.Supplier{ID: id}
	}
	return out, nil
}

func (f *fakeStore) Indicators(context.Context, []string) ([]model.Indicator, error) {
	return []model.Indicator{
		{ID: "ind-lu", NameCode: model.LandUse},
		{ID: "ind-wu", NameCode: model.WaterUse},
	}, nil
}

func (f *fakeStore) Intervention(_ context.Context, id string) (*model.Intervention, error) {
	iv, ok := f.stored[id]
	if !ok {
		return nil, ErrNotFound
	}
	return iv, nil
}

func (f *fakeStore) CommitIntervention(_ context.Context, iv *model.Intervention, replace bool) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits = append(f.commits, commit{iv: iv, replace: replace})
	f.stored[iv.ID] = iv
	return nil
}

func (f *fakeStore) SetInterventionStatus(_ context.Context, id string, status model.InterventionStatus) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statuses[id] = status
	return nil
}

type fakeResolver struct {
	resolved location.Resolved
	err      error
	calls    []model.LocationDescriptor
}

func (r *fakeResolver) Resolve(_ context.Context, d model.LocationDescriptor) (location.Resolved, error) {
	r.calls = append(r.calls, d)
	return r.resolved, r.err
}

// perTonne computes every indicator as a fixed factor of the tonnage so the
// replacing impact is visibly independent of the replaced one.
type perTonne struct {
	mu       sync.Mutex
	inputs   []model.SourcingInput
	coefs    []*model.Coefficients
	failFor  string
	landUse  float64
	waterUse float64
}

func (c *perTonne) Compute(_ context.Context, in model.SourcingInput, coefs *model.Coefficients) (indicator.Values, error) {
	c.mu.Lock()
	c.inputs = append(c.inputs, in)
	c.coefs = append(c.coefs, coefs)
	c.mu.Unlock()
	if in.MaterialID == c.failFor {
		return indicator.Values{}, fmt.Errorf("no data for %s", in.MaterialID)
	}
	return indicator.Values{
		PerIndicator: model.PerIndicator{LandUse: in.Tonnage * c.landUse, WaterUse: in.Tonnage * c.waterUse},
		Scaler:       in.Tonnage,
	}, nil
}

// seqIDs returns deterministic ids.
func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testBuilder(store Store, resolver location.Resolver, calc indicator.Computer) *Builder {
	b := NewBuilder(store, resolver, calc, 4)
	b.newID = seqIDs()
	b.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }
	return b
}

func f64(v float64) *float64 { return &v }

// cottonLocation has one record inside 2020+ and one before it.
func cottonLocation() model.SourcingLocation {
	return model.SourcingLocation{
		ID:             "loc-1",
		MaterialID:     "cotton",
		AdminRegionID:  "adm-in",
		GeoRegionID:    "geo-in",
		BusinessUnitID: "bu-1",
		T1SupplierID:   "sup-1",
		LocationType:   model.LocationCountryOfProduction,
		SourcingRecords: []model.SourcingRecord{
			{
				ID: "rec-2020", SourcingLocationID: "loc-1", Year: 2020, Tonnage: 1000,
				IndicatorRecords: []model.IndicatorRecord{
					{ID: "ir-1", SourcingRecordID: "rec-2020", IndicatorID: "ind-lu", Value: 50, Scaler: 7, Status: model.StatusSuccess},
				},
			},
			{
				ID: "rec-2019", SourcingLocationID: "loc-1", Year: 2019, Tonnage: 500,
				IndicatorRecords: []model.IndicatorRecord{
					{ID: "ir-2", SourcingRecordID: "rec-2019", IndicatorID: "ind-lu", Value: 25, Scaler: 7, Status: model.StatusSuccess},
				},
			},
		},
	}
}

func newMaterialRequest() model.InterventionRequest {
	return model.InterventionRequest{
		ScenarioID:    "scn-1",
		Title:         "Switch to linen",
		Type:          model.NewMaterial,
		Percentage:    60,
		StartYear:     2020,
		Filters:       model.Filters{MaterialIDs: []string{"cotton"}},
		NewMaterialID: "linen",
		NewLocation:   &model.LocationDescriptor{Type: model.LocationAggregationPoint, Country: "France", Latitude: f64(48.8), Longitude: f64(2.3)},
	}
}
