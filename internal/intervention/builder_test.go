package intervention

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/impact-cli/internal/impact"
	"github.com/sells-group/impact-cli/internal/location"
	"github.com/sells-group/impact-cli/internal/model"
)

func TestBuild_NewMaterialSixtyPercent(t *testing.T) {
	store := newFakeStore(cottonLocation())
	resolver := &fakeResolver{resolved: location.Resolved{AdminRegionID: "adm-fr", GeoRegionID: "geo-radius"}}
	calc := &perTonne{landUse: 0.01, waterUse: 2}

	iv, err := testBuilder(store, resolver, calc).Build(context.Background(), "", newMaterialRequest())
	require.NoError(t, err)

	assert.Equal(t, "id-1", iv.ID)
	assert.Equal(t, model.InterventionActive, iv.Status)
	assert.Equal(t, "adm-fr", iv.NewAdminRegionID)
	assert.Equal(t, "geo-radius", iv.NewGeoRegionID)

	require.Len(t, iv.ReplacedSourcingLocations, 1)
	c := iv.ReplacedSourcingLocations[0]
	assert.Equal(t, "id-2", c.ID)
	assert.Equal(t, "loc-1", c.ReplacesLocationID)
	assert.Equal(t, "id-1", c.ScenarioInterventionID)
	assert.Equal(t, model.OverlayCanceled, c.InterventionType)
	assert.Equal(t, "cotton", c.MaterialID)

	require.Len(t, c.SourcingRecords, 2)
	in, out := c.SourcingRecords[0], c.SourcingRecords[1]
	assert.Equal(t, 2020, in.Year)
	assert.Equal(t, 400.0, in.Tonnage)
	assert.Equal(t, "id-2", in.SourcingLocationID)
	require.Len(t, in.IndicatorRecords, 1)
	assert.Equal(t, 20.0, in.IndicatorRecords[0].Value)
	assert.Equal(t, 7.0, in.IndicatorRecords[0].Scaler)
	assert.Equal(t, in.ID, in.IndicatorRecords[0].SourcingRecordID)
	assert.NotEqual(t, "ir-1", in.IndicatorRecords[0].ID)
	assert.Equal(t, 2019, out.Year)
	assert.Equal(t, 500.0, out.Tonnage)
	assert.Equal(t, 25.0, out.IndicatorRecords[0].Value)

	require.Len(t, iv.NewSourcingLocations, 1)
	n := iv.NewSourcingLocations[0]
	assert.Equal(t, model.OverlayReplacing, n.InterventionType)
	assert.Equal(t, "loc-1", n.ReplacesLocationID)
	assert.Equal(t, "linen", n.MaterialID)
	assert.Equal(t, "adm-fr", n.AdminRegionID)
	assert.Equal(t, "geo-radius", n.GeoRegionID)
	assert.Equal(t, model.LocationAggregationPoint, n.LocationType)
	assert.Equal(t, "France", n.LocationCountryInput)
	assert.Equal(t, "bu-1", n.BusinessUnitID)
	assert.Equal(t, "sup-1", n.T1SupplierID)

	require.Len(t, n.SourcingRecords, 1)
	rec := n.SourcingRecords[0]
	assert.Equal(t, 2020, rec.Year)
	assert.Equal(t, 600.0, rec.Tonnage)
	assert.Equal(t, 1000.0, in.Tonnage+rec.Tonnage)

	byType := map[model.IndicatorType]model.IndicatorRecord{}
	for _, ir := range rec.IndicatorRecords {
		byType[ir.IndicatorType] = ir
	}
	assert.InDelta(t, 6.0, byType[model.LandUse].Value, 1e-9)
	assert.InDelta(t, 1200.0, byType[model.WaterUse].Value, 1e-9)
	assert.Equal(t, rec.ID, byType[model.LandUse].SourcingRecordID)

	require.Len(t, calc.inputs, 1)
	assert.Equal(t, model.SourcingInput{
		SourcingRecordID: rec.ID, MaterialID: "linen", GeoRegionID: "geo-radius", AdminRegionID: "adm-fr", Tonnage: 600, Year: 2020,
	}, calc.inputs[0])
	assert.Nil(t, calc.coefs[0])

	// actual data is untouched
	orig := store.locations[0]
	assert.Equal(t, 1000.0, orig.SourcingRecords[0].Tonnage)
	assert.Equal(t, 50.0, orig.SourcingRecords[0].IndicatorRecords[0].Value)
	assert.Equal(t, "loc-1", orig.ID)

	assert.Equal(t, []model.Material{{ID: "cotton", Name: "material cotton"}}, iv.ReplacedMaterials)
	assert.Equal(t, []model.AdminRegion{{ID: "adm-in"}}, iv.ReplacedAdminRegions)
	assert.Equal(t, []model.BusinessUnit{{ID: "bu-1"}}, iv.ReplacedBusinessUnits)
	assert.Equal(t, []model.Supplier{{ID: "sup-1"}}, iv.ReplacedSuppliers)
	require.Len(t, resolver.calls, 1)
}

// overlayRows groups an intervention's overlay by material, the way the
// store reports scenario rows once the canceled originals are shadowed.
func overlayRows(iv *model.Intervention) []impact.Row {
	var rows []impact.Row
	locs := append(append([]model.SourcingLocation{}, iv.ReplacedSourcingLocations...), iv.NewSourcingLocations...)
	for _, loc := range locs {
		for _, rec := range loc.SourcingRecords {
			for _, ir := range rec.IndicatorRecords {
				rows = append(rows, impact.Row{
					IndicatorID: ir.IndicatorID,
					Entity:      loc.MaterialID,
					Year:        rec.Year,
					Value:       ir.Value,
					Tonnes:      rec.Tonnage,
					Scenario:    true,
				})
			}
		}
	}
	return rows
}

func TestBuild_ScenarioTableStartingBeforeIntervention(t *testing.T) {
	resolver := &fakeResolver{resolved: location.Resolved{AdminRegionID: "adm-fr", GeoRegionID: "geo-radius"}}
	iv, err := testBuilder(newFakeStore(cottonLocation()), resolver, &perTonne{landUse: 0.01, waterUse: 2}).
		Build(context.Background(), "", newMaterialRequest())
	require.NoError(t, err)

	tbl, err := impact.Build(impact.Request{
		Indicators: []model.Indicator{{ID: "ind-lu"}, {ID: "ind-wu"}},
		StartYear:  2019,
		EndYear:    2021,
		GroupBy:    impact.GroupByMaterial,
		GrowthRate: impact.DefaultGrowthRate,
	}, impact.MergeScenario(overlayRows(iv)))
	require.NoError(t, err)
	require.Len(t, tbl.PerIndicator, 2)

	lu := tbl.PerIndicator[0]
	require.Len(t, lu.Rows, 2)
	cotton, linen := lu.Rows[0], lu.Rows[1]
	assert.Equal(t, "cotton", cotton.Name)
	assert.InDelta(t, 25, cotton.Values[0].Value, 1e-9)
	assert.InDelta(t, 20, cotton.Values[1].Value, 1e-9)
	assert.True(t, cotton.Values[2].IsProjected)

	assert.Equal(t, "linen", linen.Name)
	assert.Equal(t, impact.YearValue{Year: 2019}, linen.Values[0])
	assert.InDelta(t, 6, linen.Values[1].Value, 1e-9)
	assert.False(t, linen.Values[1].IsProjected)
	assert.True(t, linen.Values[2].IsProjected)

	wu := tbl.PerIndicator[1]
	require.Len(t, wu.Rows, 1)
	assert.Equal(t, impact.YearValue{Year: 2019}, wu.Rows[0].Values[0])
	assert.InDelta(t, 1200, wu.Rows[0].Values[1].Value, 1e-9)

	require.Len(t, tbl.PurchasedTonnes, 3)
	assert.InDelta(t, 500, tbl.PurchasedTonnes[0].Value, 1e-9)
	assert.InDelta(t, 1000, tbl.PurchasedTonnes[1].Value, 1e-9)
	assert.InDelta(t, 1015, tbl.PurchasedTonnes[2].Value, 1e-9)
}

func TestBuild_TonnageRatio(t *testing.T) {
	req := newMaterialRequest()
	req.NewMaterialTonnageRatio = 1.5

	iv, err := testBuilder(newFakeStore(cottonLocation()), &fakeResolver{}, &perTonne{}).Build(context.Background(), "", req)
	require.NoError(t, err)
	assert.Equal(t, 900.0, iv.NewSourcingLocations[0].SourcingRecords[0].Tonnage)
}

func TestBuild_FullReplacement(t *testing.T) {
	req := newMaterialRequest()
	req.Percentage = 100

	iv, err := testBuilder(newFakeStore(cottonLocation()), &fakeResolver{}, &perTonne{}).Build(context.Background(), "", req)
	require.NoError(t, err)
	assert.Equal(t, 0.0, iv.ReplacedSourcingLocations[0].SourcingRecords[0].Tonnage)
	assert.Equal(t, 1000.0, iv.NewSourcingLocations[0].SourcingRecords[0].Tonnage)
}

func TestBuild_ClosedYearWindow(t *testing.T) {
	req := newMaterialRequest()
	req.StartYear, req.EndYear = 2019, 2019

	iv, err := testBuilder(newFakeStore(cottonLocation()), &fakeResolver{}, &perTonne{}).Build(context.Background(), "", req)
	require.NoError(t, err)

	recs := iv.ReplacedSourcingLocations[0].SourcingRecords
	assert.Equal(t, 1000.0, recs[0].Tonnage)
	assert.Equal(t, 200.0, recs[1].Tonnage)

	require.Len(t, iv.NewSourcingLocations[0].SourcingRecords, 1)
	assert.Equal(t, 2019, iv.NewSourcingLocations[0].SourcingRecords[0].Year)
	assert.Equal(t, 300.0, iv.NewSourcingLocations[0].SourcingRecords[0].Tonnage)
}

func TestBuild_NoRecordsInWindowSkipsReplacing(t *testing.T) {
	req := newMaterialRequest()
	req.StartYear = 2030

	iv, err := testBuilder(newFakeStore(cottonLocation()), &fakeResolver{}, &perTonne{}).Build(context.Background(), "", req)
	require.NoError(t, err)
	assert.Len(t, iv.ReplacedSourcingLocations, 1)
	assert.Empty(t, iv.NewSourcingLocations)
}

func TestBuild_ChangeProductionEfficiency(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("must not be called")}
	calc := &perTonne{}
	coefs := &model.Coefficients{LandUse: 0.02}
	req := model.InterventionRequest{
		ScenarioID:   "scn-1",
		Type:         model.ChangeProductionEfficiency,
		Percentage:   50,
		StartYear:    2020,
		Filters:      model.Filters{MaterialIDs: []string{"cotton"}},
		Coefficients: coefs,
	}

	iv, err := testBuilder(newFakeStore(cottonLocation()), resolver, calc).Build(context.Background(), "", req)
	require.NoError(t, err)

	assert.Empty(t, resolver.calls)
	n := iv.NewSourcingLocations[0]
	assert.Equal(t, "cotton", n.MaterialID)
	assert.Equal(t, "adm-in", n.AdminRegionID)
	assert.Equal(t, "geo-in", n.GeoRegionID)
	assert.Equal(t, model.LocationCountryOfProduction, n.LocationType)
	assert.Equal(t, 500.0, n.SourcingRecords[0].Tonnage)
	assert.Same(t, coefs, calc.coefs[0])
	assert.Empty(t, iv.NewGeoRegionID)
}

func TestBuild_NewSupplier(t *testing.T) {
	req := newMaterialRequest()
	req.Type = model.NewSupplier
	req.NewMaterialID = ""
	req.NewProducerID = "prod-9"

	iv, err := testBuilder(newFakeStore(cottonLocation()), &fakeResolver{resolved: location.Resolved{GeoRegionID: "geo-new"}}, &perTonne{}).
		Build(context.Background(), "", req)
	require.NoError(t, err)

	n := iv.NewSourcingLocations[0]
	assert.Equal(t, "cotton", n.MaterialID)
	assert.Equal(t, "prod-9", n.ProducerID)
	assert.Empty(t, n.T1SupplierID)
	assert.Equal(t, "geo-new", n.GeoRegionID)
	assert.Equal(t, "bu-1", n.BusinessUnitID)

	require.NotNil(t, iv.NewProducer)
	assert.Equal(t, "prod-9", iv.NewProducer.ID)
	assert.Nil(t, iv.NewT1Supplier)
	assert.Nil(t, iv.NewMaterial)
	assert.Nil(t, iv.NewAdminRegion)
}

func TestResolveNewElements(t *testing.T) {
	store := newFakeStore(cottonLocation())
	resolver := &fakeResolver{resolved: location.Resolved{AdminRegionID: "adm-fr", GeoRegionID: "geo-radius"}}

	iv, err := testBuilder(store, resolver, &perTonne{}).Build(context.Background(), "", newMaterialRequest())
	require.NoError(t, err)

	assert.Equal(t, &model.Material{ID: "linen", Name: "material linen"}, iv.NewMaterial)
	assert.Equal(t, &model.AdminRegion{ID: "adm-fr"}, iv.NewAdminRegion)
	assert.Nil(t, iv.NewT1Supplier)
	assert.Nil(t, iv.NewProducer)
	// one batched call per kind for the replaced elements, one for the new
	assert.Equal(t, [][]string{{"cotton"}, {"linen"}}, store.fetched["materials"])
	assert.Equal(t, [][]string{{"adm-in"}, {"adm-fr"}}, store.fetched["admin_regions"])
	assert.Equal(t, [][]string{{"sup-1"}}, store.fetched["suppliers"])
}

func TestResolveNewElements_NothingReplaced(t *testing.T) {
	store := newFakeStore()
	b := testBuilder(store, &fakeResolver{}, &perTonne{})

	d, err := b.ResolveNewElements(context.Background(), b.NewDraft("", newMaterialRequest()))
	require.NoError(t, err)
	assert.Nil(t, d.NewMaterial)
	assert.Empty(t, store.fetched)
}

// noMaterials knows no material.
type noMaterials struct{ *fakeStore }

func (noMaterials) Materials(context.Context, []string) ([]model.Material, error) { return nil, nil }

func TestResolveNewElements_UnknownMaterial(t *testing.T) {
	b := testBuilder(noMaterials{newFakeStore()}, &fakeResolver{}, &perTonne{})
	d := b.NewDraft("", newMaterialRequest())
	d.Replacing = []model.SourcingLocation{{ID: "new-1", MaterialID: "linen"}}

	_, err := b.ResolveNewElements(context.Background(), d)
	require.ErrorIs(t, err, ErrUnknownElement)
	assert.Contains(t, err.Error(), "linen")
}

func TestGenerateNewLocations_SupplierConflict(t *testing.T) {
	b := testBuilder(newFakeStore(), &fakeResolver{}, &perTonne{})

	for _, req := range []model.InterventionRequest{
		{Type: model.NewSupplier, NewProducerID: "p", NewT1SupplierID: "t"},
		{Type: model.NewSupplier},
	} {
		_, err := b.GenerateNewLocations(context.Background(), b.NewDraft("", req))
		assert.ErrorIs(t, err, ErrSupplierConflict)
	}
}

func TestGenerateNewLocations_GeocodingFailureAborts(t *testing.T) {
	verr := &location.GeocodingValidationError{LocationType: model.LocationAggregationPoint, Reason: "address or coordinates required"}
	b := testBuilder(newFakeStore(), &fakeResolver{err: verr}, &perTonne{})

	_, err := b.GenerateNewLocations(context.Background(), b.NewDraft("", newMaterialRequest()))
	var got *location.GeocodingValidationError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "address or coordinates required", got.Reason)
}

func TestExpandFilters(t *testing.T) {
	store := newFakeStore()
	store.descendants[model.KindMaterial] = map[string][]string{"cotton": {"organic-cotton"}}
	store.descendants[model.KindSupplier] = map[string][]string{"sup-1": {"sup-1a"}}
	b := testBuilder(store, nil, nil)

	req := newMaterialRequest()
	req.Filters.T1SupplierIDs = []string{"sup-1"}

	d, err := b.ExpandFilters(context.Background(), b.NewDraft("", req))
	require.NoError(t, err)
	assert.Equal(t, []string{"cotton", "organic-cotton"}, d.Filters.MaterialIDs)
	assert.Equal(t, []string{"sup-1", "sup-1a"}, d.Filters.T1SupplierIDs)
	assert.Empty(t, d.Filters.AdminRegionIDs)
	assert.Equal(t, []string{"cotton"}, d.Request.Filters.MaterialIDs)
}

func TestExpandFilters_MaterialsRequired(t *testing.T) {
	b := testBuilder(newFakeStore(), nil, nil)
	req := newMaterialRequest()
	req.Filters.MaterialIDs = nil

	_, err := b.ExpandFilters(context.Background(), b.NewDraft("", req))
	assert.ErrorIs(t, err, ErrMaterialsRequired)
}

func TestBuild_EmptySelection(t *testing.T) {
	store := newFakeStore()
	iv, err := testBuilder(store, &fakeResolver{}, &perTonne{}).Build(context.Background(), "", newMaterialRequest())
	require.NoError(t, err)

	assert.Empty(t, iv.ReplacedSourcingLocations)
	assert.Empty(t, iv.NewSourcingLocations)
	assert.Empty(t, iv.ReplacedMaterials)
	assert.Empty(t, store.fetched)
}

func TestBuild_ComputeFailureAborts(t *testing.T) {
	_, err := testBuilder(newFakeStore(cottonLocation()), &fakeResolver{}, &perTonne{failFor: "linen"}).
		Build(context.Background(), "", newMaterialRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data for linen")
}

func TestStagesDoNotModifyTheirInput(t *testing.T) {
	b := testBuilder(newFakeStore(cottonLocation()), &fakeResolver{}, &perTonne{landUse: 1})
	ctx := context.Background()

	d := b.NewDraft("", newMaterialRequest())
	d, err := b.ExpandFilters(ctx, d)
	require.NoError(t, err)
	d, err = b.SelectReplaced(ctx, d)
	require.NoError(t, err)
	generated, err := b.GenerateNewLocations(ctx, d)
	require.NoError(t, err)

	computed, err := b.ComputeImpact(ctx, generated)
	require.NoError(t, err)

	assert.Nil(t, generated.Replacing[0].SourcingRecords[0].IndicatorRecords)
	assert.NotEmpty(t, computed.Replacing[0].SourcingRecords[0].IndicatorRecords)
	assert.Empty(t, d.Replacing)
}

func TestDistinct(t *testing.T) {
	var d distinct
	for _, id := range []string{"a", "", "b", "a"} {
		d.add(id)
	}
	assert.Equal(t, []string{"a", "b"}, d.ids)
}
