// Package intervention builds scenario interventions: the overlay of
// CANCELED and REPLACING sourcing locations that a what-if change to the
// supply chain amounts to.
package intervention

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/impact-cli/internal/indicator"
	"github.com/sells-group/impact-cli/internal/location"
	"github.com/sells-group/impact-cli/internal/model"
	"github.com/sells-group/impact-cli/internal/tree"
)

// Draft is the state threaded through the builder stages. Stages never
// modify the Draft they are given.
type Draft struct {
	ID      string
	Request model.InterventionRequest

	// Filters are the request filters with tree descendants expanded.
	Filters model.Filters

	// Originals are the actual locations the intervention applies to.
	Originals []model.SourcingLocation
	// Canceled are their CANCELED overlay copies.
	Canceled []model.SourcingLocation

	Materials     []model.Material
	AdminRegions  []model.AdminRegion
	BusinessUnits []model.BusinessUnit
	Suppliers     []model.Supplier

	Location  location.Resolved
	Replacing []model.SourcingLocation

	// The entities the replacing locations move to.
	NewMaterial    *model.Material
	NewAdminRegion *model.AdminRegion
	NewT1Supplier  *model.Supplier
	NewProducer    *model.Supplier
}

// Builder runs the stages that turn a request into an intervention.
type Builder struct {
	store       Store
	resolver    location.Resolver
	calc        indicator.Computer
	concurrency int

	newID func() string
	now   func() time.Time
	log   *zap.Logger
}

// NewBuilder creates a Builder. A non-positive concurrency uses 8.
func NewBuilder(store Store, resolver location.Resolver, calc indicator.Computer, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Builder{
		store:       store,
		resolver:    resolver,
		calc:        calc,
		concurrency: concurrency,
		newID:       uuid.NewString,
		now:         time.Now,
		log:         zap.L().With(zap.String("component", "intervention")),
	}
}

// NewDraft starts a draft for req. An empty id gets a fresh one.
func (b *Builder) NewDraft(id string, req model.InterventionRequest) Draft {
	if id == "" {
		id = b.newID()
	}
	return Draft{ID: id, Request: req}
}

// Build runs every stage and returns the finished intervention.
func (b *Builder) Build(ctx context.Context, id string, req model.InterventionRequest) (*model.Intervention, error) {
	d := b.NewDraft(id, req)
	stages := []func(context.Context, Draft) (Draft, error){
		b.ExpandFilters,
		b.SelectReplaced,
		b.ResolveReplacedElements,
		b.GenerateNewLocations,
		b.ResolveNewElements,
		b.ComputeImpact,
	}
	for _, stage := range stages {
		var err error
		if d, err = stage(ctx, d); err != nil {
			return nil, err
		}
	}
	return b.Finalize(d), nil
}

// ExpandFilters requires at least one material and widens the tree-shaped
// filters to their descendants.
func (b *Builder) ExpandFilters(ctx context.Context, d Draft) (Draft, error) {
	f := d.Request.Filters
	if len(f.MaterialIDs) == 0 {
		return d, ErrMaterialsRequired
	}

	expand := []struct {
		kind model.EntityKind
		ids  *[]string
	}{
		{model.KindMaterial, &f.MaterialIDs},
		{model.KindAdminRegion, &f.AdminRegionIDs},
		{model.KindBusinessUnit, &f.BusinessUnitIDs},
		{model.KindSupplier, &f.T1SupplierIDs},
		{model.KindSupplier, &f.ProducerIDs},
	}
	for _, e := range expand {
		ids, err := tree.Descendants(ctx, b.store, e.kind, *e.ids)
		if err != nil {
			return d, eris.Wrap(err, "intervention: expand filters")
		}
		*e.ids = ids
	}

	d.Filters = f
	return d, nil
}

// SelectReplaced loads the matching actual locations and derives their
// CANCELED copies. Records inside the intervention years keep 1 - p/100 of
// their tonnage and indicator values; other records are copied as they are.
func (b *Builder) SelectReplaced(ctx context.Context, d Draft) (Draft, error) {
	locs, err := b.store.ActualLocations(ctx, d.Filters)
	if err != nil {
		return d, eris.Wrap(err, "intervention: select replaced locations")
	}

	keep := decimal.NewFromInt(1).Sub(share(d.Request.Percentage))
	canceled := make([]model.SourcingLocation, 0, len(locs))
	for _, loc := range locs {
		c := b.overlay(loc, d.ID, model.OverlayCanceled)
		c.SourcingRecords = make([]model.SourcingRecord, 0, len(loc.SourcingRecords))
		for _, rec := range loc.SourcingRecords {
			factor := decimal.NewFromInt(1)
			if d.Request.InYears(rec.Year) {
				factor = keep
			}
			c.SourcingRecords = append(c.SourcingRecords, b.scaleRecord(rec, c.ID, factor, true))
		}
		canceled = append(canceled, c)
	}

	b.log.Debug("selected replaced locations",
		zap.String("intervention_id", d.ID),
		zap.Int("locations", len(locs)),
	)
	d.Originals = locs
	d.Canceled = canceled
	return d, nil
}

// ResolveReplacedElements fetches the distinct entities the replaced
// locations refer to, one call per kind.
func (b *Builder) ResolveReplacedElements(ctx context.Context, d Draft) (Draft, error) {
	var materials, regions, units, suppliers distinct
	for _, loc := range d.Originals {
		materials.add(loc.MaterialID)
		regions.add(loc.AdminRegionID)
		units.add(loc.BusinessUnitID)
		suppliers.add(loc.ProducerID)
		suppliers.add(loc.T1SupplierID)
	}

	var err error
	if d.Materials, err = fetch(ctx, materials, b.store.Materials); err != nil {
		return d, eris.Wrap(err, "intervention: replaced materials")
	}
	if d.AdminRegions, err = fetch(ctx, regions, b.store.AdminRegions); err != nil {
		return d, eris.Wrap(err, "intervention: replaced admin regions")
	}
	if d.BusinessUnits, err = fetch(ctx, units, b.store.BusinessUnits); err != nil {
		return d, eris.Wrap(err, "intervention: replaced business units")
	}
	if d.Suppliers, err = fetch(ctx, suppliers, b.store.Suppliers); err != nil {
		return d, eris.Wrap(err, "intervention: replaced suppliers")
	}
	return d, nil
}

// GenerateNewLocations creates one REPLACING location per replaced location
// that has records inside the intervention years. Their tonnage is the
// replaced share of the original, times the tonnage ratio for NEW_MATERIAL.
func (b *Builder) GenerateNewLocations(ctx context.Context, d Draft) (Draft, error) {
	req := d.Request
	if req.Type == model.NewSupplier && (req.NewProducerID == "") == (req.NewT1SupplierID == "") {
		return d, ErrSupplierConflict
	}

	if req.Type.NeedsGeocoding() {
		if req.NewLocation == nil {
			return d, &location.GeocodingValidationError{LocationType: model.LocationUnknown, Reason: "new location required"}
		}
		resolved, err := b.resolver.Resolve(ctx, *req.NewLocation)
		if err != nil {
			return d, eris.Wrap(err, "intervention: resolve new location")
		}
		d.Location = resolved
	}

	factor := share(req.Percentage)
	if req.Type == model.NewMaterial {
		ratio := decimal.NewFromInt(1)
		if req.NewMaterialTonnageRatio > 0 {
			ratio = decimal.NewFromFloat(req.NewMaterialTonnageRatio)
		}
		factor = factor.Mul(ratio)
	}

	replacing := make([]model.SourcingLocation, 0, len(d.Originals))
	for _, orig := range d.Originals {
		n := b.overlay(orig, d.ID, model.OverlayReplacing)
		switch req.Type {
		case model.NewMaterial:
			n.MaterialID = req.NewMaterialID
			relocate(&n, *req.NewLocation, d.Location)
		case model.NewSupplier:
			n.ProducerID = req.NewProducerID
			n.T1SupplierID = req.NewT1SupplierID
			relocate(&n, *req.NewLocation, d.Location)
		}

		n.SourcingRecords = nil
		for _, rec := range orig.SourcingRecords {
			if !req.InYears(rec.Year) {
				continue
			}
			n.SourcingRecords = append(n.SourcingRecords, b.scaleRecord(rec, n.ID, factor, false))
		}
		if len(n.SourcingRecords) == 0 {
			continue
		}
		replacing = append(replacing, n)
	}

	d.Replacing = replacing
	return d, nil
}

// ResolveNewElements loads the material, admin region and supplier the
// replacing locations move to. Nothing is loaded when no location is
// replaced.
func (b *Builder) ResolveNewElements(ctx context.Context, d Draft) (Draft, error) {
	if len(d.Replacing) == 0 {
		return d, nil
	}
	req := d.Request

	var err error
	if d.NewMaterial, err = fetchOne(ctx, req.NewMaterialID, b.store.Materials); err != nil {
		return d, eris.Wrap(err, "intervention: new material")
	}
	if d.NewAdminRegion, err = fetchOne(ctx, d.Location.AdminRegionID, b.store.AdminRegions); err != nil {
		return d, eris.Wrap(err, "intervention: new admin region")
	}

	var ids distinct
	ids.add(req.NewT1SupplierID)
	ids.add(req.NewProducerID)
	suppliers, err := fetch(ctx, ids, b.store.Suppliers)
	if err != nil {
		return d, eris.Wrap(err, "intervention: new suppliers")
	}
	d.NewT1Supplier, d.NewProducer = nil, nil
	for _, sp := range suppliers {
		switch sp.ID {
		case req.NewT1SupplierID:
			d.NewT1Supplier = &sp
		case req.NewProducerID:
			d.NewProducer = &sp
		}
	}
	if req.NewT1SupplierID != "" && d.NewT1Supplier == nil {
		return d, eris.Wrapf(ErrUnknownElement, "intervention: new t1 supplier %s", req.NewT1SupplierID)
	}
	if req.NewProducerID != "" && d.NewProducer == nil {
		return d, eris.Wrapf(ErrUnknownElement, "intervention: new producer %s", req.NewProducerID)
	}
	return d, nil
}

// ComputeImpact computes the indicator records of every replacing record,
// with the request coefficients when given and from spatial data otherwise.
func (b *Builder) ComputeImpact(ctx context.Context, d Draft) (Draft, error) {
	indicators, err := b.store.Indicators(ctx, nil)
	if err != nil {
		return d, eris.Wrap(err, "intervention: load indicators")
	}

	out := make([]model.SourcingLocation, len(d.Replacing))
	for i, loc := range d.Replacing {
		loc.SourcingRecords = append([]model.SourcingRecord(nil), loc.SourcingRecords...)
		out[i] = loc
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range out {
		loc := &out[i]
		for j := range loc.SourcingRecords {
			rec := &loc.SourcingRecords[j]
			g.Go(func() error {
				v, err := b.calc.Compute(gctx, model.SourcingInput{
					SourcingRecordID: rec.ID,
					MaterialID:       loc.MaterialID,
					GeoRegionID:      loc.GeoRegionID,
					AdminRegionID:    loc.AdminRegionID,
					Tonnage:          rec.Tonnage,
					Year:             rec.Year,
				}, d.Request.Coefficients)
				if err != nil {
					return eris.Wrapf(err, "intervention: impact of %s %d", loc.MaterialID, rec.Year)
				}
				rec.IndicatorRecords = v.Records(rec.ID, indicators)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return d, err
	}

	d.Replacing = out
	return d, nil
}

// Finalize assembles the intervention. New interventions start active.
func (b *Builder) Finalize(d Draft) *model.Intervention {
	return &model.Intervention{
		ID:                        d.ID,
		Status:                    model.InterventionActive,
		InterventionRequest:       d.Request,
		NewAdminRegionID:          d.Location.AdminRegionID,
		NewGeoRegionID:            d.Location.GeoRegionID,
		LocationWarning:           d.Location.Warning,
		ReplacedMaterials:         d.Materials,
		ReplacedAdminRegions:      d.AdminRegions,
		ReplacedBusinessUnits:     d.BusinessUnits,
		ReplacedSuppliers:         d.Suppliers,
		ReplacedSourcingLocations: d.Canceled,
		NewSourcingLocations:      d.Replacing,
		NewMaterial:               d.NewMaterial,
		NewAdminRegion:            d.NewAdminRegion,
		NewT1Supplier:             d.NewT1Supplier,
		NewProducer:               d.NewProducer,
		CreatedAt:                 b.now(),
	}
}

// overlay copies loc as an overlay location of the given kind. Records are
// left to the caller.
func (b *Builder) overlay(loc model.SourcingLocation, interventionID string, kind model.InterventionLocationType) model.SourcingLocation {
	loc.ReplacesLocationID = loc.ID
	loc.ID = b.newID()
	loc.ScenarioInterventionID = interventionID
	loc.InterventionType = kind
	return loc
}

// scaleRecord copies rec under locationID with its tonnage times factor.
// Indicator records are scaled along when withIndicators is set and dropped
// otherwise.
func (b *Builder) scaleRecord(rec model.SourcingRecord, locationID string, factor decimal.Decimal, withIndicators bool) model.SourcingRecord {
	out := model.SourcingRecord{
		ID:                 b.newID(),
		SourcingLocationID: locationID,
		Year:               rec.Year,
		Tonnage:            scale(rec.Tonnage, factor),
	}
	if !withIndicators {
		return out
	}
	out.IndicatorRecords = make([]model.IndicatorRecord, len(rec.IndicatorRecords))
	for i, ir := range rec.IndicatorRecords {
		ir.ID = b.newID()
		ir.SourcingRecordID = out.ID
		ir.Value = scale(ir.Value, factor)
		out.IndicatorRecords[i] = ir
	}
	return out
}

// relocate moves n to the resolved new location.
func relocate(n *model.SourcingLocation, d model.LocationDescriptor, r location.Resolved) {
	n.AdminRegionID = r.AdminRegionID
	n.GeoRegionID = r.GeoRegionID
	n.LocationType = d.Type
	n.LocationCountryInput = d.Country
	n.LocationAddressInput = d.Address
	n.Latitude = d.Latitude
	n.Longitude = d.Longitude
}

// share is p percent as an exact fraction.
func share(p float64) decimal.Decimal {
	return decimal.NewFromFloat(p).Div(decimal.NewFromInt(100))
}

func scale(v float64, factor decimal.Decimal) float64 {
	return decimal.NewFromFloat(v).Mul(factor).InexactFloat64()
}

// distinct collects non-empty ids in first-seen order.
type distinct struct {
	ids  []string
	seen map[string]bool
}

func (d *distinct) add(id string) {
	if id == "" || d.seen[id] {
		return
	}
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	d.seen[id] = true
	d.ids = append(d.ids, id)
}

// fetchOne loads a single entity by id. An empty id loads nothing.
func fetchOne[T any](ctx context.Context, id string, get func(context.Context, []string) ([]T, error)) (*T, error) {
	if id == "" {
		return nil, nil
	}
	found, err := get(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, eris.Wrapf(ErrUnknownElement, "id %s", id)
	}
	return &found[0], nil
}

func fetch[T any](ctx context.Context, ids distinct, get func(context.Context, []string) ([]T, error)) ([]T, error) {
	if len(ids.ids) == 0 {
		return nil, nil
	}
	return get(ctx, ids.ids)
}
