// Package indicator computes per-indicator impact values for sourcing volumes,
// either from the H3 reference layers or from user-supplied coefficients.
package indicator

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/impact-cli/internal/config"
	"github.com/sells-group/impact-cli/internal/model"
	"github.com/sells-group/impact-cli/internal/spatial"
)

// References are the indicator reference layers the raw path aggregates the
// material's harvest layer against.
type References struct {
	Cropland             spatial.Column
	Deforestation        spatial.Column
	Carbon               spatial.Column
	WaterStress          spatial.Column
	WaterStressThreshold float64
}

// ReferencesFromConfig maps the spatial configuration onto References.
func ReferencesFromConfig(cfg config.SpatialConfig) References {
	col := func(l config.LayerConfig) spatial.Column {
		return spatial.Column{Table: l.Table, Column: l.Column}
	}
	return References{
		Cropland:             col(cfg.Cropland),
		Deforestation:        col(cfg.Deforestation),
		Carbon:               col(cfg.Carbon),
		WaterStress:          col(cfg.WaterStress),
		WaterStressThreshold: cfg.WaterStressThreshold,
	}
}

// Values is the outcome of one computation: a value per indicator plus the
// data needed to persist it.
type Values struct {
	model.PerIndicator

	// Scaler is the production the values were derived from (tonnage on the
	// coefficient path).
	Scaler           float64
	MaterialH3DataID string
}

// Records turns v into one SUCCESS record per indicator. Indicators outside the
// closed set are ignored.
func (v Values) Records(sourcingRecordID string, indicators []model.Indicator) []model.IndicatorRecord {
	out := make([]model.IndicatorRecord, 0, len(indicators))
	for _, ind := range indicators {
		if !ind.NameCode.Valid() {
			continue
		}
		out = append(out, model.IndicatorRecord{
			ID:               uuid.NewString(),
			SourcingRecordID: sourcingRecordID,
			IndicatorID:      ind.ID,
			IndicatorType:    ind.NameCode,
			Value:            v.Get(ind.NameCode),
			Scaler:           v.Scaler,
			Status:           model.StatusSuccess,
			MaterialH3DataID: v.MaterialH3DataID,
		})
	}
	return out
}

// raw holds the tonnage-independent aggregates of one
// (material, geo region, admin region) triple.
type raw struct {
	production         float64
	harvestedArea      float64
	weightedAllHarvest float64
	rawDeforestation   float64
	rawCarbon          float64
	waterStressPerct   float64
	rawWater           float64
	harvestLayerID     string
}

type rawKey struct {
	materialID    string
	geoRegionID   string
	adminRegionID string
}

// Calculator computes indicator values. It is safe for concurrent use; raw
// aggregates are memoized for the lifetime of the Calculator.
type Calculator struct {
	gateway spatial.Gateway
	refs    References

	memo sync.Map // rawKey -> raw
}

// NewCalculator creates a Calculator over gateway.
func NewCalculator(gateway spatial.Gateway, refs References) *Calculator {
	return &Calculator{gateway: gateway, refs: refs}
}

// Compute returns the indicator values of in. A nil coefs selects the raw-data
// path. Missing reference data surfaces as *spatial.MissingSpatialDataError.
func (c *Calculator) Compute(ctx context.Context, in model.SourcingInput, coefs *model.Coefficients) (Values, error) {
	if coefs != nil {
		return FromCoefficients(*coefs, in.Tonnage), nil
	}

	r, err := c.raw(ctx, in)
	if err != nil {
		return Values{}, err
	}
	return Values{
		PerIndicator:     r.apply(in.Tonnage),
		Scaler:           r.production,
		MaterialH3DataID: r.harvestLayerID,
	}, nil
}

// FromCoefficients applies per-tonne coefficients. UNSUSTAINABLE_WATER_USE is
// scaled by the already computed WATER_USE.
func FromCoefficients(coefs model.Coefficients, tonnage float64) Values {
	var p model.PerIndicator
	for _, t := range model.IndicatorTypes {
		v := coefs.Get(t) * tonnage
		if t == model.UnsustainableWaterUse {
			v *= p.WaterUse
		}
		p = p.With(t, finite(v))
	}
	return Values{PerIndicator: p, Scaler: tonnage}
}

func (r raw) apply(tonnage float64) model.PerIndicator {
	landPerTon := safeDiv(r.harvestedArea, r.production)
	weightedTotalCropLandArea := safeDiv(r.weightedAllHarvest, r.production)

	var deforestationPerHarvestLandUse, carbonPerHarvestLandUse float64
	if weightedTotalCropLandArea > 0 {
		deforestationPerHarvestLandUse = safeDiv(r.rawDeforestation, weightedTotalCropLandArea)
		carbonPerHarvestLandUse = safeDiv(r.rawCarbon, weightedTotalCropLandArea)
	}

	landUse := finite(landPerTon * tonnage)
	waterUse := finite(r.rawWater * tonnage)

	return model.PerIndicator{
		LandUse:               landUse,
		DeforestationRisk:     finite(deforestationPerHarvestLandUse * landUse),
		ClimateRisk:           finite(carbonPerHarvestLandUse * landUse),
		WaterUse:              waterUse,
		UnsustainableWaterUse: finite(waterUse * r.waterStressPerct),
	}
}

func (c *Calculator) raw(ctx context.Context, in model.SourcingInput) (raw, error) {
	key := rawKey{materialID: in.MaterialID, geoRegionID: in.GeoRegionID, adminRegionID: in.AdminRegionID}
	if v, ok := c.memo.Load(key); ok {
		return v.(raw), nil
	}

	r, err := c.fetch(ctx, in)
	if err != nil {
		return raw{}, err
	}
	c.memo.Store(key, r)
	return r, nil
}

func (c *Calculator) fetch(ctx context.Context, in model.SourcingInput) (raw, error) {
	producer, err := c.gateway.MaterialPhysicalLayer(ctx, in.MaterialID, spatial.LayerProducer)
	if err != nil {
		return raw{}, err
	}
	harvest, err := c.gateway.MaterialPhysicalLayer(ctx, in.MaterialID, spatial.LayerHarvest)
	if err != nil {
		return raw{}, err
	}

	var (
		r   = raw{harvestLayerID: harvest.ID}
		geo = in.GeoRegionID
		res = harvest.Resolution
		h   = harvest.Column
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.production, err = c.gateway.SumOverRegion(gctx, geo, res, producer.Column)
		return err
	})
	g.Go(func() (err error) {
		r.harvestedArea, err = c.gateway.SumOverRegion(gctx, geo, res, h)
		return err
	})
	g.Go(func() (err error) {
		r.weightedAllHarvest, err = c.gateway.SumProductOverRegion(gctx, geo, res, h, c.refs.Cropland)
		return err
	})
	g.Go(func() (err error) {
		r.rawDeforestation, err = c.gateway.SumProductOverRegion(gctx, geo, res, h, c.refs.Deforestation)
		return err
	})
	g.Go(func() (err error) {
		r.rawCarbon, err = c.gateway.SumTripleProductOverRegion(gctx, geo, res, h, c.refs.Deforestation, c.refs.Carbon)
		return err
	})
	g.Go(func() (err error) {
		r.waterStressPerct, err = c.gateway.ShareAboveThreshold(gctx, geo, res, c.refs.WaterStress, c.refs.WaterStressThreshold)
		return err
	})
	g.Go(func() (err error) {
		r.rawWater, err = c.gateway.IndicatorCoefficient(gctx, in.AdminRegionID, in.MaterialID, model.WaterUse)
		return err
	})
	if err := g.Wait(); err != nil {
		return raw{}, eris.Wrapf(err, "indicator: raw values for material %s", in.MaterialID)
	}
	return r, nil
}

// safeDiv divides and coerces a non-finite quotient to 0.
func safeDiv(a, b float64) float64 {
	return finite(a / b)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
