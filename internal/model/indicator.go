package model

import "github.com/rotisserie/eris"

// IndicatorType is the closed set of impact indicators.
type IndicatorType string

const (
	LandUse               IndicatorType = "LAND_USE"
	DeforestationRisk     IndicatorType = "DEFORESTATION_RISK"
	ClimateRisk           IndicatorType = "CLIMATE_RISK"
	WaterUse              IndicatorType = "WATER_USE"
	UnsustainableWaterUse IndicatorType = "UNSUSTAINABLE_WATER_USE"
)

// IndicatorTypes lists every indicator in calculation order. WATER_USE comes
// before UNSUSTAINABLE_WATER_USE because the latter depends on it.
var IndicatorTypes = []IndicatorType{
	LandUse,
	DeforestationRisk,
	ClimateRisk,
	WaterUse,
	UnsustainableWaterUse,
}

// Valid reports whether t is one of the known indicator types.
func (t IndicatorType) Valid() bool {
	switch t {
	case LandUse, DeforestationRisk, ClimateRisk, WaterUse, UnsustainableWaterUse:
		return true
	}
	return false
}

// ParseIndicatorType converts a name code into an IndicatorType.
func ParseIndicatorType(s string) (IndicatorType, error) {
	t := IndicatorType(s)
	if !t.Valid() {
		return "", eris.Errorf("model: unknown indicator type %q", s)
	}
	return t, nil
}

// Indicator is immutable reference data describing one impact metric.
type Indicator struct {
	ID       string        `json:"id" yaml:"id"`
	NameCode IndicatorType `json:"name_code" yaml:"name_code"`
	Name     string        `json:"name" yaml:"name"`
	Unit     string        `json:"unit" yaml:"unit"`
}

// PerIndicator carries exactly one value per indicator type.
type PerIndicator struct {
	LandUse               float64 `json:"LAND_USE" yaml:"LAND_USE"`
	DeforestationRisk     float64 `json:"DEFORESTATION_RISK" yaml:"DEFORESTATION_RISK"`
	ClimateRisk           float64 `json:"CLIMATE_RISK" yaml:"CLIMATE_RISK"`
	WaterUse              float64 `json:"WATER_USE" yaml:"WATER_USE"`
	UnsustainableWaterUse float64 `json:"UNSUSTAINABLE_WATER_USE" yaml:"UNSUSTAINABLE_WATER_USE"`
}

// Coefficients are user-supplied per-tonne impact factors for an intervention.
type Coefficients = PerIndicator

// Get returns the value held for t. Unknown types return 0.
func (p PerIndicator) Get(t IndicatorType) float64 {
	switch t {
	case LandUse:
		return p.LandUse
	case DeforestationRisk:
		return p.DeforestationRisk
	case ClimateRisk:
		return p.ClimateRisk
	case WaterUse:
		return p.WaterUse
	case UnsustainableWaterUse:
		return p.UnsustainableWaterUse
	}
	return 0
}

// With returns a copy of p with t set to v.
func (p PerIndicator) With(t IndicatorType, v float64) PerIndicator {
	switch t {
	case LandUse:
		p.LandUse = v
	case DeforestationRisk:
		p.DeforestationRisk = v
	case ClimateRisk:
		p.ClimateRisk = v
	case WaterUse:
		p.WaterUse = v
	case UnsustainableWaterUse:
		p.UnsustainableWaterUse = v
	}
	return p
}
