package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// InterventionType is the closed set of scenario intervention kinds.
type InterventionType string

const (
	NewMaterial                InterventionType = "NEW_MATERIAL"
	NewSupplier                InterventionType = "NEW_SUPPLIER"
	ChangeProductionEfficiency InterventionType = "CHANGE_PRODUCTION_EFFICIENCY"
)

// Valid reports whether t is a known intervention type.
func (t InterventionType) Valid() bool {
	switch t {
	case NewMaterial, NewSupplier, ChangeProductionEfficiency:
		return true
	}
	return false
}

// NeedsGeocoding reports whether interventions of type t relocate volume and
// therefore need a resolved new location.
func (t InterventionType) NeedsGeocoding() bool {
	return t == NewMaterial || t == NewSupplier
}

// InterventionStatus toggles whether an intervention takes part in its
// scenario's impact.
type InterventionStatus string

const (
	InterventionActive   InterventionStatus = "active"
	InterventionInactive InterventionStatus = "inactive"
)

// Scenario is a named set of interventions.
type Scenario struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Filters select the actual sourcing locations an intervention applies to.
// Empty optional lists mean "all".
type Filters struct {
	MaterialIDs     []string `json:"material_ids" yaml:"material_ids"`
	BusinessUnitIDs []string `json:"business_unit_ids,omitempty" yaml:"business_unit_ids,omitempty"`
	T1SupplierIDs   []string `json:"t1_supplier_ids,omitempty" yaml:"t1_supplier_ids,omitempty"`
	ProducerIDs     []string `json:"producer_ids,omitempty" yaml:"producer_ids,omitempty"`
	AdminRegionIDs  []string `json:"admin_region_ids,omitempty" yaml:"admin_region_ids,omitempty"`
}

// LocationDescriptor is the free-form location input of an intervention.
type LocationDescriptor struct {
	Type             LocationType `json:"type" yaml:"type"`
	Country          string       `json:"country,omitempty" yaml:"country,omitempty"`
	AdminRegionInput string       `json:"admin_region,omitempty" yaml:"admin_region,omitempty"`
	Address          string       `json:"address,omitempty" yaml:"address,omitempty"`
	Latitude         *float64     `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude        *float64     `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// InterventionRequest is the user's definition of an intervention.
type InterventionRequest struct {
	ScenarioID              string              `json:"scenario_id" yaml:"scenario_id"`
	Title                   string              `json:"title" yaml:"title"`
	Description             string              `json:"description,omitempty" yaml:"description,omitempty"`
	Type                    InterventionType    `json:"type" yaml:"type"`
	Percentage              float64             `json:"percentage" yaml:"percentage"`
	StartYear               int                 `json:"start_year" yaml:"start_year"`
	EndYear                 int                 `json:"end_year,omitempty" yaml:"end_year,omitempty"`
	Filters                 Filters             `json:"filters" yaml:"filters"`
	Coefficients            *Coefficients       `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	NewMaterialID           string              `json:"new_material_id,omitempty" yaml:"new_material_id,omitempty"`
	NewMaterialTonnageRatio float64             `json:"new_material_tonnage_ratio,omitempty" yaml:"new_material_tonnage_ratio,omitempty"`
	NewT1SupplierID         string              `json:"new_t1_supplier_id,omitempty" yaml:"new_t1_supplier_id,omitempty"`
	NewProducerID           string              `json:"new_producer_id,omitempty" yaml:"new_producer_id,omitempty"`
	NewLocation             *LocationDescriptor `json:"new_location,omitempty" yaml:"new_location,omitempty"`
}

// Validate checks the request shape independently of any stored data.
func (r InterventionRequest) Validate() error {
	if r.ScenarioID == "" {
		return eris.New("model: intervention scenario id is required")
	}
	if !r.Type.Valid() {
		return eris.Errorf("model: unknown intervention type %q", r.Type)
	}
	if r.Percentage < 0 || r.Percentage > 100 {
		return eris.Errorf("model: percentage %v out of range [0, 100]", r.Percentage)
	}
	if r.StartYear <= 0 {
		return eris.New("model: intervention start year is required")
	}
	if r.EndYear != 0 && r.EndYear < r.StartYear {
		return eris.Errorf("model: end year %d before start year %d", r.EndYear, r.StartYear)
	}
	if r.NewMaterialTonnageRatio < 0 {
		return eris.New("model: new material tonnage ratio must not be negative")
	}
	switch r.Type {
	case NewMaterial:
		if r.NewMaterialID == "" {
			return eris.New("model: new material id is required for NEW_MATERIAL")
		}
	case NewSupplier:
		if (r.NewProducerID == "") == (r.NewT1SupplierID == "") {
			return eris.New("model: exactly one of new producer or new t1 supplier is required for NEW_SUPPLIER")
		}
	}
	if r.Type.NeedsGeocoding() && r.NewLocation == nil {
		return eris.Errorf("model: new location is required for %s", r.Type)
	}
	return nil
}

// InYears reports whether year falls in the request's [StartYear, EndYear]
// window. A zero EndYear leaves the window open.
func (r InterventionRequest) InYears(year int) bool {
	return year >= r.StartYear && (r.EndYear == 0 || year <= r.EndYear)
}

// Intervention is a committed scenario intervention with its overlay.
type Intervention struct {
	ID                  string             `json:"id" yaml:"id"`
	Status              InterventionStatus `json:"status" yaml:"status"`
	InterventionRequest `yaml:",inline"`

	NewAdminRegionID string `json:"new_admin_region_id,omitempty" yaml:"new_admin_region_id,omitempty"`
	NewGeoRegionID   string `json:"new_geo_region_id,omitempty" yaml:"new_geo_region_id,omitempty"`
	LocationWarning  string `json:"location_warning,omitempty" yaml:"location_warning,omitempty"`

	ReplacedMaterials     []Material     `json:"replaced_materials,omitempty" yaml:"replaced_materials,omitempty"`
	ReplacedAdminRegions  []AdminRegion  `json:"replaced_admin_regions,omitempty" yaml:"replaced_admin_regions,omitempty"`
	ReplacedBusinessUnits []BusinessUnit `json:"replaced_business_units,omitempty" yaml:"replaced_business_units,omitempty"`
	ReplacedSuppliers     []Supplier     `json:"replaced_suppliers,omitempty" yaml:"replaced_suppliers,omitempty"`

	ReplacedSourcingLocations []SourcingLocation `json:"replaced_sourcing_locations,omitempty" yaml:"replaced_sourcing_locations,omitempty"`
	NewSourcingLocations      []SourcingLocation `json:"new_sourcing_locations,omitempty" yaml:"new_sourcing_locations,omitempty"`

	NewMaterial    *Material    `json:"new_material,omitempty" yaml:"new_material,omitempty"`
	NewAdminRegion *AdminRegion `json:"new_admin_region,omitempty" yaml:"new_admin_region,omitempty"`
	NewT1Supplier  *Supplier    `json:"new_t1_supplier,omitempty" yaml:"new_t1_supplier,omitempty"`
	NewProducer    *Supplier    `json:"new_producer,omitempty" yaml:"new_producer,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
