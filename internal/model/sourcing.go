package model

// LocationType is the closed set of sourcing location kinds.
type LocationType string

const (
	LocationUnknown                 LocationType = "unknown"
	LocationAggregationPoint        LocationType = "production-aggregation-point"
	LocationPointOfProduction       LocationType = "point-of-production"
	LocationCountryOfProduction     LocationType = "country-of-production"
	LocationAdminRegionOfProduction LocationType = "administrative-region-of-production"
	LocationCountryOfDelivery       LocationType = "country-of-delivery"
	LocationEUDR                    LocationType = "eudr"
)

// LocationTypes lists every supported location type.
var LocationTypes = []LocationType{
	LocationUnknown,
	LocationAggregationPoint,
	LocationPointOfProduction,
	LocationCountryOfProduction,
	LocationAdminRegionOfProduction,
	LocationCountryOfDelivery,
	LocationEUDR,
}

// Valid reports whether t is a known location type.
func (t LocationType) Valid() bool {
	for _, lt := range LocationTypes {
		if t == lt {
			return true
		}
	}
	return false
}

// InterventionLocationType marks a sourcing location as part of an
// intervention overlay. Actual data carries the empty value.
type InterventionLocationType string

const (
	OverlayNone      InterventionLocationType = ""
	OverlayCanceled  InterventionLocationType = "CANCELED"
	OverlayReplacing InterventionLocationType = "REPLACING"
)

// RecordStatus is the outcome of computing an indicator record.
type RecordStatus string

const (
	StatusSuccess RecordStatus = "SUCCESS"
	StatusError   RecordStatus = "ERROR"
)

// SourcingLocation describes where and how a material is sourced.
type SourcingLocation struct {
	ID                   string       `json:"id" yaml:"id"`
	MaterialID           string       `json:"material_id" yaml:"material_id"`
	AdminRegionID        string       `json:"admin_region_id,omitempty" yaml:"admin_region_id,omitempty"`
	GeoRegionID          string       `json:"geo_region_id,omitempty" yaml:"geo_region_id,omitempty"`
	BusinessUnitID       string       `json:"business_unit_id,omitempty" yaml:"business_unit_id,omitempty"`
	ProducerID           string       `json:"producer_id,omitempty" yaml:"producer_id,omitempty"`
	T1SupplierID         string       `json:"t1_supplier_id,omitempty" yaml:"t1_supplier_id,omitempty"`
	LocationType         LocationType `json:"location_type" yaml:"location_type"`
	LocationCountryInput string       `json:"location_country_input,omitempty" yaml:"location_country_input,omitempty"`
	LocationAddressInput string       `json:"location_address_input,omitempty" yaml:"location_address_input,omitempty"`
	Latitude             *float64     `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude            *float64     `json:"longitude,omitempty" yaml:"longitude,omitempty"`

	ScenarioInterventionID string                   `json:"scenario_intervention_id,omitempty" yaml:"scenario_intervention_id,omitempty"`
	InterventionType       InterventionLocationType `json:"intervention_type,omitempty" yaml:"intervention_type,omitempty"`
	ReplacesLocationID     string                   `json:"replaces_location_id,omitempty" yaml:"replaces_location_id,omitempty"`

	SourcingRecords []SourcingRecord `json:"sourcing_records,omitempty" yaml:"sourcing_records,omitempty"`
}

// SupplierID returns the producer if set, else the tier-1 supplier.
func (l SourcingLocation) SupplierID() string {
	if l.ProducerID != "" {
		return l.ProducerID
	}
	return l.T1SupplierID
}

// SourcingRecord is the tonnage purchased at a location in one year.
type SourcingRecord struct {
	ID                 string            `json:"id" yaml:"id"`
	SourcingLocationID string            `json:"sourcing_location_id" yaml:"sourcing_location_id"`
	Year               int               `json:"year" yaml:"year"`
	Tonnage            float64           `json:"tonnage" yaml:"tonnage"`
	IndicatorRecords   []IndicatorRecord `json:"indicator_records,omitempty" yaml:"indicator_records,omitempty"`
}

// IndicatorRecord is the computed impact of one sourcing record for one
// indicator.
type IndicatorRecord struct {
	ID               string        `json:"id" yaml:"id"`
	SourcingRecordID string        `json:"sourcing_record_id" yaml:"sourcing_record_id"`
	IndicatorID      string        `json:"indicator_id" yaml:"indicator_id"`
	IndicatorType    IndicatorType `json:"indicator_type,omitempty" yaml:"indicator_type,omitempty"`
	Value            float64       `json:"value" yaml:"value"`
	Scaler           float64       `json:"scaler" yaml:"scaler"`
	Status           RecordStatus  `json:"status" yaml:"status"`
	MaterialH3DataID string        `json:"material_h3_data_id,omitempty" yaml:"material_h3_data_id,omitempty"`
}

// SourcingInput is the slice of a sourcing record the calculator needs.
type SourcingInput struct {
	SourcingRecordID string  `json:"sourcing_record_id"`
	MaterialID       string  `json:"material_id"`
	GeoRegionID      string  `json:"geo_region_id"`
	AdminRegionID    string  `json:"admin_region_id"`
	Tonnage          float64 `json:"tonnage"`
	Year             int     `json:"year"`
}
