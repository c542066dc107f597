package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/sells-group/impact-cli/internal/model"
)

var locationColumns = []string{
	"sl.id",
	"sl.material_id",
	"coalesce(sl.admin_region_id, '')",
	"coalesce(sl.geo_region_id, '')",
	"coalesce(sl.business_unit_id, '')",
	"coalesce(sl.producer_id, '')",
	"coalesce(sl.t1_supplier_id, '')",
	"sl.location_type",
	"coalesce(sl.location_country_input, '')",
	"coalesce(sl.location_address_input, '')",
	"sl.location_latitude",
	"sl.location_longitude",
}

// ActualSourcingInputs returns every sourcing record outside an intervention
// overlay as calculator input.
func (s *PostgresStore) ActualSourcingInputs(ctx context.Context) ([]model.SourcingInput, error) {
	q := builder().
		Select("sr.id", "sl.material_id", "coalesce(sl.geo_region_id, '')", "coalesce(sl.admin_region_id, '')", "sr.tonnage", "sr.year").
		From("sourcing_records sr").
		Join("sourcing_locations sl ON sl.id = sr.sourcing_location_id").
		Where(sq.Eq{"sl.scenario_intervention_id": nil}).
		OrderBy("sr.id")
	return collect(ctx, s, q, "sourcing inputs", func(row pgx.CollectableRow) (model.SourcingInput, error) {
		var in model.SourcingInput
		err := row.Scan(&in.SourcingRecordID, &in.MaterialID, &in.GeoRegionID, &in.AdminRegionID, &in.Tonnage, &in.Year)
		return in, err
	})
}

// ActualLocations implements intervention.Store.
func (s *PostgresStore) ActualLocations(ctx context.Context, f model.Filters) ([]model.SourcingLocation, error) {
	q := builder().
		Select(locationColumns...).
		From("sourcing_locations sl").
		Where(sq.Eq{"sl.scenario_intervention_id": nil}).
		Where(locationFilters(f)).
		OrderBy("sl.id")
	locs, err := collect(ctx, s, q, "actual locations", scanLocation)
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return locs, nil
	}

	locIDs := make([]string, len(locs))
	for i, l := range locs {
		locIDs[i] = l.ID
	}
	records, err := collect(ctx, s, builder().
		Select("id", "sourcing_location_id", "year", "tonnage").
		From("sourcing_records").
		Where("sourcing_location_id = ANY(?)", locIDs).
		OrderBy("sourcing_location_id", "year"),
		"sourcing records", scanRecord)
	if err != nil {
		return nil, err
	}

	recIDs := make([]string, len(records))
	for i, r := range records {
		recIDs[i] = r.ID
	}
	var indicatorRecords []model.IndicatorRecord
	if len(recIDs) > 0 {
		indicatorRecords, err = collect(ctx, s, builder().
			Select("ir.id", "ir.sourcing_record_id", "ir.indicator_id", "i.name_code", "ir.value",
				"coalesce(ir.scaler, 0)", "ir.status", "coalesce(ir.material_h3_data_id, '')").
			From("indicator_records ir").
			Join("indicators i ON i.id = ir.indicator_id").
			Where("ir.sourcing_record_id = ANY(?)", recIDs).
			OrderBy("ir.sourcing_record_id", "i.name_code"),
			"indicator records", scanIndicatorRecord)
		if err != nil {
			return nil, err
		}
	}

	return assemble(locs, records, indicatorRecords), nil
}

// assemble nests records under their locations and indicator records under
// their records, keeping query order.
func assemble(locs []model.SourcingLocation, records []model.SourcingRecord, irs []model.IndicatorRecord) []model.SourcingLocation {
	byRecord := make(map[string][]model.IndicatorRecord)
	for _, ir := range irs {
		byRecord[ir.SourcingRecordID] = append(byRecord[ir.SourcingRecordID], ir)
	}
	byLocation := make(map[string][]model.SourcingRecord)
	for _, r := range records {
		r.IndicatorRecords = byRecord[r.ID]
		byLocation[r.SourcingLocationID] = append(byLocation[r.SourcingLocationID], r)
	}
	for i := range locs {
		locs[i].SourcingRecords = byLocation[locs[i].ID]
	}
	return locs
}

// locationFilters turns f into conditions on sourcing_locations sl. Empty
// lists add nothing.
func locationFilters(f model.Filters) sq.And {
	and := sq.And{}
	for _, c := range []struct {
		col string
		ids []string
	}{
		{"sl.material_id", f.MaterialIDs},
		{"sl.business_unit_id", f.BusinessUnitIDs},
		{"sl.t1_supplier_id", f.T1SupplierIDs},
		{"sl.producer_id", f.ProducerIDs},
		{"sl.admin_region_id", f.AdminRegionIDs},
	} {
		if len(c.ids) > 0 {
			and = append(and, sq.Eq{c.col: c.ids})
		}
	}
	return and
}

func scanLocation(row pgx.CollectableRow) (model.SourcingLocation, error) {
	var l model.SourcingLocation
	var locType string
	err := row.Scan(&l.ID, &l.MaterialID, &l.AdminRegionID, &l.GeoRegionID, &l.BusinessUnitID,
		&l.ProducerID, &l.T1SupplierID, &locType, &l.LocationCountryInput, &l.LocationAddressInput,
		&l.Latitude, &l.Longitude)
	l.LocationType = model.LocationType(locType)
	return l, err
}

func scanRecord(row pgx.CollectableRow) (model.SourcingRecord, error) {
	var r model.SourcingRecord
	err := row.Scan(&r.ID, &r.SourcingLocationID, &r.Year, &r.Tonnage)
	return r, err
}

func scanIndicatorRecord(row pgx.CollectableRow) (model.IndicatorRecord, error) {
	var ir model.IndicatorRecord
	var code, status string
	err := row.Scan(&ir.ID, &ir.SourcingRecordID, &ir.IndicatorID, &code, &ir.Value, &ir.Scaler, &status, &ir.MaterialH3DataID)
	ir.IndicatorType = model.IndicatorType(code)
	ir.Status = model.RecordStatus(status)
	return ir, err
}
