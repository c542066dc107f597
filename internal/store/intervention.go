package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/impact-cli/internal/db"
	"github.com/sells-group/impact-cli/internal/intervention"
	"github.com/sells-group/impact-cli/internal/model"
)

var interventionColumns = []string{
	"id", "scenario_id", "title", "description", "type", "status",
	"percentage", "start_year", "end_year", "filters", "coefficients",
	"new_material_id", "new_material_tonnage_ratio", "new_t1_supplier_id", "new_producer_id",
	"new_location", "new_admin_region_id", "new_geo_region_id", "location_warning",
	"created_at", "updated_at",
}

var (
	overlayLocationColumns = []string{
		"id", "material_id", "admin_region_id", "geo_region_id", "business_unit_id",
		"producer_id", "t1_supplier_id", "location_type", "location_country_input",
		"location_address_input", "location_latitude", "location_longitude",
		"scenario_intervention_id", "intervention_type", "replaces_location_id",
	}
	recordColumns          = []string{"id", "sourcing_location_id", "year", "tonnage"}
	indicatorRecordColumns = []string{"id", "sourcing_record_id", "indicator_id", "value", "scaler", "status", "material_h3_data_id"}
	replacedColumns        = []string{"intervention_id", "kind", "entity_id"}
)

// Intervention implements intervention.Store.
func (s *PostgresStore) Intervention(ctx context.Context, id string) (*model.Intervention, error) {
	sql, args, err := builder().
		Select("id", "scenario_id", "title", "coalesce(description, '')", "type", "status",
			"percentage", "start_year", "coalesce(end_year, 0)", "filters", "coefficients",
			"coalesce(new_material_id, '')", "coalesce(new_material_tonnage_ratio, 0)",
			"coalesce(new_t1_supplier_id, '')", "coalesce(new_producer_id, '')", "new_location",
			"coalesce(new_admin_region_id, '')", "coalesce(new_geo_region_id, '')",
			"coalesce(location_warning, '')", "created_at").
		From("scenario_interventions").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build intervention query")
	}

	var (
		iv                     model.Intervention
		typ, status            string
		filters, coefs, newLoc []byte
	)
	err = s.pool.QueryRow(ctx, sql, args...).Scan(
		&iv.ID, &iv.ScenarioID, &iv.Title, &iv.Description, &typ, &status,
		&iv.Percentage, &iv.StartYear, &iv.EndYear, &filters, &coefs,
		&iv.NewMaterialID, &iv.NewMaterialTonnageRatio, &iv.NewT1SupplierID, &iv.NewProducerID, &newLoc,
		&iv.NewAdminRegionID, &iv.NewGeoRegionID, &iv.LocationWarning, &iv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(intervention.ErrNotFound, "postgres: intervention %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get intervention %s", id)
	}
	iv.Type = model.InterventionType(typ)
	iv.Status = model.InterventionStatus(status)

	if err := json.Unmarshal(filters, &iv.Filters); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode filters of intervention %s", id)
	}
	if len(coefs) > 0 {
		iv.Coefficients = new(model.Coefficients)
		if err := json.Unmarshal(coefs, iv.Coefficients); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode coefficients of intervention %s", id)
		}
	}
	if len(newLoc) > 0 {
		iv.NewLocation = new(model.LocationDescriptor)
		if err := json.Unmarshal(newLoc, iv.NewLocation); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode new location of intervention %s", id)
		}
	}
	return &iv, nil
}

// CommitIntervention implements intervention.Store. The overlay is written
// with COPY inside the same transaction as the intervention row.
func (s *PostgresStore) CommitIntervention(ctx context.Context, iv *model.Intervention, replace bool) error {
	row, err := interventionRow(iv)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin intervention tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if replace {
		// Overlay locations, records and replaced links cascade.
		if _, err := tx.Exec(ctx, "DELETE FROM scenario_interventions WHERE id = $1", iv.ID); err != nil {
			return eris.Wrapf(err, "postgres: delete intervention %s", iv.ID)
		}
	}

	sql, args, err := builder().Insert("scenario_interventions").Columns(interventionColumns...).Values(row...).ToSql()
	if err != nil {
		return eris.Wrap(err, "postgres: build intervention insert")
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return eris.Wrapf(err, "postgres: insert intervention %s", iv.ID)
	}

	locs, records, irs := overlayRows(iv)
	if _, err := db.CopyAll(ctx, tx,
		db.CopyBatch{Table: "scenario_intervention_replaced", Columns: replacedColumns, Rows: replacedRows(iv)},
		db.CopyBatch{Table: "sourcing_locations", Columns: overlayLocationColumns, Rows: locs},
		db.CopyBatch{Table: "sourcing_records", Columns: recordColumns, Rows: records},
		db.CopyBatch{Table: "indicator_records", Columns: indicatorRecordColumns, Rows: irs},
	); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "postgres: commit intervention %s", iv.ID)
	}
	return nil
}

// SetInterventionStatus implements intervention.Store.
func (s *PostgresStore) SetInterventionStatus(ctx context.Context, id string, status model.InterventionStatus) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE scenario_interventions SET status = $2, updated_at = now() WHERE id = $1",
		id, string(status))
	if err != nil {
		return eris.Wrapf(err, "postgres: set status of intervention %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(intervention.ErrNotFound, "postgres: intervention %s", id)
	}
	return nil
}

func interventionRow(iv *model.Intervention) ([]any, error) {
	filters, err := json.Marshal(iv.Filters)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode filters")
	}
	var coefs, newLoc []byte
	if iv.Coefficients != nil {
		if coefs, err = json.Marshal(iv.Coefficients); err != nil {
			return nil, eris.Wrap(err, "postgres: encode coefficients")
		}
	}
	if iv.NewLocation != nil {
		if newLoc, err = json.Marshal(iv.NewLocation); err != nil {
			return nil, eris.Wrap(err, "postgres: encode new location")
		}
	}
	created := iv.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var endYear any
	if iv.EndYear != 0 {
		endYear = iv.EndYear
	}
	var ratio any
	if iv.NewMaterialTonnageRatio != 0 {
		ratio = iv.NewMaterialTonnageRatio
	}
	return []any{
		iv.ID, iv.ScenarioID, iv.Title, nullable(iv.Description), string(iv.Type), string(iv.Status),
		iv.Percentage, iv.StartYear, endYear, filters, nilIfEmpty(coefs),
		nullable(iv.NewMaterialID), ratio, nullable(iv.NewT1SupplierID), nullable(iv.NewProducerID),
		nilIfEmpty(newLoc), nullable(iv.NewAdminRegionID), nullable(iv.NewGeoRegionID), nullable(iv.LocationWarning),
		created, created,
	}, nil
}

func replacedRows(iv *model.Intervention) [][]any {
	var rows [][]any
	add := func(kind model.EntityKind, id string) {
		rows = append(rows, []any{iv.ID, string(kind), id})
	}
	for _, m := range iv.ReplacedMaterials {
		add(model.KindMaterial, m.ID)
	}
	for _, a := range iv.ReplacedAdminRegions {
		add(model.KindAdminRegion, a.ID)
	}
	for _, b := range iv.ReplacedBusinessUnits {
		add(model.KindBusinessUnit, b.ID)
	}
	for _, sp := range iv.ReplacedSuppliers {
		add(model.KindSupplier, sp.ID)
	}
	return rows
}

// overlayRows flattens the canceled copies and the replacing locations into
// COPY rows for the three sourcing tables.
func overlayRows(iv *model.Intervention) (locs, records, irs [][]any) {
	overlay := make([]model.SourcingLocation, 0, len(iv.ReplacedSourcingLocations)+len(iv.NewSourcingLocations))
	overlay = append(overlay, iv.ReplacedSourcingLocations...)
	overlay = append(overlay, iv.NewSourcingLocations...)
	for _, l := range overlay {
		locs = append(locs, []any{
			l.ID, l.MaterialID, nullable(l.AdminRegionID), nullable(l.GeoRegionID), nullable(l.BusinessUnitID),
			nullable(l.ProducerID), nullable(l.T1SupplierID), string(l.LocationType), nullable(l.LocationCountryInput),
			nullable(l.LocationAddressInput), l.Latitude, l.Longitude,
			iv.ID, string(l.InterventionType), nullable(l.ReplacesLocationID),
		})
		for _, r := range l.SourcingRecords {
			records = append(records, []any{r.ID, l.ID, r.Year, r.Tonnage})
			for _, ir := range r.IndicatorRecords {
				irs = append(irs, []any{
					ir.ID, r.ID, ir.IndicatorID, ir.Value, ir.Scaler, string(ir.Status), nullable(ir.MaterialH3DataID),
				})
			}
		}
	}
	return locs, records, irs
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilIfEmpty(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
