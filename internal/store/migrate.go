package store

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE EXTENSION IF NOT EXISTS h3;
CREATE EXTENSION IF NOT EXISTS h3_postgis CASCADE;

CREATE TABLE IF NOT EXISTS geo_regions (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name         TEXT,
	the_geom     geometry(Geometry, 4326),
	h3_compacted TEXT[],
	is_radius    BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS materials (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	parent_id TEXT REFERENCES materials(id),
	mpath     TEXT NOT NULL,
	hs_code   TEXT
);

CREATE TABLE IF NOT EXISTS admin_regions (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	parent_id     TEXT REFERENCES admin_regions(id),
	mpath         TEXT NOT NULL,
	iso_a2        TEXT,
	level         INTEGER NOT NULL DEFAULT 0,
	geo_region_id TEXT REFERENCES geo_regions(id)
);

CREATE TABLE IF NOT EXISTS suppliers (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	parent_id TEXT REFERENCES suppliers(id),
	mpath     TEXT NOT NULL,
	type      TEXT
);

CREATE TABLE IF NOT EXISTS business_units (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	parent_id TEXT REFERENCES business_units(id),
	mpath     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_materials_mpath ON materials(mpath text_pattern_ops);
CREATE INDEX IF NOT EXISTS idx_admin_regions_mpath ON admin_regions(mpath text_pattern_ops);
CREATE INDEX IF NOT EXISTS idx_suppliers_mpath ON suppliers(mpath text_pattern_ops);
CREATE INDEX IF NOT EXISTS idx_business_units_mpath ON business_units(mpath text_pattern_ops);
CREATE INDEX IF NOT EXISTS idx_geo_regions_geom ON geo_regions USING GIST (the_geom);

CREATE TABLE IF NOT EXISTS indicators (
	id        TEXT PRIMARY KEY,
	name_code TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL,
	unit      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS h3_data (
	id             TEXT PRIMARY KEY,
	h3_table_name  TEXT NOT NULL,
	h3_column_name TEXT NOT NULL,
	h3_resolution  INTEGER NOT NULL,
	UNIQUE (h3_table_name, h3_column_name)
);

CREATE TABLE IF NOT EXISTS material_to_h3 (
	material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
	h3_data_id  TEXT NOT NULL REFERENCES h3_data(id) ON DELETE CASCADE,
	type        TEXT NOT NULL,
	PRIMARY KEY (material_id, type)
);

CREATE TABLE IF NOT EXISTS indicator_coefficients (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	indicator_id    TEXT NOT NULL REFERENCES indicators(id),
	material_id     TEXT NOT NULL REFERENCES materials(id),
	admin_region_id TEXT REFERENCES admin_regions(id),
	year            INTEGER,
	value           DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS scenarios (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title       TEXT NOT NULL,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scenario_interventions (
	id                         TEXT PRIMARY KEY,
	scenario_id                TEXT NOT NULL REFERENCES scenarios(id) ON DELETE CASCADE,
	title                      TEXT NOT NULL,
	description                TEXT,
	type                       TEXT NOT NULL,
	status                     TEXT NOT NULL DEFAULT 'active',
	percentage                 DOUBLE PRECISION NOT NULL,
	start_year                 INTEGER NOT NULL,
	end_year                   INTEGER,
	filters                    JSONB NOT NULL,
	coefficients               JSONB,
	new_material_id            TEXT REFERENCES materials(id),
	new_material_tonnage_ratio DOUBLE PRECISION,
	new_t1_supplier_id         TEXT REFERENCES suppliers(id),
	new_producer_id            TEXT REFERENCES suppliers(id),
	new_location               JSONB,
	new_admin_region_id        TEXT REFERENCES admin_regions(id),
	new_geo_region_id          TEXT REFERENCES geo_regions(id),
	location_warning           TEXT,
	created_at                 TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scenario_intervention_replaced (
	intervention_id TEXT NOT NULL REFERENCES scenario_interventions(id) ON DELETE CASCADE,
	kind            TEXT NOT NULL,
	entity_id       TEXT NOT NULL,
	PRIMARY KEY (intervention_id, kind, entity_id)
);

CREATE TABLE IF NOT EXISTS sourcing_locations (
	id                       TEXT PRIMARY KEY,
	material_id              TEXT NOT NULL REFERENCES materials(id),
	admin_region_id          TEXT REFERENCES admin_regions(id),
	geo_region_id            TEXT REFERENCES geo_regions(id),
	business_unit_id         TEXT REFERENCES business_units(id),
	producer_id              TEXT REFERENCES suppliers(id),
	t1_supplier_id           TEXT REFERENCES suppliers(id),
	location_type            TEXT NOT NULL DEFAULT 'unknown',
	location_country_input   TEXT,
	location_address_input   TEXT,
	location_latitude        DOUBLE PRECISION,
	location_longitude       DOUBLE PRECISION,
	scenario_intervention_id TEXT REFERENCES scenario_interventions(id) ON DELETE CASCADE,
	intervention_type        TEXT,
	replaces_location_id     TEXT REFERENCES sourcing_locations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sourcing_locations_intervention ON sourcing_locations(scenario_intervention_id);
CREATE INDEX IF NOT EXISTS idx_sourcing_locations_replaces ON sourcing_locations(replaces_location_id);
CREATE INDEX IF NOT EXISTS idx_sourcing_locations_material ON sourcing_locations(material_id);

CREATE TABLE IF NOT EXISTS sourcing_records (
	id                   TEXT PRIMARY KEY,
	sourcing_location_id TEXT NOT NULL REFERENCES sourcing_locations(id) ON DELETE CASCADE,
	year                 INTEGER NOT NULL,
	tonnage              DOUBLE PRECISION NOT NULL,
	UNIQUE (sourcing_location_id, year)
);

CREATE TABLE IF NOT EXISTS indicator_records (
	id                  TEXT PRIMARY KEY,
	sourcing_record_id  TEXT NOT NULL REFERENCES sourcing_records(id) ON DELETE CASCADE,
	indicator_id        TEXT NOT NULL REFERENCES indicators(id),
	value               DOUBLE PRECISION NOT NULL,
	scaler              DOUBLE PRECISION,
	status              TEXT NOT NULL DEFAULT 'SUCCESS',
	material_h3_data_id TEXT REFERENCES h3_data(id),
	UNIQUE (sourcing_record_id, indicator_id)
);

CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash      TEXT PRIMARY KEY,
	latitude          DOUBLE PRECISION NOT NULL,
	longitude         DOUBLE PRECISION NOT NULL,
	quality           TEXT NOT NULL,
	matched           BOOLEAN NOT NULL,
	formatted_address TEXT,
	types             TEXT[],
	cached_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE OR REPLACE FUNCTION get_h3_uncompact_geo_region(geo_region_id TEXT, h3_resolution INTEGER)
RETURNS TABLE (h3index h3index) AS $$
	SELECT h3_uncompact_cells(g.h3_compacted::h3index[], h3_resolution)
	FROM geo_regions g
	WHERE g.id = geo_region_id
$$ LANGUAGE SQL STABLE;
`
