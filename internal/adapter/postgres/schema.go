package postgres

// schema is applied on Open. Catalog parameters missing from
// water_quality_parameters are inserted; existing reference rows are never
// modified.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		state TEXT NOT NULL,
		district TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		water_body_type TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (name, state)
	)`,
	`CREATE TABLE IF NOT EXISTS water_quality_parameters (
		id SERIAL PRIMARY KEY,
		parameter_code TEXT UNIQUE NOT NULL,
		parameter_name TEXT NOT NULL,
		unit TEXT,
		safe_limit DOUBLE PRECISION,
		moderate_limit DOUBLE PRECISION,
		high_limit DOUBLE PRECISION,
		critical_limit DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS water_quality_readings (
		id BIGSERIAL PRIMARY KEY,
		location_id INTEGER NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
		parameter_id INTEGER NOT NULL REFERENCES water_quality_parameters(id),
		value DOUBLE PRECISION NOT NULL,
		measurement_date DATE NOT NULL,
		source TEXT NOT NULL,
		quality_score DOUBLE PRECISION,
		risk_level TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (location_id, parameter_id, measurement_date, source)
	)`,
	`CREATE TABLE IF NOT EXISTS data_sources (
		id SERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		source_type TEXT,
		api_url TEXT,
		api_key_hash TEXT,
		last_fetch TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'active',
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

const seedParameter = `INSERT INTO water_quality_parameters
	(parameter_code, parameter_name, unit, safe_limit, moderate_limit, high_limit, critical_limit)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (parameter_code) DO NOTHING`

const upsertLocation = `INSERT INTO locations
	(name, state, district, latitude, longitude, water_body_type)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (name, state) DO UPDATE
	SET latitude = EXCLUDED.latitude,
	    longitude = EXCLUDED.longitude,
	    updated_at = NOW()
	RETURNING id`

const selectParameters = `SELECT parameter_code, id FROM water_quality_parameters`

const insertReading = `INSERT INTO water_quality_readings
	(location_id, parameter_id, value, measurement_date, source, quality_score, risk_level)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (location_id, parameter_id, measurement_date, source) DO NOTHING`

const upsertSource = `INSERT INTO data_sources
	(name, source_type, api_url, api_key_hash, last_fetch, status, last_error)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (name) DO UPDATE
	SET source_type = EXCLUDED.source_type,
	    api_url = EXCLUDED.api_url,
	    api_key_hash = EXCLUDED.api_key_hash,
	    last_fetch = EXCLUDED.last_fetch,
	    status = EXCLUDED.status,
	    last_error = EXCLUDED.last_error,
	    updated_at = NOW()`
