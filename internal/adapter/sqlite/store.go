// Package sqlite is the embedded fallback store. Readings are kept
// denormalized and appended on every run.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/water-quality-etl/internal/domain"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Backend is the name reported in run summaries and metrics.
const Backend = "sqlite"

const dateLayout = "2006-01-02"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS water_quality_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		location_name TEXT NOT NULL,
		state TEXT NOT NULL,
		district TEXT,
		latitude REAL,
		longitude REAL,
		parameter TEXT NOT NULL,
		value REAL NOT NULL,
		unit TEXT,
		measurement_date DATE NOT NULL,
		source TEXT NOT NULL,
		quality_score REAL,
		risk_level TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		state TEXT NOT NULL,
		district TEXT,
		latitude REAL,
		longitude REAL,
		water_body_type TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (name, state)
	)`,
	`CREATE TABLE IF NOT EXISTS data_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		source_type TEXT,
		api_url TEXT,
		api_key_hash TEXT,
		last_fetch TIMESTAMP,
		status TEXT DEFAULT 'active',
		last_error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Store persists batches into a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates the database file and its schema when missing.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", domain.ErrBackendUnavailable)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: create dirs: %w", domain.ErrBackendUnavailable, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", domain.ErrBackendUnavailable, err)
	}
	// A single connection serializes writers on the file.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: create schema: %w", domain.ErrBackendUnavailable, err)
		}
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Backend() string { return Backend }

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

// Persist writes locations, readings and source health in one transaction.
func (s *Store) Persist(ctx context.Context, b domain.Batch) (result domain.PersistResult, retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("%w: begin: %w", domain.ErrPersistence, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
			result = domain.PersistResult{}
		}
	}()

	n, err := insertLocations(ctx, tx, domain.DistinctLocations(b.Readings))
	if err != nil {
		return result, fmt.Errorf("%w: locations: %w", domain.ErrPersistence, err)
	}
	result.LocationsUpserted = n

	if result.ReadingsInserted, err = insertReadings(ctx, tx, b.Readings); err != nil {
		return result, fmt.Errorf("%w: readings: %w", domain.ErrPersistence, err)
	}
	// Readings are appended, so every one of them is written.
	result.Persisted = b.Readings

	if result.SourcesRecorded, err = upsertSources(ctx, tx, b.Sources); err != nil {
		return result, fmt.Errorf("%w: data sources: %w", domain.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("%w: commit: %w", domain.ErrPersistence, err)
	}
	return result, nil
}

func insertLocations(ctx context.Context, tx *sql.Tx, locs []domain.Location) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO locations
		(name, state, district, latitude, longitude, water_body_type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, state) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, l := range locs {
		res, err := stmt.ExecContext(ctx, l.Name, l.State, nullString(l.District), l.Latitude, l.Longitude, l.WaterBodyType)
		if err != nil {
			return inserted, fmt.Errorf("insert %q, %q: %w", l.Name, l.State, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

func insertReadings(ctx context.Context, tx *sql.Tx, readings []domain.CanonicalReading) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO water_quality_readings
		(location_name, state, district, latitude, longitude, parameter, value, unit,
		 measurement_date, source, quality_score, risk_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range readings {
		if _, err := stmt.ExecContext(ctx,
			r.LocationName, r.State, nullString(r.District), r.Latitude, r.Longitude,
			r.ParameterCode, r.Value, r.Unit, r.MeasurementDate.Format(dateLayout),
			string(r.Source), r.QualityScore, string(r.RiskLevel),
		); err != nil {
			return i, fmt.Errorf("insert reading %d: %w", i, err)
		}
	}
	return len(readings), nil
}

func upsertSources(ctx context.Context, tx *sql.Tx, sources []domain.DataSourceHealth) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO data_sources
		(name, source_type, api_url, api_key_hash, last_fetch, status, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			source_type = excluded.source_type,
			api_url = excluded.api_url,
			api_key_hash = excluded.api_key_hash,
			last_fetch = excluded.last_fetch,
			status = excluded.status,
			last_error = excluded.last_error`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	for _, src := range sources {
		if _, err := stmt.ExecContext(ctx,
			src.SourceName, string(src.SourceType), src.APIURL, nullString(src.CredentialHash),
			src.LastFetch.UTC().Format(time.RFC3339), string(src.Status), nullString(src.LastError),
		); err != nil {
			return 0, fmt.Errorf("upsert %q: %w", src.SourceName, err)
		}
	}
	return len(sources), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
