// Package postgres is the primary relational store.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend is the name reported in run summaries and metrics.
const Backend = "postgres"

// Store persists batches into PostgreSQL through a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects, probes the server within probeTimeout and ensures the
// schema. Any failure is reported as domain.ErrBackendUnavailable.
func Open(ctx context.Context, dsn string, probeTimeout time.Duration, catalog *domain.Catalog) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: database url is empty", domain.ErrBackendUnavailable)
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse database url: %w", domain.ErrBackendUnavailable, err)
	}
	poolCfg.ConnConfig.ConnectTimeout = probeTimeout

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(probeCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", domain.ErrBackendUnavailable, err)
	}
	if err := pool.Ping(probeCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", domain.ErrBackendUnavailable, err)
	}

	s := &Store{pool: pool}
	if err := s.ensureSchema(probeCtx, catalog); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context, catalog *domain.Catalog) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if catalog == nil {
		return nil
	}

	batch := &pgx.Batch{}
	params := catalog.Parameters()
	for _, p := range params {
		batch.Queue(seedParameter, p.Code, p.Name, p.Unit,
			p.Thresholds.Safe, p.Thresholds.Moderate, p.Thresholds.High, p.Thresholds.Critical)
	}
	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()
	for range params {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("seed parameters: %w", err)
		}
	}
	return nil
}

func (s *Store) Backend() string { return Backend }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Persist upserts locations, resolves parameter ids, inserts readings and
// records source health in a single transaction.
func (s *Store) Persist(ctx context.Context, b domain.Batch) (domain.PersistResult, error) {
	var result domain.PersistResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: begin: %w", domain.ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	locations := domain.DistinctLocations(b.Readings)
	locationIDs, err := upsertLocations(ctx, tx, locations)
	if err != nil {
		return result, fmt.Errorf("%w: locations: %w", domain.ErrPersistence, err)
	}
	result.LocationsUpserted = len(locationIDs)

	paramIDs, err := loadParameterIDs(ctx, tx)
	if err != nil {
		return result, fmt.Errorf("%w: parameters: %w", domain.ErrPersistence, err)
	}

	rows, skipped := resolveReadings(b.Readings, locationIDs, paramIDs)
	result.ReadingsSkipped = skipped

	inserted, err := insertReadings(ctx, tx, rows)
	if err != nil {
		return result, fmt.Errorf("%w: readings: %w", domain.ErrPersistence, err)
	}
	result.Persisted = inserted
	result.ReadingsInserted = len(inserted)
	result.ReadingsDuplicate = len(rows) - len(inserted)

	if err := upsertSources(ctx, tx, b.Sources); err != nil {
		return result, fmt.Errorf("%w: data sources: %w", domain.ErrPersistence, err)
	}
	result.SourcesRecorded = len(b.Sources)

	if err := tx.Commit(ctx); err != nil {
		return domain.PersistResult{}, fmt.Errorf("%w: commit: %w", domain.ErrPersistence, err)
	}
	return result, nil
}

func upsertLocations(ctx context.Context, tx pgx.Tx, locs []domain.Location) (map[domain.LocationKey]int64, error) {
	ids := make(map[domain.LocationKey]int64, len(locs))
	if len(locs) == 0 {
		return ids, nil
	}

	batch := &pgx.Batch{}
	for _, l := range locs {
		batch.Queue(upsertLocation, l.Name, l.State, nullable(l.District), l.Latitude, l.Longitude, l.WaterBodyType)
	}
	res := tx.SendBatch(ctx, batch)
	defer res.Close()

	for _, l := range locs {
		var id int64
		if err := res.QueryRow().Scan(&id); err != nil {
			return nil, fmt.Errorf("upsert %q, %q: %w", l.Name, l.State, err)
		}
		ids[domain.LocationKey{Name: l.Name, State: l.State}] = id
	}
	return ids, nil
}

func loadParameterIDs(ctx context.Context, tx pgx.Tx) (map[string]int64, error) {
	rows, err := tx.Query(ctx, selectParameters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var code string
		var id int64
		if err := rows.Scan(&code, &id); err != nil {
			return nil, err
		}
		ids[code] = id
	}
	return ids, rows.Err()
}

// readingRow is a reading with its foreign keys resolved.
type readingRow struct {
	locationID  int64
	parameterID int64
	reading     domain.CanonicalReading
}

// resolveReadings pairs each reading with its location and parameter ids.
// Readings missing either id are dropped and counted.
func resolveReadings(readings []domain.CanonicalReading, locationIDs map[domain.LocationKey]int64, paramIDs map[string]int64) ([]readingRow, int) {
	rows := make([]readingRow, 0, len(readings))
	skipped := 0
	for _, r := range readings {
		locID, ok := locationIDs[r.Key()]
		if !ok {
			skipped++
			continue
		}
		paramID, ok := paramIDs[r.ParameterCode]
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, readingRow{locationID: locID, parameterID: paramID, reading: r})
	}
	return rows, skipped
}

// insertReadings returns the readings that were written. Rows rejected by
// the natural-key conflict clause are left out.
func insertReadings(ctx context.Context, tx pgx.Tx, rows []readingRow) ([]domain.CanonicalReading, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		r := row.reading
		batch.Queue(insertReading, row.locationID, row.parameterID, r.Value,
			r.MeasurementDate, string(r.Source), r.QualityScore, string(r.RiskLevel))
	}
	res := tx.SendBatch(ctx, batch)
	defer res.Close()

	var inserted []domain.CanonicalReading
	for i, row := range rows {
		tag, err := res.Exec()
		if err != nil {
			return nil, fmt.Errorf("insert reading %d: %w", i, err)
		}
		if tag.RowsAffected() > 0 {
			inserted = append(inserted, row.reading)
		}
	}
	return inserted, nil
}

func upsertSources(ctx context.Context, tx pgx.Tx, sources []domain.DataSourceHealth) error {
	if len(sources) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, src := range sources {
		batch.Queue(upsertSource, src.SourceName, string(src.SourceType), src.APIURL,
			nullable(src.CredentialHash), src.LastFetch, string(src.Status), nullable(src.LastError))
	}
	res := tx.SendBatch(ctx, batch)
	defer res.Close()

	for _, src := range sources {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("upsert %q: %w", src.SourceName, err)
		}
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
