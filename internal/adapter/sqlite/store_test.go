package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "water.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testBatch(lat float64) domain.Batch {
	date := time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)
	return domain.Batch{
		Readings: []domain.CanonicalReading{
			{
				LocationName: "Ganga at Varanasi", State: "Uttar Pradesh", District: "Varanasi",
				Latitude: lat, Longitude: 82.97, ParameterCode: domain.ParamPH, Value: 7.4,
				MeasurementDate: date, Source: domain.SourceGovernment, QualityScore: 100, RiskLevel: domain.RiskLow,
			},
			{
				LocationName: "Ganga at Varanasi", State: "Uttar Pradesh", District: "Varanasi",
				Latitude: lat, Longitude: 82.97, ParameterCode: domain.ParamBOD, Value: 3.2, Unit: "mg/L",
				MeasurementDate: date, Source: domain.SourceGovernment, QualityScore: 78, RiskLevel: domain.RiskMedium,
			},
		},
		Sources: []domain.DataSourceHealth{{
			SourceName:     "data_gov_in",
			SourceType:     domain.SourceGovernment,
			APIURL:         "https://api.data.gov.in/rest/water-quality",
			CredentialHash: domain.HashCredential("secret"),
			LastFetch:      date,
			Status:         domain.SourceActive,
		}},
	}
}

func count(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestOpen_CreatesSchema(t *testing.T) {
	s := openTestStore(t)

	assert.Equal(t, Backend, s.Backend())
	for _, table := range []string{"water_quality_readings", "locations", "data_sources"} {
		assert.Equal(t, 0, count(t, s, table), table)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBackendUnavailable))
}

func TestPersist_WritesAllTables(t *testing.T) {
	s := openTestStore(t)

	b := testBatch(25.31)
	res, err := s.Persist(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, domain.PersistResult{LocationsUpserted: 1, ReadingsInserted: 2, SourcesRecorded: 1, Persisted: b.Readings}, res)
	assert.Equal(t, 2, count(t, s, "water_quality_readings"))
	assert.Equal(t, 1, count(t, s, "locations"))
	assert.Equal(t, 1, count(t, s, "data_sources"))

	var date, risk string
	var value float64
	require.NoError(t, s.db.QueryRow(
		`SELECT measurement_date, value, risk_level FROM water_quality_readings WHERE parameter = ?`, domain.ParamBOD,
	).Scan(&date, &value, &risk))
	assert.Equal(t, "2023-03-15", date[:10])
	assert.InDelta(t, 3.2, value, 1e-9)
	assert.Equal(t, string(domain.RiskMedium), risk)
}

func TestPersist_SecondRunAppendsReadingsAndKeepsLocation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Persist(ctx, testBatch(25.31))
	require.NoError(t, err)

	second := testBatch(25.40)
	second.Sources[0].Status = domain.SourceSample
	second.Sources[0].LastError = "fetch data_gov_in page 1: status 503"
	res, err := s.Persist(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, 0, res.LocationsUpserted)
	assert.Equal(t, 4, count(t, s, "water_quality_readings"))
	assert.Equal(t, 1, count(t, s, "locations"))
	assert.Equal(t, 1, count(t, s, "data_sources"))

	var lat float64
	require.NoError(t, s.db.QueryRow(`SELECT latitude FROM locations`).Scan(&lat))
	assert.InDelta(t, 25.31, lat, 1e-9, "fallback keeps the first-seen location row")

	var status, lastErr string
	require.NoError(t, s.db.QueryRow(`SELECT status, last_error FROM data_sources WHERE name = 'data_gov_in'`).Scan(&status, &lastErr))
	assert.Equal(t, string(domain.SourceSample), status)
	assert.Contains(t, lastErr, "503")
}

func TestPersist_SameNameDifferentState(t *testing.T) {
	s := openTestStore(t)

	b := testBatch(25.31)
	other := b.Readings[0]
	other.State = "Bihar"
	b.Readings = append(b.Readings, other)

	res, err := s.Persist(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LocationsUpserted)
	assert.Equal(t, 2, count(t, s, "locations"))
}

func TestPersist_RollsBackOnFailure(t *testing.T) {
	s := openTestStore(t)
	_, err := s.db.Exec(`DROP TABLE data_sources`)
	require.NoError(t, err)

	res, err := s.Persist(context.Background(), testBatch(25.31))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistence))
	assert.Equal(t, domain.PersistResult{}, res)

	assert.Equal(t, 0, count(t, s, "water_quality_readings"))
	assert.Equal(t, 0, count(t, s, "locations"))
}

func TestPersist_EmptyBatch(t *testing.T) {
	s := openTestStore(t)

	res, err := s.Persist(context.Background(), domain.Batch{})
	require.NoError(t, err)
	assert.Equal(t, domain.PersistResult{}, res)
}
