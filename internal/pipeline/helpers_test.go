package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/water-quality-etl/internal/config"
	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/couchcryptid/water-quality-etl/internal/observability"
	"github.com/couchcryptid/water-quality-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// --- mocks ---

type fetchResponse struct {
	records []domain.RawRecord
	err     error
}

type mockSourceFetcher struct {
	mu        sync.Mutex
	responses map[string]fetchResponse
	calls     []string
}

func (m *mockSourceFetcher) FetchAll(_ context.Context, _ domain.RunContext, src config.Source) ([]domain.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, src.Name)
	r := m.responses[src.Name]
	return r.records, r.err
}

type mockStore struct {
	backend    string
	persistErr error
	// result overrides the default of writing every reading.
	result     func(domain.Batch) domain.PersistResult
	batches    []domain.Batch
	closed     bool
}

func (m *mockStore) Persist(_ context.Context, b domain.Batch) (domain.PersistResult, error) {
	m.batches = append(m.batches, b)
	if m.persistErr != nil {
		return domain.PersistResult{}, m.persistErr
	}
	if m.result != nil {
		return m.result(b), nil
	}
	return domain.PersistResult{
		LocationsUpserted: len(domain.DistinctLocations(b.Readings)),
		ReadingsInserted:  len(b.Readings),
		SourcesRecorded:   len(b.Sources),
		Persisted:         b.Readings,
	}, nil
}

func (m *mockStore) Backend() string { return m.backend }

func (m *mockStore) Close() error {
	m.closed = true
	return nil
}

func opener(s *mockStore, err error) (pipeline.Opener, *int) {
	calls := new(int)
	return func(context.Context) (pipeline.Store, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		return s, nil
	}, calls
}

type mockPublisher struct {
	mu       sync.Mutex
	err      error
	calls    int
	readings []domain.CanonicalReading
	weather  []domain.WeatherObservation
}

func (m *mockPublisher) PublishReadings(_ context.Context, _ string, readings []domain.CanonicalReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.readings = append(m.readings, readings...)
	return nil
}

func (m *mockPublisher) PublishWeather(_ context.Context, _ string, obs []domain.WeatherObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.weather = append(m.weather, obs...)
	return nil
}

type mockWeather struct{}

func (mockWeather) CurrentConditions(_ context.Context, _, _ float64) (domain.Conditions, error) {
	return domain.Conditions{Temperature: 30, Summary: "Clear"}, nil
}

// --- helpers ---

var errUpstream = &domain.FetchError{Source: "data_gov_in", Page: 1, StatusCode: 503, Err: errors.New("service unavailable")}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func useFakeClock(t *testing.T) *clockwork.FakeClock {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC))
	domain.SetClock(fc)
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })
	return fc
}

func dataGovSource() config.Source {
	return config.Source{
		Name:   "data_gov_in",
		Type:   string(domain.SourceGovernment),
		APIURL: "https://api.data.gov.in/rest/water-quality",
	}
}

func upstreamRecords() []domain.RawRecord {
	return []domain.RawRecord{
		{
			Source:     "data_gov_in",
			SourceType: domain.SourceGovernment,
			Fields: map[string]any{
				"station_name": "Ganga at Varanasi",
				"state":        "Uttar Pradesh",
				"ph":           "7.4",
				"bod":          "3.1",
				"date":         "2023-03-15",
			},
		},
		{
			Source:     "data_gov_in",
			SourceType: domain.SourceGovernment,
			Fields: map[string]any{
				"station_name": "Yamuna at Delhi",
				"state":        "Delhi",
				"do":           5.2,
				"date":         "2023-03-15",
			},
		},
		{
			Source:     "data_gov_in",
			SourceType: domain.SourceGovernment,
			Fields:     map[string]any{"remarks": "station closed"},
		},
	}
}

func newFetcher(client pipeline.SourceFetcher, metrics *observability.Metrics) *pipeline.Fetcher {
	return pipeline.NewFetcher(client, domain.DefaultCatalog(), 42, metrics, discardLogger())
}

func newNormalizer() *domain.Normalizer {
	return domain.NewNormalizer(domain.DefaultCatalog(), domain.NewGeoResolver(rand.New(rand.NewPCG(1, 2))), discardLogger())
}
