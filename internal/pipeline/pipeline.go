// Package pipeline runs the fetch, normalize and persist state machine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/water-quality-etl/internal/config"
	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/couchcryptid/water-quality-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Publisher forwards persisted readings to downstream consumers.
type Publisher interface {
	PublishReadings(ctx context.Context, runID string, readings []domain.CanonicalReading) error
	PublishWeather(ctx context.Context, runID string, obs []domain.WeatherObservation) error
}

const (
	publishAttempts   = 3
	maxPublishBackoff = 2 * time.Second
)

// Options wires a Pipeline. Weather and Publisher are optional.
type Options struct {
	Sources    []config.Source
	Fetcher    *Fetcher
	Normalizer *domain.Normalizer
	Primary    Opener
	Fallback   Opener

	Weather             domain.WeatherProvider
	WeatherMaxLocations int
	Publisher           Publisher
	PublishBackoff      time.Duration

	Clock   clockwork.Clock
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Pipeline orchestrates ingestion runs. Runs never overlap.
type Pipeline struct {
	opts  Options
	clock clockwork.Clock
	ready atomic.Bool
	last  atomic.Pointer[domain.RunSummary]
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PublishBackoff <= 0 {
		opts.PublishBackoff = 200 * time.Millisecond
	}
	return &Pipeline{opts: opts, clock: opts.Clock}
}

// CheckReadiness returns nil once a run has reached Done.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no ingestion run has completed successfully yet")
	}
	return nil
}

// LastSummary returns the summary of the most recent run.
func (p *Pipeline) LastSummary() (domain.RunSummary, bool) {
	s := p.last.Load()
	if s == nil {
		return domain.RunSummary{}, false
	}
	return *s, true
}

// RunEvery runs immediately and then on every tick of interval until ctx is
// cancelled. A failed run does not stop the loop.
func (p *Pipeline) RunEvery(ctx context.Context, interval time.Duration, newRunContext func() domain.RunContext) error {
	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	p.opts.Logger.Info("ingest loop started", "interval", interval)
	for {
		// Run logs its own outcome.
		_, _ = p.Run(ctx, newRunContext())
		select {
		case <-ctx.Done():
			p.opts.Logger.Info("ingest loop stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// run carries the mutable state of one Run call.
type run struct {
	rc      domain.RunContext
	state   domain.RunState
	summary domain.RunSummary
	logger  *slog.Logger
}

func (r *run) transition(to domain.RunState) {
	r.logger.Info("state transition", "from", r.state, "to", to)
	r.state = to
	r.summary.State = to
}

// Run executes one ingestion run and returns its summary. A returned error
// means the run ended in a fatal state.
func (p *Pipeline) Run(ctx context.Context, rc domain.RunContext) (domain.RunSummary, error) {
	start := p.clock.Now()
	r := &run{
		rc:     rc,
		state:  domain.StateInit,
		logger: p.opts.Logger.With("run_id", rc.RunID()),
		summary: domain.RunSummary{
			RunID:     rc.RunID(),
			State:     domain.StateInit,
			StartedAt: start.UTC(),
		},
	}
	r.logger.Info("ingestion run started", "sources", len(p.opts.Sources), "allow_sample_data", rc.AllowSampleData())

	err := p.execute(ctx, r)
	if err != nil {
		r.summary.Error = err.Error()
	}
	r.summary.Duration = p.clock.Since(start)
	p.finish(r)
	return r.summary, err
}

func (p *Pipeline) execute(ctx context.Context, r *run) error {
	m := p.opts.Metrics

	if err := p.opts.Fetcher.Preflight(r.rc, p.opts.Sources); err != nil {
		r.transition(domain.StateFatalConfig)
		return err
	}

	store, err := SelectStore(ctx, p.opts.Primary, p.opts.Fallback, r.logger)
	if err != nil {
		r.transition(domain.StateFatalPersistence)
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			r.logger.Warn("close store", "backend", store.Backend(), "error", err)
		}
	}()
	r.summary.Backend = store.Backend()
	m.BackendSelected.Reset()
	m.BackendSelected.WithLabelValues(store.Backend()).Set(1)
	r.logger = r.logger.With("backend", store.Backend())
	r.transition(domain.StateBackendSelected)

	r.transition(domain.StateFetching)
	results, err := p.opts.Fetcher.FetchAll(ctx, r.rc, p.opts.Sources)
	r.summary.Sources = outcomes(results)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			r.transition(domain.StateFatalConfig)
		} else {
			r.transition(domain.StateFatalFetch)
		}
		return err
	}

	r.transition(domain.StateNormalizing)
	var records []domain.RawRecord
	sources := make([]domain.DataSourceHealth, 0, len(results))
	for _, res := range results {
		records = append(records, res.Records...)
		sources = append(sources, res.Health)
	}
	readings, stats := p.opts.Normalizer.NormalizeAll(r.rc, records)
	r.summary.RecordsFetched = len(records)
	r.summary.ReadingsProduced = len(readings)
	r.summary.RecordsSkipped = stats.ZeroYield
	m.ReadingsProduced.Add(float64(len(readings)))
	m.RecordsSkipped.Add(float64(stats.ZeroYield))

	weather := domain.EnrichWithWeather(ctx, r.rc, readings, p.opts.Weather, p.opts.WeatherMaxLocations, r.logger)
	r.summary.WeatherObserved = len(weather)

	r.transition(domain.StatePersisting)
	res, err := store.Persist(ctx, domain.Batch{Readings: readings, Sources: sources})
	if err != nil {
		r.transition(domain.StateFatalPersistence)
		return fmt.Errorf("persist: %w", err)
	}
	r.summary.LocationsUpserted = res.LocationsUpserted
	r.summary.ReadingsPersisted = res.ReadingsInserted
	r.summary.ReadingsSkipped = res.ReadingsSkipped
	r.summary.ReadingsDuplicate = res.ReadingsDuplicate
	m.ReadingsPersisted.WithLabelValues(store.Backend()).Add(float64(res.ReadingsInserted))
	m.ReadingsSkipped.WithLabelValues(store.Backend()).Add(float64(res.ReadingsSkipped))
	r.transition(domain.StateHealthRecorded)

	p.publish(ctx, r, res.Persisted, weather)

	r.transition(domain.StateDone)
	return nil
}

// publish forwards readings and weather with bounded retries. Failures are
// logged and counted only.
func (p *Pipeline) publish(ctx context.Context, r *run, readings []domain.CanonicalReading, weather []domain.WeatherObservation) {
	if p.opts.Publisher == nil {
		return
	}
	runID := r.rc.RunID()
	steps := []struct {
		what string
		fn   func() error
	}{
		{"readings", func() error { return p.opts.Publisher.PublishReadings(ctx, runID, readings) }},
		{"weather", func() error { return p.opts.Publisher.PublishWeather(ctx, runID, weather) }},
	}
	for _, step := range steps {
		if err := p.withRetry(ctx, step.fn); err != nil {
			p.opts.Metrics.PublishErrors.Inc()
			r.logger.Warn("publish failed", "records", step.what, "error", err)
		}
	}
}

func (p *Pipeline) withRetry(ctx context.Context, fn func() error) error {
	backoff := p.opts.PublishBackoff
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == publishAttempts || !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxPublishBackoff)
	}
	return err
}

func (p *Pipeline) finish(r *run) {
	m := p.opts.Metrics
	m.RunsTotal.WithLabelValues(string(r.state)).Inc()
	m.RunDuration.Observe(r.summary.Duration.Seconds())
	m.LastRunEnded.Set(float64(p.clock.Now().Unix()))

	summary := r.summary
	p.last.Store(&summary)

	if r.state == domain.StateDone {
		m.LastRunOK.Set(1)
		p.ready.Store(true)
		r.logger.Info("ingestion run finished",
			"state", r.state,
			"records_fetched", summary.RecordsFetched,
			"readings_produced", summary.ReadingsProduced,
			"records_skipped", summary.RecordsSkipped,
			"readings_persisted", summary.ReadingsPersisted,
			"readings_skipped", summary.ReadingsSkipped,
			"readings_duplicate", summary.ReadingsDuplicate,
			"weather_observations", summary.WeatherObserved,
			"duration", summary.Duration,
		)
		return
	}
	m.LastRunOK.Set(0)
	r.logger.Error("ingestion run failed", "state", r.state, "error", summary.Error, "duration", summary.Duration)
}

func outcomes(results []SourceResult) []domain.SourceOutcome {
	out := make([]domain.SourceOutcome, 0, len(results))
	for _, res := range results {
		out = append(out, domain.SourceOutcome{
			Name:    res.Health.SourceName,
			Status:  res.Health.Status,
			Records: len(res.Records),
			Error:   res.Health.LastError,
		})
	}
	return out
}
