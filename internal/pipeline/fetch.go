package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/water-quality-etl/internal/config"
	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/couchcryptid/water-quality-etl/internal/observability"
)

// SourceFetcher retrieves every page of a source.
type SourceFetcher interface {
	FetchAll(ctx context.Context, rc domain.RunContext, src config.Source) ([]domain.RawRecord, error)
}

// SourceResult is the outcome of fetching one source.
type SourceResult struct {
	Records []domain.RawRecord
	Health  domain.DataSourceHealth
}

// Fetcher applies the credential and sample-data rules around a
// SourceFetcher.
type Fetcher struct {
	client  SourceFetcher
	catalog *domain.Catalog
	seed    uint64
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher. Sample records are drawn from a generator
// seeded with seed and anchored at the current date of each run.
func NewFetcher(client SourceFetcher, catalog *domain.Catalog, seed uint64, metrics *observability.Metrics, logger *slog.Logger) *Fetcher {
	return &Fetcher{client: client, catalog: catalog, seed: seed, metrics: metrics, logger: logger}
}

// Preflight fails with domain.ErrConfiguration when a source has no
// credential and the run does not allow sample data.
func (f *Fetcher) Preflight(rc domain.RunContext, sources []config.Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("%w: no sources configured", domain.ErrConfiguration)
	}
	if rc.AllowSampleData() {
		return nil
	}
	var missing []string
	for _, src := range sources {
		if !rc.HasCredential(src.Name) {
			missing = append(missing, src.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing credentials for %s and sample data is disabled",
			domain.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// FetchAll fetches sources in order. It stops at the first source that can
// neither be fetched nor replaced with sample data.
func (f *Fetcher) FetchAll(ctx context.Context, rc domain.RunContext, sources []config.Source) ([]SourceResult, error) {
	gen := domain.NewSampleGenerator(f.catalog, f.seed, domain.Now())
	results := make([]SourceResult, 0, len(sources))
	for _, src := range sources {
		res, err := f.fetchSource(ctx, rc, gen, src)
		if err != nil {
			return results, err
		}
		f.metrics.RecordsFetched.WithLabelValues(src.Name).Add(float64(len(res.Records)))
		results = append(results, res)
	}
	return results, nil
}

func (f *Fetcher) fetchSource(ctx context.Context, rc domain.RunContext, gen *domain.SampleGenerator, src config.Source) (SourceResult, error) {
	secret, hasCredential := rc.Credential(src.Name)
	health := domain.DataSourceHealth{
		SourceName:     src.Name,
		SourceType:     domain.SourceType(src.Type),
		APIURL:         src.APIURL,
		CredentialHash: domain.HashCredential(secret),
	}
	log := f.logger.With("run_id", rc.RunID(), "source", src.Name)

	if !hasCredential {
		if !rc.AllowSampleData() {
			return SourceResult{}, fmt.Errorf("%w: no credential for source %s", domain.ErrConfiguration, src.Name)
		}
		log.Info("no credential configured, using sample data")
		return f.sample(rc, gen, src, health, "")
	}

	records, err := f.client.FetchAll(ctx, rc, src)
	if err == nil {
		health.LastFetch = domain.Now()
		health.Status = domain.SourceHealthStatus(true, false, true)
		log.Info("source fetched", "records", len(records))
		return SourceResult{Records: records, Health: health}, nil
	}

	if ctx.Err() != nil || !errors.Is(err, domain.ErrTransientFetch) || !rc.AllowSampleData() {
		return SourceResult{}, fmt.Errorf("fetch %s: %w", src.Name, err)
	}

	log.Warn("fetch failed, discarding partial pages and using sample data", "error", err)
	return f.sample(rc, gen, src, health, err.Error())
}

func (f *Fetcher) sample(rc domain.RunContext, gen *domain.SampleGenerator, src config.Source, health domain.DataSourceHealth, lastError string) (SourceResult, error) {
	records, err := gen.Generate(rc, src.Name)
	if err != nil {
		return SourceResult{}, err
	}
	f.metrics.SampleFallbacks.WithLabelValues(src.Name).Inc()

	health.LastFetch = domain.Now()
	health.Status = domain.SourceHealthStatus(health.CredentialHash != "", true, false)
	health.LastError = lastError
	return SourceResult{Records: records, Health: health}, nil
}
