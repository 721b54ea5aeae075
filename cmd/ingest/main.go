// Command ingest fetches water-quality records from the configured open-data
// sources, normalizes them and persists the readings. With INGEST_INTERVAL
// unset it performs a single run and exits non-zero if the run fails;
// otherwise it runs on that interval and serves /healthz, /readyz, /status
// and /metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/water-quality-etl/internal/adapter/archive"
	"github.com/couchcryptid/water-quality-etl/internal/adapter/datagov"
	"github.com/couchcryptid/water-quality-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/water-quality-etl/internal/adapter/kafka"
	"github.com/couchcryptid/water-quality-etl/internal/adapter/openweather"
	"github.com/couchcryptid/water-quality-etl/internal/adapter/postgres"
	"github.com/couchcryptid/water-quality-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/water-quality-etl/internal/config"
	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/couchcryptid/water-quality-etl/internal/observability"
	"github.com/couchcryptid/water-quality-etl/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ingest failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()
	catalog := domain.DefaultCatalog()

	var archiver datagov.PageArchiver
	if cfg.ArchiveBucket != "" {
		store, err := archive.New(ctx, archive.Config{
			Bucket:   cfg.ArchiveBucket,
			Prefix:   cfg.ArchivePrefix,
			Region:   cfg.ArchiveRegion,
			Endpoint: cfg.ArchiveEndpoint,
		})
		if err != nil {
			return fmt.Errorf("raw archive: %w", err)
		}
		archiver = store
		logger.Info("raw page archive enabled", "bucket", cfg.ArchiveBucket, "prefix", cfg.ArchivePrefix)
	}

	// Weather enrichment is feature-flagged via WEATHER_API_KEY.
	var weather domain.WeatherProvider
	if cfg.WeatherAPIKey != "" {
		client := openweather.NewClient(cfg.WeatherAPIKey, cfg.WeatherBaseURL, cfg.RequestTimeout, metrics, logger)
		cached, err := openweather.NewCachedProvider(client, cfg.WeatherCacheSize, metrics)
		if err != nil {
			return err
		}
		weather = cached
		logger.Info("weather enrichment enabled", "max_locations", cfg.WeatherMaxLocations, "cache_size", cfg.WeatherCacheSize)
	} else {
		logger.Info("weather enrichment disabled")
	}

	var publisher pipeline.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		pub := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		publisher = pub
		logger.Info("reading publication enabled", "topic", cfg.KafkaTopic)
	}

	client := datagov.NewClient(cfg.RequestTimeout, cfg.PageSize, cfg.MaxPages, archiver, metrics, logger)
	p := pipeline.New(pipeline.Options{
		Sources:    cfg.Sources,
		Fetcher:    pipeline.NewFetcher(client, catalog, cfg.SampleSeed, metrics, logger),
		Normalizer: domain.NewNormalizer(catalog, domain.NewGeoResolver(nil), logger),
		Primary: func(ctx context.Context) (pipeline.Store, error) {
			s, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.ProbeTimeout, catalog)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Fallback: func(ctx context.Context) (pipeline.Store, error) {
			s, err := sqlite.Open(ctx, cfg.SQLitePath)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Weather:             weather,
		WeatherMaxLocations: cfg.WeatherMaxLocations,
		Publisher:           publisher,
		Metrics:             metrics,
		Logger:              logger,
	})

	newRunContext := func() domain.RunContext {
		return domain.NewRunContext(cfg.AllowSampleData, cfg.Credentials())
	}

	if cfg.IngestInterval == 0 {
		_, err := p.Run(ctx, newRunContext())
		return err
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return p.RunEvery(gctx, cfg.IngestInterval, newRunContext)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	logger.Info("shutdown complete")
	return err
}
