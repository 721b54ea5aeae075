package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "water_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for ingestion runs.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec // labels: state={done,fatal_config,fatal_fetch,fatal_persistence}
	RunDuration  prometheus.Histogram
	LastRunOK    prometheus.Gauge
	LastRunEnded prometheus.Gauge

	// Fetch metrics.
	PagesFetched    *prometheus.CounterVec // labels: source
	RecordsFetched  *prometheus.CounterVec // labels: source
	FetchErrors     *prometheus.CounterVec // labels: source
	SampleFallbacks *prometheus.CounterVec // labels: source

	// Normalization and persistence metrics.
	ReadingsProduced  prometheus.Counter
	RecordsSkipped    prometheus.Counter
	ReadingsPersisted *prometheus.CounterVec // labels: backend
	ReadingsSkipped   *prometheus.CounterVec // labels: backend
	BackendSelected   *prometheus.GaugeVec   // labels: backend

	// Enrichment and side-channel metrics.
	WeatherRequests *prometheus.CounterVec // labels: outcome={success,error}
	WeatherCache    *prometheus.CounterVec // labels: result={hit,miss}
	PublishErrors   prometheus.Counter
	ArchiveErrors   prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.LastRunOK,
		m.LastRunEnded,
		m.PagesFetched,
		m.RecordsFetched,
		m.FetchErrors,
		m.SampleFallbacks,
		m.ReadingsProduced,
		m.RecordsSkipped,
		m.ReadingsPersisted,
		m.ReadingsSkipped,
		m.BackendSelected,
		m.WeatherRequests,
		m.WeatherCache,
		m.PublishErrors,
		m.ArchiveErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed ingestion runs by final state.",
		}, []string{"state"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of an ingestion run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		LastRunOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the most recent run reached Done, 0 otherwise.",
		}),
		LastRunEnded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent run ended.",
		}),
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Upstream pages retrieved by source.",
		}, []string{"source"}),
		RecordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Raw records obtained by source, including sample records.",
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Failed upstream retrievals by source.",
		}, []string{"source"}),
		SampleFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_fallbacks_total",
			Help:      "Runs in which a source was served by the sample generator.",
		}, []string{"source"}),
		ReadingsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_produced_total",
			Help:      "Canonical readings produced by normalization.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Raw records that yielded no readings.",
		}),
		ReadingsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_persisted_total",
			Help:      "Readings written by backend.",
		}, []string{"backend"}),
		ReadingsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_skipped_total",
			Help:      "Readings not written because their location or parameter was unresolved.",
		}, []string{"backend"}),
		BackendSelected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_selected",
			Help:      "1 for the backend chosen by the most recent run.",
		}, []string{"backend"}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Weather API requests by outcome.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed attempts to publish readings to Kafka.",
		}),
		ArchiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_errors_total",
			Help:      "Failed attempts to archive raw pages.",
		}),
	}
}
