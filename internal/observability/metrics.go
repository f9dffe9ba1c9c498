package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL runner.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge
	LastSuccess     prometheus.Gauge

	// Per-stage record counts of the most recent run.
	RecordsExtracted *prometheus.GaugeVec // labels: source={local,api,registry}
	AnimalsLoaded    prometheus.Gauge
	SheltersLoaded   prometheus.Gauge
	SourceErrors     *prometheus.CounterVec // labels: source

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider
	GeocodeEnabled     prometheus.Gauge

	SnapshotsPublished prometheus.Counter
}

// NewMetrics creates and registers all runner metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PipelineRunning,
		m.LastSuccess,
		m.RecordsExtracted,
		m.AnimalsLoaded,
		m.SheltersLoaded,
		m.SourceErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.SnapshotsPublished,
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
			Namespace: "shelter_etl",
			Name:      "runs_total",
			Help:      "ETL runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shelter_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-transform-load run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shelter_etl",
			Name:      "pipeline_running",
			Help:      "1 while the periodic runner is active, 0 when shut down.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shelter_etl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		RecordsExtracted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "shelter_etl",
			Name:      "records_extracted",
			Help:      "Raw records read from each source in the last run.",
		}, []string{"source"}),
		AnimalsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shelter_etl",
			Name:      "animals_loaded",
			Help:      "Rows written to the animals table in the last run.",
		}),
		SheltersLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shelter_etl",
			Name:      "shelters_loaded",
			Help:      "Rows written to the shelters table in the last run.",
		}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelter_etl",
			Name:      "source_errors_total",
			Help:      "Source fetch failures treated as empty input.",
		}, []string{"source"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelter_etl",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelter_etl",
			Name:      "geocode_cache_total",
			Help:      "Process-wide geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shelter_etl",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shelter_etl",
			Name:      "geocode_enabled",
			Help:      "1 when a geocoding provider is configured, 0 otherwise.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shelter_etl",
			Name:      "snapshots_published_total",
			Help:      "Shelter snapshots published to Kafka.",
		}),
	}
}
