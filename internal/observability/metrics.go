package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aqi_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the map service.
type Metrics struct {
	// Scoring client metrics.
	ScoringRequests *prometheus.CounterVec // labels: outcome={success,transport_error,malformed,breaker_open}
	ScoringDuration prometheus.Histogram

	// Batch orchestrator metrics.
	BatchRuns       *prometheus.CounterVec // labels: outcome={success,no_results,cancelled}
	BatchRunning    prometheus.Gauge
	BatchCompleted  prometheus.Gauge
	BatchTotal      prometheus.Gauge
	BatchDropped    prometheus.Counter
	ChunkDuration   prometheus.Histogram
	BatchRunSeconds prometheus.Histogram

	// On-demand lane metrics.
	OnDemandQueries  *prometheus.CounterVec // labels: outcome={success,error,superseded}
	ForecastRequests *prometheus.CounterVec // labels: outcome={success,error,superseded}

	// Export and scheduling metrics.
	ExportedResults *prometheus.CounterVec // labels: outcome={success,error,dropped}
	RefreshTriggers *prometheus.CounterVec // labels: outcome={started,skipped,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		ScoringRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_requests_total",
			Help:      "Scoring service requests by outcome.",
		}, []string{"outcome"}),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_request_duration_seconds",
			Help:      "Scoring service request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		BatchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_runs_total",
			Help:      "Settled reference batch runs by outcome.",
		}, []string{"outcome"}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_running",
			Help:      "1 while a reference batch run is in flight, 0 otherwise.",
		}),
		BatchCompleted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_completed",
			Help:      "Successful results in the current or last batch run.",
		}),
		BatchTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_total",
			Help:      "Reference locations in the current or last batch run.",
		}),
		BatchDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_dropped_total",
			Help:      "Reference location queries that failed and were dropped.",
		}),
		ChunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_chunk_duration_seconds",
			Help:      "Time for all queries in one chunk to settle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		BatchRunSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_run_duration_seconds",
			Help:      "Duration of a complete reference batch run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		OnDemandQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ondemand_queries_total",
			Help:      "On-demand queries by outcome.",
		}, []string{"outcome"}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_requests_total",
			Help:      "Forecast lookups for the on-demand selection by outcome.",
		}, []string{"outcome"}),
		ExportedResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exported_results_total",
			Help:      "Settled batch results published to the export topic by outcome.",
		}, []string{"outcome"}),
		RefreshTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_triggers_total",
			Help:      "Scheduled refresh attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ScoringRequests,
		m.ScoringDuration,
		m.BatchRuns,
		m.BatchRunning,
		m.BatchCompleted,
		m.BatchTotal,
		m.BatchDropped,
		m.ChunkDuration,
		m.BatchRunSeconds,
		m.OnDemandQueries,
		m.ForecastRequests,
		m.ExportedResults,
		m.RefreshTriggers,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
