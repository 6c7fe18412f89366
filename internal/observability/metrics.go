package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for both pipelines.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	RunDuration     *prometheus.GaugeVec   // labels: pipeline={namematch,history}
	RowsRead        *prometheus.CounterVec // labels: pipeline
	RowsSkipped     *prometheus.CounterVec // labels: pipeline, reason={no_match,missing_location_id}
	RowsWritten     *prometheus.CounterVec // labels: table={enriched,events,sources,coverage}

	// CST API metrics.
	LookupRequests  *prometheus.CounterVec   // labels: query={combined,zip}, outcome={match,empty,error}
	LookupCache     *prometheus.CounterVec   // labels: result={hit,miss}
	HistoryRequests *prometheus.CounterVec   // labels: outcome={success,error}
	APIDuration     *prometheus.HistogramVec // labels: endpoint={name_match,history}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snowtistics",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress, 0 otherwise.",
		}),
		RunDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "snowtistics",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last pipeline run.",
		}, []string{"pipeline"}),
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowtistics",
			Name:      "rows_read_total",
			Help:      "Input rows read by pipeline.",
		}, []string{"pipeline"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowtistics",
			Name:      "rows_skipped_total",
			Help:      "Input rows that produced no output, by pipeline and reason.",
		}, []string{"pipeline", "reason"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowtistics",
			Name:      "rows_written_total",
			Help:      "Output rows produced, by table.",
		}, []string{"table"}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowtistics",
			Name:      "lookup_requests_total",
			Help:      "Name-match lookups by query shape and outcome.",
		}, []string{"query", "outcome"}),
		LookupCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowtistics",
			Name:      "lookup_cache_total",
			Help:      "Name-match cache lookups by result.",
		}, []string{"result"}),
		HistoryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "snowtistics",
			Name:      "history_requests_total",
			Help:      "Historical events requests by outcome.",
		}, []string{"outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "snowtistics",
			Name:      "api_request_duration_seconds",
			Help:      "CST API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
	}

	prometheus.MustRegister(
		m.PipelineRunning,
		m.RunDuration,
		m.RowsRead,
		m.RowsSkipped,
		m.RowsWritten,
		m.LookupRequests,
		m.LookupCache,
		m.HistoryRequests,
		m.APIDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "snowtistics", Name: "pipeline_running"}),
		RunDuration:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "snowtistics", Name: "run_duration_seconds"}, []string{"pipeline"}),
		RowsRead:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snowtistics", Name: "rows_read_total"}, []string{"pipeline"}),
		RowsSkipped:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snowtistics", Name: "rows_skipped_total"}, []string{"pipeline", "reason"}),
		RowsWritten:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snowtistics", Name: "rows_written_total"}, []string{"table"}),
		LookupRequests:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snowtistics", Name: "lookup_requests_total"}, []string{"query", "outcome"}),
		LookupCache:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snowtistics", Name: "lookup_cache_total"}, []string{"result"}),
		HistoryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "snowtistics", Name: "history_requests_total"}, []string{"outcome"}),
		APIDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "snowtistics", Name: "api_request_duration_seconds"}, []string{"endpoint"}),
	}
}

// WriteTextfile dumps the default registry in the Prometheus text format so a
// node_exporter textfile collector can pick up the results of a batch run.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
