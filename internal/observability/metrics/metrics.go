package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures import pipeline and webhook delivery health signals.
type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	importJobs      *prometheus.CounterVec
	importRows      *prometheus.CounterVec
	importRowErrors prometheus.Counter
	importDuration  prometheus.Histogram
	deliveries      *prometheus.CounterVec
	deliveryAttempt *prometheus.CounterVec
	taskQueueDepth  prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// Default returns the singleton metrics registry backed by the
// default prometheus registerer.
func Default() *Metrics {
	metricsOnce.Do(func() {
		metrics = newMetrics(prometheus.DefaultRegisterer)
	})
	return metrics
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogd_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalogd_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		importJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogd_import_jobs_total",
			Help: "Import jobs by terminal status.",
		}, []string{"status"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogd_import_rows_total",
			Help: "Imported rows by outcome (created, updated).",
		}, []string{"outcome"}),
		importRowErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalogd_import_row_errors_total",
			Help: "Rows rejected during import.",
		}),
		importDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalogd_import_duration_seconds",
			Help:    "Wall time of an import job run.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogd_webhook_deliveries_total",
			Help: "Webhook deliveries by event and result.",
		}, []string{"event", "result"}),
		deliveryAttempt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalogd_webhook_delivery_attempts_total",
			Help: "Individual delivery attempts by result.",
		}, []string{"result"}),
		taskQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalogd_task_queue_depth",
			Help: "Tasks waiting in the in-process queue.",
		}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.importJobs,
		m.importRows,
		m.importRowErrors,
		m.importDuration,
		m.deliveries,
		m.deliveryAttempt,
		m.taskQueueDepth,
	)

	return m
}

func (m *Metrics) IncImportJob(status string) {
	if m == nil {
		return
	}
	m.importJobs.WithLabelValues(status).Inc()
}

func (m *Metrics) IncImportRow(outcome string) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncImportRowError() {
	if m == nil {
		return
	}
	m.importRowErrors.Inc()
}

func (m *Metrics) ObserveImportDuration(seconds float64) {
	if m == nil {
		return
	}
	m.importDuration.Observe(seconds)
}

func (m *Metrics) IncDelivery(event, result string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(event, result).Inc()
}

func (m *Metrics) IncDeliveryAttempt(result string) {
	if m == nil {
		return
	}
	m.deliveryAttempt.WithLabelValues(result).Inc()
}

func (m *Metrics) SetTaskQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.taskQueueDepth.Set(float64(depth))
}
