package telemetry

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ribotflow/backend/internal/domain/shared"
)

const namespace = "ribotflow"

// Result label values
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds the Prometheus collectors of the service. Every recording
// method is a no-op on a nil receiver so services can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	rowChanges    *prometheus.CounterVec
	documentsSent *prometheus.CounterVec
	emails        *prometheus.CounterVec
	aiRequests    *prometheus.CounterVec
	aiDuration    *prometheus.HistogramVec
	audioJobs     *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	realtimeConns prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "route"}),
		rowChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "domain", Name: "row_changes_total",
			Help: "Row change events published per aggregate and change type.",
		}, []string{"aggregate", "change"}),
		documentsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "documents", Name: "sent_total",
			Help: "Quotes and invoices sent by email.",
		}, []string{"kind", "result"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "mail", Name: "messages_total",
			Help: "Outgoing email messages.",
		}, []string{"result"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ai", Name: "requests_total",
			Help: "Calls to the AI completion API.",
		}, []string{"operation", "result"}),
		aiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ai", Name: "request_duration_seconds",
			Help:    "Duration of AI completion calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"operation"}),
		audioJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "audio", Name: "jobs_total",
			Help: "Audio transcription jobs by outcome.",
		}, []string{"outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "job_runs_total",
			Help: "Scheduled job runs.",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "job_run_duration_seconds",
			Help:    "Duration of scheduled job runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"job"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "lookups_total",
			Help: "List cache lookups by result.",
		}, []string{"resource", "result"}),
		realtimeConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "realtime", Name: "connections",
			Help: "Open realtime websocket connections.",
		}),
	}

	m.registry.MustRegister(
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.rowChanges, m.documentsSent, m.emails,
		m.aiRequests, m.aiDuration, m.audioJobs,
		m.jobRuns, m.jobDuration, m.cacheLookups, m.realtimeConns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding every collector
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterDBStats exports connection pool statistics of db
func (m *Metrics) RegisterDBStats(db *sql.DB, dbName string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, dbName))
}

// TrackInFlight increments the in-flight gauge and returns its decrement
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// ObserveHTTP records a finished request. route is the matched route
// template so that ids do not explode the label space.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveEvent counts a published domain event. Use it as an event bus observer.
func (m *Metrics) ObserveEvent(e shared.DomainEvent) {
	if m == nil {
		return
	}
	m.rowChanges.WithLabelValues(e.AggregateType(), string(e.Change())).Inc()
}

// ObserveJob records a scheduled job run. Use it as a scheduler observer.
func (m *Metrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, result(err)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// RecordDocumentSent counts a quote or invoice delivery
func (m *Metrics) RecordDocumentSent(kind string, err error) {
	if m == nil {
		return
	}
	m.documentsSent.WithLabelValues(kind, result(err)).Inc()
}

// RecordEmail counts an outgoing message
func (m *Metrics) RecordEmail(err error) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(result(err)).Inc()
}

// RecordAI records an AI completion call
func (m *Metrics) RecordAI(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.aiRequests.WithLabelValues(operation, result(err)).Inc()
	m.aiDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAudioJob counts an audio job outcome (completed, retried, failed)
func (m *Metrics) RecordAudioJob(outcome string) {
	if m == nil {
		return
	}
	m.audioJobs.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup counts a list cache hit or miss
func (m *Metrics) RecordCacheLookup(resource string, hit bool) {
	if m == nil {
		return
	}
	res := "miss"
	if hit {
		res = "hit"
	}
	m.cacheLookups.WithLabelValues(resource, res).Inc()
}

// AddRealtimeConnections moves the connection gauge. Use it as the hub's
// connection change callback.
func (m *Metrics) AddRealtimeConnections(delta int) {
	if m == nil {
		return
	}
	m.realtimeConns.Add(float64(delta))
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
