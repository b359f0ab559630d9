// Package telemetry exposes the service's Prometheus metrics. Everything is
// registered on an explicit registry so tests can build isolated instances.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proctrace"

// Telemetry bundles every metric family the service records.
type Telemetry struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	sessionsSaved    *prometheus.CounterVec
	duplicateSaves   prometheus.Counter
	eventsLogged     *prometheus.CounterVec
	comparisonRuns   prometheus.Counter
	analysisDuration prometheus.Histogram
	pairsScored      prometheus.Counter
	pairsSkipped     *prometheus.CounterVec
	anomalousGroups  prometheus.Gauge
	wsClients        prometheus.Gauge
	certsIssued      *prometheus.CounterVec
}

// New creates a Telemetry instance backed by a fresh registry.
func New() *Telemetry {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	t := &Telemetry{registry: registry}

	t.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "status"},
	)

	t.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	t.sessionsSaved = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_saved_total",
			Help:      "Total number of completed test sessions stored, by test type and outcome",
		},
		[]string{"test_type", "result"},
	)

	t.duplicateSaves = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_duplicate_total",
		Help:      "Total number of rejected duplicate submissions",
	})

	t.eventsLogged = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_logged_total",
			Help:      "Total number of proctoring events stored, by type",
		},
		[]string{"event_type"},
	)

	t.comparisonRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comparison_runs_total",
		Help:      "Total number of pairwise similarity runs",
	})

	t.analysisDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Wall time of one pairwise similarity run in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	t.pairsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "comparison_pairs_total",
		Help:      "Total number of session pairs scored",
	})

	t.pairsSkipped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparison_skipped_total",
			Help:      "Total number of question comparisons skipped, by reason",
		},
		[]string{"reason"},
	)

	t.anomalousGroups = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "anomalous_fingerprints",
		Help:      "Anomalous fingerprint groups found by the latest grouping run",
	})

	t.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_clients",
		Help:      "Connected websocket review clients",
	})

	t.certsIssued = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "certificates_issued_total",
			Help:      "Total number of certificates issued, by test type",
		},
		[]string{"test_type"},
	)

	return t
}

// Handler serves the metrics endpoint for this registry.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

func (t *Telemetry) RecordHTTPRequest(route, method, status string, durationMs float64) {
	t.httpRequests.WithLabelValues(route, method, status).Inc()
	t.httpRequestDuration.WithLabelValues(route, method).Observe(durationMs)
}

// RecordSessionSaved counts one stored submission by test type and outcome.
func (t *Telemetry) RecordSessionSaved(testType string, passed bool) {
	result := "failed"
	if passed {
		result = "passed"
	}
	t.sessionsSaved.WithLabelValues(testType, result).Inc()
}

func (t *Telemetry) RecordDuplicateSave() {
	t.duplicateSaves.Inc()
}

// RecordEventLogged counts one stored proctoring event. Callers pass a
// normalized type so label cardinality stays bounded.
func (t *Telemetry) RecordEventLogged(eventType string) {
	t.eventsLogged.WithLabelValues(eventType).Inc()
}

func (t *Telemetry) RecordComparisonRun(elapsed time.Duration, pairs int) {
	t.comparisonRuns.Inc()
	t.analysisDuration.Observe(elapsed.Seconds())
	t.pairsScored.Add(float64(pairs))
}

// RecordComparisonSkip counts one dropped question comparison by its stable
// reason code.
func (t *Telemetry) RecordComparisonSkip(reason string) {
	t.pairsSkipped.WithLabelValues(reason).Inc()
}

func (t *Telemetry) SetAnomalousGroups(n int) {
	t.anomalousGroups.Set(float64(n))
}

func (t *Telemetry) WSClientConnected() {
	t.wsClients.Inc()
}

func (t *Telemetry) WSClientDisconnected() {
	t.wsClients.Dec()
}

func (t *Telemetry) RecordCertificateIssued(testType string) {
	t.certsIssued.WithLabelValues(testType).Inc()
}
