package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

const namespace = "docreq"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	transitionsTotal      *prometheus.CounterVec
	clearanceActionsTotal *prometheus.CounterVec
	domainErrorsTotal     *prometheus.CounterVec
	rateLimitedTotal      prometheus.Counter
	shedTotal             prometheus.Counter
	notifyRetriesTotal    *prometheus.CounterVec
	breakerStateChanges   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		},
		[]string{"method", "route", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "route"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		},
	)
	transitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "workflow",
			Name:        "transitions_total",
			Help:        "Committed document status transitions by target status.",
			ConstLabels: constLabels,
		},
		[]string{"to"},
	)
	clearanceActionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "workflow",
			Name:        "clearance_actions_total",
			Help:        "Committed clearance sub-workflow actions.",
			ConstLabels: constLabels,
		},
		[]string{"action"},
	)
	domainErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "domain_errors_total",
			Help:        "Errors returned to clients by error kind.",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)
	rateLimitedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "rate_limited_total",
			Help:        "Requests rejected by the rate limiter.",
			ConstLabels: constLabels,
		},
	)
	shedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "shed_total",
			Help:        "Requests rejected by the backpressure gate.",
			ConstLabels: constLabels,
		},
	)
	notifyRetriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "notify",
			Name:        "retries_total",
			Help:        "Retried notification publish attempts.",
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)
	breakerStateChanges := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "notify",
			Name:        "breaker_state_changes_total",
			Help:        "Circuit breaker state changes by target state.",
			ConstLabels: constLabels,
		},
		[]string{"operation", "to"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		transitionsTotal,
		clearanceActionsTotal,
		domainErrorsTotal,
		rateLimitedTotal,
		shedTotal,
		notifyRetriesTotal,
		breakerStateChanges,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		service:               service,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		transitionsTotal:      transitionsTotal,
		clearanceActionsTotal: clearanceActionsTotal,
		domainErrorsTotal:     domainErrorsTotal,
		rateLimitedTotal:      rateLimitedTotal,
		shedTotal:             shedTotal,
		notifyRetriesTotal:    notifyRetriesTotal,
		breakerStateChanges:   breakerStateChanges,
	}
}

func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware labels requests by chi route pattern so ids never become label
// values.
func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		route := routePattern(r)
		m.requestTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func (m *HTTPServerMetrics) ObserveTransition(to domain.DocumentStatus) {
	m.transitionsTotal.WithLabelValues(string(to)).Inc()
}

func (m *HTTPServerMetrics) ObserveClearanceAction(action string) {
	if action == "" {
		action = "unknown"
	}
	m.clearanceActionsTotal.WithLabelValues(action).Inc()
}

func (m *HTTPServerMetrics) RecordDomainError(kind string) {
	if kind == "" {
		return
	}
	m.domainErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *HTTPServerMetrics) RecordRateLimited() {
	m.rateLimitedTotal.Inc()
}

func (m *HTTPServerMetrics) RecordShed() {
	m.shedTotal.Inc()
}

func (m *HTTPServerMetrics) RecordNotifyRetry(operation string, _ int) {
	m.notifyRetriesTotal.WithLabelValues(operation).Inc()
}

func (m *HTTPServerMetrics) RecordBreakerStateChange(operation, _, to string) {
	m.breakerStateChanges.WithLabelValues(operation, to).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
