package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	consumedTotal   *prometheus.CounterVec
	handleDuration  *prometheus.HistogramVec
	handleInFlight  prometheus.Gauge
	deliveryLag     prometheus.Histogram
	reconciledTotal prometheus.Counter
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	consumedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "notifications_consumed_total",
			Help:        "Notifications handled by kind and status.",
			ConstLabels: constLabels,
		},
		[]string{"kind", "status"},
	)
	handleDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "notification_handle_duration_seconds",
			Help:        "Notification handling duration in seconds by status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	handleInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "notifications_in_flight",
			Help:        "Number of notifications being handled.",
			ConstLabels: constLabels,
		},
	)
	deliveryLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "notification_lag_seconds",
			Help:        "Delay between notification creation and handling start.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: constLabels,
		},
	)
	reconciledTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "clearance_reconciled_total",
			Help:        "Requests moved from awaiting to scheduled by reconciliation.",
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(consumedTotal, handleDuration, handleInFlight, deliveryLag, reconciledTotal)

	return &WorkerMetrics{
		registry:        registry,
		consumedTotal:   consumedTotal,
		handleDuration:  handleDuration,
		handleInFlight:  handleInFlight,
		deliveryLag:     deliveryLag,
		reconciledTotal: reconciledTotal,
	}
}

func (m *WorkerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartNotification() {
	m.handleInFlight.Inc()
}

func (m *WorkerMetrics) FinishNotification(kind string, duration time.Duration, err error) {
	m.handleInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	if kind == "" {
		kind = "unknown"
	}
	m.consumedTotal.WithLabelValues(kind, status).Inc()
	m.handleDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveDeliveryLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.deliveryLag.Observe(lag.Seconds())
}

func (m *WorkerMetrics) AddReconciled(n int) {
	if n <= 0 {
		return
	}
	m.reconciledTotal.Add(float64(n))
}
