package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ControllerMetrics implements ports.ControllerMetrics on a private registry.
type ControllerMetrics struct {
	registry *prometheus.Registry
	service  string

	uploadTotal     *prometheus.CounterVec
	uploadDuration  *prometheus.HistogramVec
	uploadInFlight  prometheus.Gauge
	streamEvents    *prometheus.CounterVec
	searchStale     prometheus.Counter
	backendDuration *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
}

func NewControllerMetrics(service string) *ControllerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	uploadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "dashboard",
			Subsystem:   "upload",
			Name:        "total",
			Help:        "Finished upload attempts by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"},
	)
	uploadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "dashboard",
			Subsystem:   "upload",
			Name:        "duration_seconds",
			Help:        "Time from submission to the end of the summarize stream.",
			Buckets:     []float64{1, 5, 15, 30, 60, 120, 300, 600},
			ConstLabels: constLabels,
		},
		[]string{"outcome"},
	)
	uploadInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "dashboard",
			Subsystem:   "upload",
			Name:        "in_flight",
			Help:        "Number of summarize streams currently open.",
			ConstLabels: constLabels,
		},
	)
	streamEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "dashboard",
			Subsystem:   "stream",
			Name:        "events_total",
			Help:        "Classified summarize stream events by kind.",
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)
	searchStale := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "dashboard",
			Subsystem:   "search",
			Name:        "stale_total",
			Help:        "Search responses discarded because a newer search was issued.",
			ConstLabels: constLabels,
		},
	)
	backendDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "dashboard",
			Subsystem:   "backend",
			Name:        "request_duration_seconds",
			Help:        "Summarizer backend request duration by operation and status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"operation", "status"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   "dashboard",
			Subsystem:   "backend",
			Name:        "breaker_state",
			Help:        "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)

	registry.MustRegister(uploadTotal, uploadDuration, uploadInFlight, streamEvents, searchStale, backendDuration, breakerState)

	return &ControllerMetrics{
		registry:        registry,
		service:         service,
		uploadTotal:     uploadTotal,
		uploadDuration:  uploadDuration,
		uploadInFlight:  uploadInFlight,
		streamEvents:    streamEvents,
		searchStale:     searchStale,
		backendDuration: backendDuration,
		breakerState:    breakerState,
	}
}

func (m *ControllerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *ControllerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ControllerMetrics) UploadStarted() {
	m.uploadInFlight.Inc()
}

func (m *ControllerMetrics) UploadFinished(outcome string, duration time.Duration) {
	m.uploadInFlight.Dec()
	if outcome == "" {
		outcome = "unknown"
	}
	m.uploadTotal.WithLabelValues(outcome).Inc()
	m.uploadDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *ControllerMetrics) StreamEventObserved(kind string) {
	m.streamEvents.WithLabelValues(kind).Inc()
}

func (m *ControllerMetrics) SearchDiscarded() {
	m.searchStale.Inc()
}

func (m *ControllerMetrics) ObserveBackendRequest(operation, status string, duration time.Duration) {
	if duration < 0 {
		return
	}
	m.backendDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// SetBreakerState records a gobreaker state as its numeric value.
func (m *ControllerMetrics) SetBreakerState(operation string, state int) {
	m.breakerState.WithLabelValues(operation).Set(float64(state))
}
