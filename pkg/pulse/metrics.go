package pulse

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus collectors of a bus.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "pulse").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for effect duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures NewMetrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the effect duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "pulse",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors updated by a bus and its async effects.
// A nil *Metrics records nothing.
type Metrics struct {
	eventsEmitted     *prometheus.CounterVec
	handlerFailures   *prometheus.CounterVec
	effectInvocations *prometheus.CounterVec
	effectDuration    *prometheus.HistogramVec
	effectsInFlight   *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the pulse collectors.
//
// Collectors:
//   - pulse_events_emitted_total{event}
//   - pulse_handler_failures_total{event,kind}
//   - pulse_effect_invocations_total{event,outcome}
//   - pulse_effect_duration_seconds{event}
//   - pulse_effects_in_flight{event}
//
// Registering twice on the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	m := &Metrics{
		eventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_emitted_total",
			Help:        "Total number of bus dispatches",
			ConstLabels: config.ConstLabels,
		}, []string{"event"}),

		handlerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "handler_failures_total",
			Help:        "Total number of isolated handler failures",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "kind"}),

		effectInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_invocations_total",
			Help:        "Total number of finished async effect invocations",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "outcome"}),

		effectDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_duration_seconds",
			Help:        "Async effect action duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"event"}),

		effectsInFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effects_in_flight",
			Help:        "Number of async effect invocations currently running",
			ConstLabels: config.ConstLabels,
		}, []string{"event"}),
	}

	if g, ok := config.Registry.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Gatherer returns the gatherer matching the registry the metrics live in.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.gatherer
}

func (m *Metrics) recordEmit(event string) {
	if m == nil {
		return
	}
	m.eventsEmitted.WithLabelValues(event).Inc()
}

func (m *Metrics) recordHandlerFailure(event, kind string) {
	if m == nil {
		return
	}
	m.handlerFailures.WithLabelValues(event, kind).Inc()
}

func (m *Metrics) recordEffectStart(event string) {
	if m == nil {
		return
	}
	m.effectsInFlight.WithLabelValues(event).Inc()
}

func (m *Metrics) recordEffectEnd(event, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.effectsInFlight.WithLabelValues(event).Dec()
	m.effectInvocations.WithLabelValues(event, outcome).Inc()
	m.effectDuration.WithLabelValues(event).Observe(elapsed.Seconds())
}
