package pulse

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation name used for spans.
const tracerName = "github.com/vango-dev/pulse"

// Dispatcher runs a function on the host's UI loop. Async effects use it
// to apply their completion writes; the default runs fn immediately on the
// goroutine that finished the action.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function into a Dispatcher.
type DispatcherFunc func(func())

// Dispatch calls f(fn).
func (f DispatcherFunc) Dispatch(fn func()) {
	if f == nil || fn == nil {
		return
	}
	f(fn)
}

// InlineDispatcher runs callbacks immediately in the caller goroutine.
var InlineDispatcher Dispatcher = DispatcherFunc(func(fn func()) {
	fn()
})

type busConfig struct {
	logger         *slog.Logger
	metrics        *Metrics
	tracerProvider trace.TracerProvider
	dispatcher     Dispatcher
}

// Option configures a Bus.
type Option func(*busConfig)

// WithLogger sets the logger used for handler and action failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *busConfig) {
		c.logger = logger
	}
}

// WithMetrics attaches Prometheus collectors to the bus.
func WithMetrics(m *Metrics) Option {
	return func(c *busConfig) {
		c.metrics = m
	}
}

// WithTracerProvider sets the OpenTelemetry provider used for dispatch and
// effect spans. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *busConfig) {
		c.tracerProvider = tp
	}
}

// WithDispatcher sets where async effects apply their completion writes.
func WithDispatcher(d Dispatcher) Option {
	return func(c *busConfig) {
		c.dispatcher = d
	}
}

func newBusConfig(opts []Option) busConfig {
	var c busConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "pulse")
	}
	if c.tracerProvider == nil {
		c.tracerProvider = otel.GetTracerProvider()
	}
	if c.dispatcher == nil {
		c.dispatcher = InlineDispatcher
	}
	return c
}
