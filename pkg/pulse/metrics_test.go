package pulse

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordDispatchAndEffects(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(registry), WithNamespace("test"))
	bus := newTestBus(&bytes.Buffer{}, WithMetrics(m))

	bus.On("e", func(context.Context, any) error { return errors.New("x") })
	bus.On("e", func(context.Context, any) error { panic("y") })
	bus.Emit("e", nil)
	bus.Emit("e", nil)

	if got := testutil.ToFloat64(m.eventsEmitted.WithLabelValues("e")); got != 2 {
		t.Errorf("expected 2 emits, got %v", got)
	}
	if got := testutil.ToFloat64(m.handlerFailures.WithLabelValues("e", "error")); got != 2 {
		t.Errorf("expected 2 handler errors, got %v", got)
	}
	if got := testutil.ToFloat64(m.handlerFailures.WithLabelValues("e", "panic")); got != 2 {
		t.Errorf("expected 2 handler panics, got %v", got)
	}

	eff := bus.RegisterAsyncEffect("load", func(context.Context, any) error {
		return errors.New("nope")
	}, NewStore())
	defer eff.Dispose()
	bus.Emit("load", nil)
	eff.Wait()

	if got := testutil.ToFloat64(m.effectInvocations.WithLabelValues("load", "failure")); got != 1 {
		t.Errorf("expected 1 failed invocation, got %v", got)
	}
	if got := testutil.ToFloat64(m.effectsInFlight.WithLabelValues("load")); got != 0 {
		t.Errorf("expected nothing in flight, got %v", got)
	}
	if m.Gatherer() != registry {
		t.Error("expected gatherer to be the registry the metrics were registered in")
	}
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	m.recordEmit("e")
	m.recordHandlerFailure("e", "panic")
	m.recordEffectStart("e")
	m.recordEffectEnd("e", "success", 0)
	if m.Gatherer() != prometheus.DefaultGatherer {
		t.Error("expected default gatherer for nil metrics")
	}
}
