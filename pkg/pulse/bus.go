package pulse

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Handler receives the payload of a dispatched event. A returned error or a
// panic is logged and does not stop the dispatch.
//
// Handlers that start asynchronous work must not block: the bus never waits
// for anything a handler leaves running.
type Handler func(ctx context.Context, payload any) error

// Dispatch describes a completed call to Emit.
type Dispatch struct {
	Event    string
	Payload  any
	Handlers int
	Failures int
	At       time.Time
}

type handlerEntry struct {
	id uint64
	fn Handler
}

type tapEntry struct {
	id uint64
	fn func(Dispatch)
}

// Bus maps event names to ordered lists of handlers.
// The zero value is not usable; create buses with NewBus or use Default.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]*handlerEntry
	taps     []*tapEntry

	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	dispatcher Dispatcher
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	config := newBusConfig(opts)
	return &Bus{
		handlers:   make(map[string][]*handlerEntry),
		logger:     config.logger,
		metrics:    config.metrics,
		tracer:     config.tracerProvider.Tracer(tracerName),
		dispatcher: config.dispatcher,
	}
}

// On registers h for event. Registering the same function twice yields two
// calls per dispatch. The returned function removes this registration only;
// calling it again is a no-op.
func (b *Bus) On(event string, h Handler) func() {
	if h == nil {
		return func() {}
	}
	entry := &handlerEntry{id: nextID(), fn: h}

	b.mu.Lock()
	b.handlers[event] = append(b.handlers[event], entry)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.off(event, entry.id)
		})
	}
}

func (b *Bus) off(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[event]
	for i, e := range entries {
		if e.id != id {
			continue
		}
		if len(entries) == 1 {
			delete(b.handlers, event)
			return
		}
		b.handlers[event] = append(entries[:i:i], entries[i+1:]...)
		return
	}
}

// Handlers returns the number of registrations for event.
func (b *Bus) Handlers(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

// Emit dispatches payload to the handlers of event. See EmitContext.
func (b *Bus) Emit(event string, payload any) {
	b.EmitContext(context.Background(), event, payload)
}

// EmitContext calls every handler registered for event at the moment of the
// call, in registration order. Handlers added or removed by a handler take
// effect from the next dispatch. Without handlers EmitContext does nothing.
func (b *Bus) EmitContext(ctx context.Context, event string, payload any) {
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.RLock()
	entries := b.handlers[event]
	snapshot := make([]*handlerEntry, len(entries))
	copy(snapshot, entries)
	hasTaps := len(b.taps) > 0
	b.mu.RUnlock()

	if len(snapshot) == 0 && !hasTaps {
		return
	}

	b.metrics.recordEmit(event)

	ctx, span := b.tracer.Start(ctx, "pulse.emit "+event,
		trace.WithAttributes(
			attribute.String("pulse.event", event),
			attribute.Int("pulse.handlers", len(snapshot)),
		),
	)
	defer span.End()

	failures := 0
	for i, entry := range snapshot {
		herr := b.invoke(ctx, event, i, entry.fn, payload)
		if herr == nil {
			continue
		}
		failures++
		b.reportHandlerError(herr)
		span.RecordError(herr)
	}
	if failures > 0 {
		span.SetStatus(codes.Error, "handler failures")
	}

	if hasTaps {
		b.notifyTaps(Dispatch{
			Event:    event,
			Payload:  payload,
			Handlers: len(snapshot),
			Failures: failures,
			At:       time.Now(),
		})
	}
}

// invoke runs one handler with panic recovery.
func (b *Bus) invoke(ctx context.Context, event string, index int, h Handler, payload any) (herr *HandlerError) {
	defer func() {
		if r := recover(); r != nil {
			herr = &HandlerError{
				Event: event,
				Index: index,
				Panic: r,
				Stack: debug.Stack(),
			}
		}
	}()

	if err := h(ctx, payload); err != nil {
		return &HandlerError{Event: event, Index: index, Err: err}
	}
	return nil
}

func (b *Bus) reportHandlerError(herr *HandlerError) {
	b.metrics.recordHandlerFailure(herr.Event, herr.Kind())
	if herr.Panic != nil {
		b.logger.Error("handler panic",
			"event", herr.Event,
			"handler", herr.Index,
			"panic", herr.Panic,
			"stack", string(herr.Stack))
		return
	}
	b.logger.Warn("handler failed",
		"event", herr.Event,
		"handler", herr.Index,
		"error", herr.Err)
}

// Tap registers fn to observe every dispatch after its handlers ran,
// including dispatches of events without handlers.
func (b *Bus) Tap(fn func(Dispatch)) func() {
	if fn == nil {
		return func() {}
	}
	entry := &tapEntry{id: nextID(), fn: fn}

	b.mu.Lock()
	b.taps = append(b.taps, entry)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, t := range b.taps {
				if t.id == entry.id {
					b.taps = append(b.taps[:i:i], b.taps[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *Bus) notifyTaps(d Dispatch) {
	b.mu.RLock()
	taps := make([]*tapEntry, len(b.taps))
	copy(taps, b.taps)
	b.mu.RUnlock()

	for _, t := range taps {
		b.safeTap(t.fn, d)
	}
}

func (b *Bus) safeTap(fn func(Dispatch), d Dispatch) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("tap panic",
				"event", d.Event,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn(d)
}

var (
	defaultBus     *Bus
	defaultBusOnce sync.Once
)

// Default returns the process-wide bus. It is created on first use and is
// never reset or torn down.
func Default() *Bus {
	defaultBusOnce.Do(func() {
		defaultBus = NewBus()
	})
	return defaultBus
}

// ConfigureDefault creates the process-wide bus with opts. It reports false,
// and changes nothing, when the bus already exists.
func ConfigureDefault(opts ...Option) bool {
	applied := false
	defaultBusOnce.Do(func() {
		defaultBus = NewBus(opts...)
		applied = true
	})
	return applied
}

// On registers h on the process-wide bus.
func On(event string, h Handler) func() {
	return Default().On(event, h)
}

// Emit dispatches payload on the process-wide bus.
func Emit(event string, payload any) {
	Default().Emit(event, payload)
}

// EmitContext dispatches payload on the process-wide bus.
func EmitContext(ctx context.Context, event string, payload any) {
	Default().EmitContext(ctx, event, payload)
}
