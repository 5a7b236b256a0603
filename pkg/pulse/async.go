package pulse

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Action is the asynchronous work run by an async effect. It runs on its own
// goroutine; a returned error (or a panic) becomes the effect's failure.
type Action func(ctx context.Context, payload any) error

// OverlapPolicy decides what happens when an event fires again while an
// earlier invocation of the same effect is still running.
type OverlapPolicy int

const (
	// OverlapIndependent runs every dispatch with its own loading/error
	// bookkeeping. Overlapping invocations that finish at different times
	// make "loading" flap. This is the default.
	OverlapIndependent OverlapPolicy = iota

	// OverlapLatest cancels the context of the running invocation. Only the
	// most recent invocation writes to the store when it completes.
	OverlapLatest

	// OverlapDrop ignores dispatches while an invocation is running.
	OverlapDrop

	// OverlapQueue runs dispatches one after another in arrival order.
	OverlapQueue
)

// String returns a human-readable name for the policy.
func (p OverlapPolicy) String() string {
	switch p {
	case OverlapIndependent:
		return "independent"
	case OverlapLatest:
		return "latest"
	case OverlapDrop:
		return "drop"
	case OverlapQueue:
		return "queue"
	default:
		return "unknown"
	}
}

// ParseOverlapPolicy maps a policy name back to its value.
func ParseOverlapPolicy(name string) (OverlapPolicy, bool) {
	switch name {
	case "", "independent":
		return OverlapIndependent, true
	case "latest":
		return OverlapLatest, true
	case "drop":
		return OverlapDrop, true
	case "queue":
		return OverlapQueue, true
	default:
		return OverlapIndependent, false
	}
}

// EffectOption configures an AsyncEffect.
type EffectOption func(*AsyncEffect)

// WithOverlap sets the overlap policy.
func WithOverlap(policy OverlapPolicy) EffectOption {
	return func(e *AsyncEffect) {
		e.policy = policy
	}
}

// WithQueueLimit caps the number of waiting dispatches under OverlapQueue.
// Dispatches beyond the limit are dropped. Zero means no limit.
func WithQueueLimit(n int) EffectOption {
	return func(e *AsyncEffect) {
		e.queueMax = n
	}
}

// OnEffectError registers a callback for every failure, called after the
// store has been updated.
func OnEffectError(fn func(error)) EffectOption {
	return func(e *AsyncEffect) {
		e.onError = fn
	}
}

type queuedDispatch struct {
	ctx     context.Context
	payload any
}

type invocation struct {
	id      ulid.ULID
	seq     uint64
	ctx     context.Context
	cancel  context.CancelFunc
	payload any
}

// AsyncEffect is a bus handler that runs an Action and records its progress
// in a Store.
type AsyncEffect struct {
	bus      *Bus
	event    string
	action   Action
	store    Store
	policy   OverlapPolicy
	queueMax int
	onError  func(error)

	unsub    func()
	disposed atomic.Bool

	// mu protects running, seq, latest and queue.
	mu      sync.Mutex
	running int
	seq     uint64
	latest  context.CancelFunc
	queue   []queuedDispatch

	wg sync.WaitGroup
}

// RegisterAsyncEffect registers an async effect for event on the
// process-wide bus. store may be nil.
func RegisterAsyncEffect(event string, action Action, store Store, opts ...EffectOption) *AsyncEffect {
	return Default().RegisterAsyncEffect(event, action, store, opts...)
}

// RegisterAsyncEffect registers an async effect for event on b.
//
// On every dispatch the effect sets store["loading"] to true and
// store["error"] to nil, then starts action on a new goroutine. When the
// action returns, "loading" goes back to false and, on failure, "error"
// receives the error. Failures never propagate to the bus; without an
// "error" entry they are logged and dropped.
func (b *Bus) RegisterAsyncEffect(event string, action Action, store Store, opts ...EffectOption) *AsyncEffect {
	if action == nil {
		action = func(context.Context, any) error { return nil }
	}
	e := &AsyncEffect{
		bus:    b,
		event:  event,
		action: action,
		store:  store,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.unsub = b.On(event, e.handle)
	return e
}

// Event returns the event name the effect listens to.
func (e *AsyncEffect) Event() string {
	return e.event
}

// Policy returns the overlap policy.
func (e *AsyncEffect) Policy() OverlapPolicy {
	return e.policy
}

// InFlight returns the number of running invocations.
func (e *AsyncEffect) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Queued returns the number of dispatches waiting under OverlapQueue.
func (e *AsyncEffect) Queued() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Wait blocks until no invocation is running or queued. It relies on the
// bus dispatcher running completion callbacks; with a host dispatcher, the
// host loop must keep running while Wait blocks.
func (e *AsyncEffect) Wait() {
	e.wg.Wait()
}

// Dispose unregisters the effect from the bus and discards queued
// dispatches. Running invocations finish and update the store normally.
func (e *AsyncEffect) Dispose() {
	if e.disposed.Swap(true) {
		return
	}
	e.unsub()

	e.mu.Lock()
	dropped := len(e.queue)
	e.queue = nil
	e.mu.Unlock()

	for i := 0; i < dropped; i++ {
		e.wg.Done()
	}
}

// handle is the bus handler. It never returns an error.
func (e *AsyncEffect) handle(ctx context.Context, payload any) error {
	if e.disposed.Load() {
		return nil
	}

	e.mu.Lock()
	switch e.policy {
	case OverlapDrop:
		if e.running > 0 {
			e.mu.Unlock()
			e.bus.logger.Debug("async effect busy, dispatch dropped", "event", e.event)
			return nil
		}
	case OverlapQueue:
		if e.running > 0 {
			if e.queueMax > 0 && len(e.queue) >= e.queueMax {
				e.mu.Unlock()
				e.bus.logger.Warn("async effect queue full, dispatch dropped",
					"event", e.event,
					"limit", e.queueMax)
				return nil
			}
			e.queue = append(e.queue, queuedDispatch{
				ctx:     context.WithoutCancel(ctx),
				payload: payload,
			})
			e.wg.Add(1)
			e.mu.Unlock()
			return nil
		}
	case OverlapLatest:
		if e.latest != nil {
			e.latest()
		}
	}
	inv := e.beginLocked(context.WithoutCancel(ctx), payload)
	e.mu.Unlock()

	e.start(inv)
	return nil
}

// beginLocked allocates an invocation. The caller holds e.mu.
func (e *AsyncEffect) beginLocked(parent context.Context, payload any) *invocation {
	e.seq++
	e.running++
	e.wg.Add(1)

	ctx, cancel := context.WithCancel(parent)
	if e.policy == OverlapLatest {
		e.latest = cancel
	}
	return &invocation{
		id:      ulid.Make(),
		seq:     e.seq,
		ctx:     ctx,
		cancel:  cancel,
		payload: payload,
	}
}

// start performs the pre-action writes on the calling goroutine, then runs
// the action on its own goroutine.
func (e *AsyncEffect) start(inv *invocation) {
	e.write(inv, StoreLoading, true)
	e.write(inv, StoreError, nil)

	e.bus.metrics.recordEffectStart(e.event)
	go e.execute(inv)
}

func (e *AsyncEffect) execute(inv *invocation) {
	ctx, span := e.bus.tracer.Start(inv.ctx, "pulse.effect "+e.event,
		trace.WithAttributes(
			attribute.String("pulse.event", e.event),
			attribute.String("pulse.invocation", inv.id.String()),
			attribute.String("pulse.overlap", e.policy.String()),
		),
	)

	began := time.Now()
	err := e.call(ctx, inv)
	elapsed := time.Since(began)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	e.bus.dispatcher.Dispatch(func() {
		e.complete(inv, err, elapsed)
	})
}

// call runs the action, converting a panic into an ActionPanicError.
func (e *AsyncEffect) call(ctx context.Context, inv *invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ActionPanicError{
				Event: e.event,
				Value: r,
				Stack: debug.Stack(),
			}
		}
	}()
	return e.action(ctx, inv.payload)
}

// complete applies the post-action writes. It runs on the dispatcher.
// The invocation counts as in flight until its writes are done.
func (e *AsyncEffect) complete(inv *invocation, err error, elapsed time.Duration) {
	inv.cancel()

	e.mu.Lock()
	stale := e.policy == OverlapLatest && inv.seq != e.seq
	e.mu.Unlock()

	outcome := "success"
	switch {
	case stale:
		outcome = "stale"
		e.bus.logger.Debug("async effect superseded",
			"event", e.event,
			"invocation", inv.id.String())
	case err != nil:
		outcome = "failure"
		e.write(inv, StoreLoading, false)
		e.fail(inv, err)
	default:
		e.write(inv, StoreLoading, false)
	}
	e.bus.metrics.recordEffectEnd(e.event, outcome, elapsed)

	e.mu.Lock()
	e.running--
	if e.policy == OverlapLatest && inv.seq == e.seq {
		e.latest = nil
	}
	var next *invocation
	if e.policy == OverlapQueue && len(e.queue) > 0 && !e.disposed.Load() {
		queued := e.queue[0]
		e.queue = e.queue[1:]
		next = e.beginLocked(queued.ctx, queued.payload)
	}
	e.mu.Unlock()

	if next != nil {
		// begin took its own wait group slot; release the one held while queued.
		e.wg.Done()
		e.start(next)
	}
	e.wg.Done()
}

func (e *AsyncEffect) fail(inv *invocation, err error) {
	if e.store.Has(StoreError) {
		e.write(inv, StoreError, err)
	} else {
		e.bus.logger.Warn("async effect failed",
			"event", e.event,
			"invocation", inv.id.String(),
			"error", err)
	}
	if e.onError != nil {
		e.onError(err)
	}
}

// write sets a store entry, logging values the entry cannot hold.
func (e *AsyncEffect) write(inv *invocation, key string, value any) {
	if err := e.store.set(key, value); err != nil {
		e.bus.logger.Warn("async effect could not update store",
			"event", e.event,
			"invocation", inv.id.String(),
			"key", key,
			"error", err)
	}
}
