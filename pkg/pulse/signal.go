package pulse

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// AnySignal is the type-erased view of a Signal. It lets heterogeneous
// signals live together in a Store.
type AnySignal interface {
	ID() uint64
	GetAny() any
	SetAny(value any) error
	SubscribeAny(fn func(any)) func()
}

type subscription[T any] struct {
	id     uint64
	fn     func(T)
	active atomic.Bool
}

// Signal is an observable value cell. Every Set notifies all subscribers,
// in subscription order, before it returns.
type Signal[T any] struct {
	id uint64

	// mu protects value, subs, notifying and pending.
	mu    sync.Mutex
	value T
	subs  []*subscription[T]

	// notifying is true while a notification pass runs. Writes that arrive
	// during a pass are queued in pending and delivered after it.
	notifying bool
	pending   []T
}

var _ AnySignal = (*Signal[int])(nil)

// NewSignal creates a signal holding initial with no subscribers.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{
		id:    nextID(),
		value: initial,
	}
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	if s == nil {
		var zero T
		return zero
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set assigns value and notifies every subscriber with it.
//
// A Set issued while this signal is already notifying (from a subscriber,
// or from another goroutine) is queued and applied with its own
// notification pass once the running pass has finished.
func (s *Signal[T]) Set(value T) {
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.notifying {
		s.pending = append(s.pending, value)
		s.mu.Unlock()
		return
	}
	s.notifying = true
	s.value = value
	subs := s.snapshotLocked()
	s.mu.Unlock()

	s.drain(value, subs)
}

// drain delivers value and then every queued write.
func (s *Signal[T]) drain(value T, subs []*subscription[T]) {
	finished := false
	defer func() {
		if finished {
			return
		}
		// A subscriber panicked; drop the queue so later writes still notify.
		s.mu.Lock()
		s.notifying = false
		s.pending = nil
		s.mu.Unlock()
	}()

	for {
		deliver(subs, value)

		s.mu.Lock()
		if len(s.pending) == 0 {
			s.notifying = false
			s.mu.Unlock()
			finished = true
			return
		}
		value = s.pending[0]
		s.pending = s.pending[1:]
		s.value = value
		subs = s.snapshotLocked()
		s.mu.Unlock()
	}
}

// Update sets the value returned by fn.
// fn runs outside the signal lock; Update is not atomic across goroutines.
func (s *Signal[T]) Update(fn func(T) T) {
	if s == nil || fn == nil {
		return
	}
	s.Set(fn(s.Get()))
}

// Subscribe registers fn to receive every new value. The returned function
// removes the subscription; calling it more than once is a no-op.
func (s *Signal[T]) Subscribe(fn func(T)) func() {
	if s == nil || fn == nil {
		return func() {}
	}

	sub := &subscription[T]{id: nextID(), fn: fn}
	sub.active.Store(true)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			s.remove(sub.id)
		})
	}
}

// SubscriberCount returns the number of active subscriptions.
func (s *Signal[T]) SubscriberCount() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// GetAny returns the current value as any.
func (s *Signal[T]) GetAny() any {
	return s.Get()
}

// SetAny sets the value from an untyped argument. nil stores the zero value.
func (s *Signal[T]) SetAny(value any) error {
	if s == nil {
		return ErrNilSignal
	}
	if value == nil {
		var zero T
		s.Set(zero)
		return nil
	}
	typed, ok := value.(T)
	if !ok {
		return fmt.Errorf("%w: cannot store %T in Signal[%s]", ErrTypeMismatch, value, reflect.TypeFor[T]())
	}
	s.Set(typed)
	return nil
}

// SubscribeAny is Subscribe with an untyped callback.
func (s *Signal[T]) SubscribeAny(fn func(any)) func() {
	if fn == nil {
		return func() {}
	}
	return s.Subscribe(func(v T) { fn(v) })
}

func (s *Signal[T]) snapshotLocked() []*subscription[T] {
	if len(s.subs) == 0 {
		return nil
	}
	subs := make([]*subscription[T], len(s.subs))
	copy(subs, s.subs)
	return subs
}

// remove deletes a subscription while keeping the order of the others.
func (s *Signal[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// deliver calls each subscription still active at its turn.
func deliver[T any](subs []*subscription[T], value T) {
	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		sub.fn(value)
	}
}
