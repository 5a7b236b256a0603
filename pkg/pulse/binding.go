package pulse

import "sync"

// Host is the part of a rendering framework a Binding needs: a way to force
// a re-render and a hook that runs when the component leaves the tree.
type Host interface {
	// ForceUpdate schedules a re-render of the component.
	ForceUpdate()

	// OnUnmount registers fn to run when the component is removed.
	OnUnmount(fn func())
}

// Binding ties a component to a signal. It caches the last value it saw so
// that repeated reads within one render agree, and calls onChange after
// every Set of the signal until it is disposed.
type Binding[T any] struct {
	mu       sync.Mutex
	signal   *Signal[T]
	onChange func()
	initial  T
	value    T
	unsub    func()
	active   bool
}

// Bind reads the current value of sig and subscribes to it. onChange is
// called after each notification, once the cached value has been updated.
func Bind[T any](sig *Signal[T], onChange func()) *Binding[T] {
	b := &Binding[T]{
		onChange: onChange,
		active:   true,
	}
	b.mu.Lock()
	b.attachLocked(sig)
	b.initial = b.value
	b.mu.Unlock()
	return b
}

// Use binds sig to host: notifications force a re-render and the binding is
// disposed when the host unmounts.
func Use[T any](host Host, sig *Signal[T]) *Binding[T] {
	if host == nil {
		return Bind(sig, nil)
	}
	b := Bind(sig, host.ForceUpdate)
	host.OnUnmount(b.Dispose)
	return b
}

func (b *Binding[T]) attachLocked(sig *Signal[T]) {
	b.signal = sig
	b.value = sig.Get()
	b.unsub = sig.Subscribe(func(v T) {
		b.mu.Lock()
		if !b.active || b.signal != sig {
			b.mu.Unlock()
			return
		}
		b.value = v
		onChange := b.onChange
		b.mu.Unlock()

		if onChange != nil {
			onChange()
		}
	})
}

// InitialValue returns the value read when the binding was created.
func (b *Binding[T]) InitialValue() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initial
}

// Value returns the last value delivered to the binding.
func (b *Binding[T]) Value() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Signal returns the signal currently observed.
func (b *Binding[T]) Signal() *Signal[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signal
}

// Active reports whether the binding has not been disposed.
func (b *Binding[T]) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Rebind switches the binding to next. The old subscription is removed
// before the new one is made. Rebind does nothing after Dispose or when next
// is the signal already observed.
func (b *Binding[T]) Rebind(next *Signal[T]) {
	b.mu.Lock()
	if !b.active || b.signal == next {
		b.mu.Unlock()
		return
	}
	old := b.unsub
	b.unsub = nil
	b.signal = nil
	b.mu.Unlock()

	if old != nil {
		old()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return
	}
	b.attachLocked(next)
}

// Dispose removes the subscription. Only the first call has an effect.
func (b *Binding[T]) Dispose() {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return
	}
	b.active = false
	unsub := b.unsub
	b.unsub = nil
	b.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Disposer is anything holding a subscription that can be released.
type Disposer interface {
	Dispose()
}

// DisposeFunc adapts an unsubscribe function into a Disposer.
type DisposeFunc func()

// Dispose calls f.
func (f DisposeFunc) Dispose() {
	if f != nil {
		f()
	}
}

// Scope collects the disposers of one component. Disposing the scope
// releases them in reverse order of registration. A Scope can serve as the
// unmount half of a Host.
type Scope struct {
	mu        sync.Mutex
	disposers []Disposer
	disposed  bool
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Add registers d. If the scope is already disposed, d is disposed at once.
func (s *Scope) Add(d Disposer) {
	if s == nil || d == nil {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		d.Dispose()
		return
	}
	s.disposers = append(s.disposers, d)
	s.mu.Unlock()
}

// OnUnmount registers fn to run on Dispose.
func (s *Scope) OnUnmount(fn func()) {
	if fn == nil {
		return
	}
	s.Add(DisposeFunc(fn))
}

// Len returns the number of pending disposers.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.disposers)
}

// Dispose releases every registered disposer. Only the first call has an effect.
func (s *Scope) Dispose() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	disposers := s.disposers
	s.disposers = nil
	s.mu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		disposers[i].Dispose()
	}
}
