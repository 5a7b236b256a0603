package pulse

import (
	"context"
	"fmt"
)

// Topic is an event name bound to a payload type. Handlers registered
// through a Topic receive the payload already converted to P.
//
//	var userSaved = pulse.NewTopic[User]("user:saved")
//
//	userSaved.On(bus, func(ctx context.Context, u User) error { ... })
//	userSaved.Emit(bus, u)
//
// The underlying bus stays untyped: a plain Emit of another payload type
// under the same name reaches the handler as an ErrPayloadType failure.
type Topic[P any] struct {
	name string
}

// NewTopic returns a typed view of the event called name.
func NewTopic[P any](name string) Topic[P] {
	return Topic[P]{name: name}
}

// Name returns the event name.
func (t Topic[P]) Name() string {
	return t.name
}

// On registers h on bus, or on the process-wide bus when bus is nil.
func (t Topic[P]) On(bus *Bus, h func(ctx context.Context, payload P) error) func() {
	if h == nil {
		return func() {}
	}
	if bus == nil {
		bus = Default()
	}
	return bus.On(t.name, func(ctx context.Context, payload any) error {
		typed, err := t.convert(payload)
		if err != nil {
			return err
		}
		return h(ctx, typed)
	})
}

// Emit dispatches payload on bus, or on the process-wide bus when bus is nil.
func (t Topic[P]) Emit(bus *Bus, payload P) {
	t.EmitContext(context.Background(), bus, payload)
}

// EmitContext is Emit with a context.
func (t Topic[P]) EmitContext(ctx context.Context, bus *Bus, payload P) {
	if bus == nil {
		bus = Default()
	}
	bus.EmitContext(ctx, t.name, payload)
}

func (t Topic[P]) convert(payload any) (P, error) {
	if payload == nil {
		var zero P
		return zero, nil
	}
	typed, ok := payload.(P)
	if !ok {
		var zero P
		return zero, fmt.Errorf("%w: %T for %q", ErrPayloadType, payload, t.name)
	}
	return typed, nil
}
