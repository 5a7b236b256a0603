package pulse

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

type userSaved struct {
	ID   int
	Name string
}

func TestTopicDeliversTypedPayload(t *testing.T) {
	bus := newTestBus(&bytes.Buffer{})
	topic := NewTopic[userSaved]("user:saved")
	var got userSaved

	dispose := topic.On(bus, func(_ context.Context, u userSaved) error {
		got = u
		return nil
	})
	defer dispose()

	topic.Emit(bus, userSaved{ID: 7, Name: "ada"})

	if got.ID != 7 || got.Name != "ada" {
		t.Errorf("unexpected payload: %+v", got)
	}
	if topic.Name() != "user:saved" {
		t.Errorf("unexpected topic name %q", topic.Name())
	}
}

func TestTopicPayloadMismatchIsIsolated(t *testing.T) {
	var logs bytes.Buffer
	bus := newTestBus(&logs)
	topic := NewTopic[int]("count")
	calls, plain := 0, 0

	topic.On(bus, func(context.Context, int) error { calls++; return nil })
	bus.On("count", func(context.Context, any) error { plain++; return nil })

	bus.Emit("count", "not a number")

	if calls != 0 {
		t.Errorf("expected typed handler to be skipped, got %d calls", calls)
	}
	if plain != 1 {
		t.Errorf("expected untyped handler to still run, got %d", plain)
	}
	if !strings.Contains(logs.String(), "unexpected payload type") {
		t.Errorf("expected mismatch to be logged, got %q", logs.String())
	}
}

func TestTopicNilPayloadIsZeroValue(t *testing.T) {
	bus := newTestBus(&bytes.Buffer{})
	topic := NewTopic[*userSaved]("maybe")
	called := false
	var got *userSaved = &userSaved{}

	topic.On(bus, func(_ context.Context, u *userSaved) error {
		called = true
		got = u
		return nil
	})
	bus.Emit("maybe", nil)

	if !called || got != nil {
		t.Errorf("expected handler called with nil, got called=%v payload=%v", called, got)
	}
}

func TestTopicOnDefaultBus(t *testing.T) {
	topic := NewTopic[string]("pulse-test:topic")
	var got string
	dispose := topic.On(nil, func(_ context.Context, s string) error {
		got = s
		return nil
	})
	defer dispose()

	topic.EmitContext(context.Background(), nil, "hello")
	if got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}
