package main

import (
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-dev/pulse/internal/config"
	"github.com/vango-dev/pulse/pkg/pulse"
)

func TestStartWorkload(t *testing.T) {
	env := newRuntime(config.New(), io.Discard)

	var ticks, refreshes atomic.Int32
	env.bus.Tap(func(d pulse.Dispatch) {
		switch d.Event {
		case "tick":
			ticks.Add(1)
		case "refresh":
			refreshes.Add(1)
		}
	})

	stop := startWorkload(env, 2*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for refreshes.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	stop()

	if ticks.Load() < 5 {
		t.Errorf("expected at least 5 ticks, got %d", ticks.Load())
	}
	if refreshes.Load() == 0 {
		t.Error("expected a refresh dispatch")
	}
	if env.bus.Handlers("refresh") != 0 {
		t.Errorf("expected refresh effect to be disposed, got %d handlers", env.bus.Handlers("refresh"))
	}
}
