package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/pulse/internal/config"
)

func TestRunDemo(t *testing.T) {
	policies := []string{"independent", "latest", "drop", "queue"}

	for _, policy := range policies {
		for _, fail := range []bool{false, true} {
			cfg := config.New()
			cfg.Effects.Overlap = policy
			env := newRuntime(cfg, io.Discard)

			var buf bytes.Buffer
			err := runDemo(&buf, env, demoOptions{fail: fail, delay: 10 * time.Millisecond})
			if err != nil {
				t.Fatalf("policy %s fail=%t: %v\n%s", policy, fail, err, buf.String())
			}

			out := buf.String()
			if !strings.Contains(out, "count = 99, subscribers = 0") {
				t.Errorf("policy %s: missing signal summary in\n%s", policy, out)
			}
			if !strings.Contains(out, "renders = 1, active = false") {
				t.Errorf("policy %s: missing binding summary in\n%s", policy, out)
			}
			if !strings.Contains(out, "greet handler 3: ada") {
				t.Errorf("policy %s: handler after a failing one did not run\n%s", policy, out)
			}
			if !strings.Contains(out, "greet handlers = 2") {
				t.Errorf("policy %s: dispose removed the wrong count\n%s", policy, out)
			}
			if fail && !strings.Contains(out, "finished with error") {
				t.Errorf("policy %s: expected error summary\n%s", policy, out)
			}
			if !fail && !strings.Contains(out, "finished, loading = false") {
				t.Errorf("policy %s: expected success summary\n%s", policy, out)
			}
		}
	}
}

func TestNewRuntimeMetrics(t *testing.T) {
	cfg := config.New()
	env := newRuntime(cfg, io.Discard)
	if env.metrics == nil || env.registry == nil {
		t.Fatal("expected metrics when enabled")
	}

	cfg.Metrics.Enabled = false
	env = newRuntime(cfg, io.Discard)
	if env.metrics != nil {
		t.Error("expected no metrics when disabled")
	}
}

func TestLoadConfigExplicitPath(t *testing.T) {
	if _, err := loadConfig("/nonexistent/pulse.yaml"); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
