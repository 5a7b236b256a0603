package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/pulse/internal/errors"
	"github.com/vango-dev/pulse/pkg/pulse"
)

type demoOptions struct {
	fail    bool
	overlap string
	delay   time.Duration
}

func demoCmd(configPath *string) *cobra.Command {
	var opts demoOptions

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted tour of signals, bindings, the bus and async effects",
		Long: `Run a scripted tour of the runtime and print every state transition.

Examples:
  pulse demo
  pulse demo --fail
  pulse demo --overlap latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if opts.overlap != "" {
				cfg.Effects.Overlap = opts.overlap
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			printBanner(out)
			fmt.Fprintln(out, "  demo")
			fmt.Fprintln(out)

			return runDemo(out, newRuntime(cfg, os.Stderr), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.fail, "fail", false, "Make the async action fail")
	cmd.Flags().StringVar(&opts.overlap, "overlap", "", "Overlap policy: independent, latest, drop or queue")
	cmd.Flags().DurationVar(&opts.delay, "delay", 200*time.Millisecond, "Duration of the simulated async action")

	return cmd
}

// lockedWriter serialises writes coming from effect goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// demoComponent is a minimal host: it re-renders by printing its binding.
type demoComponent struct {
	*pulse.Scope
	out     io.Writer
	name    *pulse.Binding[string]
	renders int
}

func (c *demoComponent) ForceUpdate() {
	c.renders++
	info(c.out, "render #%d: hello, %s", c.renders, c.name.Value())
}

func runDemo(w io.Writer, env *runtimeEnv, opts demoOptions) error {
	out := &lockedWriter{w: w}
	bus := env.bus

	// Signals
	fmt.Fprintln(out, "Signal")
	count := pulse.NewSignal(0)
	unsub := count.Subscribe(func(v int) {
		info(out, "count -> %d", v)
	})
	count.Set(1)
	count.Update(func(v int) int { return v + 1 })
	unsub()
	count.Set(99)
	success(out, "count = %d, subscribers = %d", count.Get(), count.SubscriberCount())
	fmt.Fprintln(out)

	// Binding
	fmt.Fprintln(out, "Binding")
	name := pulse.NewSignal("world")
	comp := &demoComponent{Scope: pulse.NewScope(), out: out}
	comp.name = pulse.Use[string](comp, name)
	info(out, "initial: hello, %s", comp.name.InitialValue())
	name.Set("pulse")
	comp.Dispose()
	name.Set("nobody")
	success(out, "renders = %d, active = %t", comp.renders, comp.name.Active())
	fmt.Fprintln(out)

	// Bus
	fmt.Fprintln(out, "Bus")
	disposeGreet := bus.On("greet", func(ctx context.Context, payload any) error {
		info(out, "greet handler 1: %v", payload)
		return nil
	})
	bus.On("greet", func(ctx context.Context, payload any) error {
		return fmt.Errorf("handler 2 rejects %v", payload)
	})
	bus.On("greet", func(ctx context.Context, payload any) error {
		info(out, "greet handler 3: %v", payload)
		return nil
	})
	bus.Emit("greet", "ada")
	disposeGreet()
	disposeGreet()
	success(out, "greet handlers = %d", bus.Handlers("greet"))
	fmt.Fprintln(out)

	// Async effect
	policy := env.cfg.OverlapPolicy()
	fmt.Fprintf(out, "Async effect (overlap %s)\n", policy)
	store := pulse.NewStore()
	store.Loading().Subscribe(func(v bool) {
		info(out, "loading -> %t", v)
	})
	store.Err().Subscribe(func(err error) {
		info(out, "error -> %v", err)
	})

	action := func(ctx context.Context, payload any) error {
		select {
		case <-time.After(opts.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if opts.fail {
			return fmt.Errorf("save %v: backend unavailable", payload)
		}
		info(out, "saved %v", payload)
		return nil
	}

	effect := bus.RegisterAsyncEffect("save", action, store, env.cfg.EffectOptions()...)
	defer effect.Dispose()

	bus.Emit("save", "draft-1")
	bus.Emit("save", "draft-2")
	effect.Wait()

	loading, err := store.Loading().Get(), store.Err().Get()
	if loading || opts.fail != (err != nil) {
		return errors.New("P201").
			WithDetail(fmt.Sprintf("Final state loading=%t error=%v", loading, err))
	}
	if err != nil {
		warn(out, "finished with error: %v", err)
	} else {
		success(out, "finished, loading = %t", loading)
	}
	return nil
}
