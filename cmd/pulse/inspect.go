package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/pulse/internal/config"
	"github.com/vango-dev/pulse/internal/errors"
	"github.com/vango-dev/pulse/pkg/inspector"
	"github.com/vango-dev/pulse/pkg/pulse"
)

func inspectCmd(configPath *string) *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Serve the bus inspector with a ticking demo workload",
		Long: `Serve the inspector over HTTP while a demo emitter drives the bus.

Routes:
  /healthz             liveness
  /metrics             Prometheus metrics
  /handlers?event=x    handler count for x
  /events              WebSocket stream of dispatches

Examples:
  pulse inspect
  pulse inspect --addr :7070 --interval 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Inspector.Addr = addr
			}
			return runInspect(cmd, cfg, interval)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Interval between demo ticks")

	return cmd
}

func runInspect(cmd *cobra.Command, cfg *config.Config, interval time.Duration) error {
	out := cmd.OutOrStdout()
	env := newRuntime(cfg, os.Stderr)

	var gatherer prometheus.Gatherer = prometheus.NewRegistry()
	if env.metrics != nil {
		gatherer = env.metrics.Gatherer()
	}
	ins := inspector.New(env.bus, inspector.WithGatherer(gatherer))
	defer ins.Close()

	stopWorkload := startWorkload(env, interval)
	defer stopWorkload()

	printBanner(out)
	fmt.Fprintln(out, "  inspect")
	fmt.Fprintln(out)
	success(out, "Inspector listening on http://%s", cfg.Inspector.Addr)
	info(out, "Stream: ws://%s/events", cfg.Inspector.Addr)

	server := &http.Server{
		Addr:              cfg.Inspector.Addr,
		Handler:           ins,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		fmt.Fprintln(out, "\n\n  Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.New("P301").Wrap(err)
	}
	return nil
}

// startWorkload emits a "tick" event every interval and a "refresh" event
// every fifth tick, which drives an async effect. It returns a stop function.
func startWorkload(env *runtimeEnv, interval time.Duration) func() {
	bus := env.bus
	ticks := pulse.NewSignal(0)

	bus.On("tick", func(ctx context.Context, payload any) error {
		if n, ok := payload.(int); ok {
			ticks.Set(n)
		}
		return nil
	})

	store := pulse.NewStore()
	effect := bus.RegisterAsyncEffect("refresh", func(ctx context.Context, payload any) error {
		select {
		case <-time.After(interval / 2):
		case <-ctx.Done():
			return ctx.Err()
		}
		if n, _ := payload.(int); n%3 == 0 {
			return fmt.Errorf("refresh %d failed", n)
		}
		return nil
	}, store, env.cfg.EffectOptions()...)

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		n := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				n++
				bus.Emit("tick", n)
				if n%5 == 0 {
					bus.Emit("refresh", n/5)
				}
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
		effect.Dispose()
		effect.Wait()
	}
}
