package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/pulse/internal/config"
	"github.com/vango-dev/pulse/internal/errors"
	"github.com/vango-dev/pulse/internal/logging"
	"github.com/vango-dev/pulse/pkg/pulse"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬ ┬┬  ┌─┐┌─┐
  ├─┘│ ││  └─┐├┤
  ┴  └─┘┴─┘└─┘└─┘
`

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "Reactive state runtime tools",
		Long: `Pulse is a small reactive-state runtime for component UIs.

It provides:

  • Signals with ordered, synchronous subscribers
  • A process-wide event bus with isolated handlers
  • Bindings that re-render components on change
  • Async effects that drive loading and error state`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to pulse.json or pulse.yaml")

	rootCmd.AddCommand(
		demoCmd(&configPath),
		inspectCmd(&configPath),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// loadConfig reads path, or the working directory's config file when path
// is empty. A missing file in the working directory yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(wd)
	if err != nil {
		var pe *errors.PulseError
		if stderrors.As(err, &pe) && pe.Code == "P101" {
			return config.New(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// runtimeEnv is the logger, metrics and bus built from a config.
type runtimeEnv struct {
	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *pulse.Metrics
	bus      *pulse.Bus
}

func newRuntime(cfg *config.Config, logOut io.Writer) *runtimeEnv {
	logger := logging.New(logOut, cfg.Log)
	env := &runtimeEnv{cfg: cfg}

	opts := []pulse.Option{pulse.WithLogger(logger.With("component", "pulse"))}
	if cfg.Metrics.Enabled {
		env.registry = prometheus.NewRegistry()
		env.metrics = pulse.NewMetrics(
			pulse.WithNamespace(cfg.Metrics.Namespace),
			pulse.WithRegistry(env.registry),
		)
		opts = append(opts, pulse.WithMetrics(env.metrics))
	}
	env.bus = pulse.NewBus(opts...)
	return env
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
