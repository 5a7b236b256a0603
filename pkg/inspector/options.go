package inspector

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default settings.
const (
	DefaultBufferSize   = 64
	DefaultWriteTimeout = 5 * time.Second
)

type config struct {
	logger       *slog.Logger
	gatherer     prometheus.Gatherer
	bufferSize   int
	writeTimeout time.Duration
	checkOrigin  func(r *http.Request) bool
}

// Option configures an Inspector.
type Option func(*config)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithGatherer sets the metrics source served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *config) {
		if g != nil {
			c.gatherer = g
		}
	}
}

// WithBufferSize sets how many frames may wait for each client before
// new frames are dropped.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithCheckOrigin sets the WebSocket origin check. The default rejects
// cross-origin requests.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *config) {
		c.checkOrigin = fn
	}
}

func newConfig(opts []Option) config {
	c := config{
		logger:       slog.Default().With("component", "inspector"),
		gatherer:     prometheus.DefaultGatherer,
		bufferSize:   DefaultBufferSize,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
