package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/pulse/internal/errors"
	"github.com/vango-dev/pulse/pkg/pulse"
)

// File names searched by Find, in order.
var FileNames = []string{"pulse.json", "pulse.yaml", "pulse.yml"}

// Default values.
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultNamespace     = "pulse"
	DefaultInspectorAddr = "127.0.0.1:7070"
	DefaultOverlap       = "independent"
)

// Config is the pulse runtime configuration.
type Config struct {
	Log       LogConfig       `json:"log" yaml:"log"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Inspector InspectorConfig `json:"inspector" yaml:"inspector"`
	Effects   EffectsConfig   `json:"effects" yaml:"effects"`

	// path is the file this config was loaded from, if any.
	path string
}

// LogConfig configures the slog logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level" yaml:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format"`
}

// MetricsConfig configures Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// InspectorConfig configures the inspector server.
type InspectorConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// EffectsConfig holds defaults for async effects.
type EffectsConfig struct {
	// Overlap is independent, latest, drop or queue.
	Overlap string `json:"overlap,omitempty" yaml:"overlap,omitempty"`

	// QueueLimit bounds pending dispatches under the queue policy. Zero means unbounded.
	QueueLimit int `json:"queueLimit,omitempty" yaml:"queueLimit,omitempty"`
}

// New creates a configuration with default values.
func New() *Config {
	return &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Inspector: InspectorConfig{
			Addr: DefaultInspectorAddr,
		},
		Effects: EffectsConfig{
			Overlap: DefaultOverlap,
		},
	}
}

// Find returns the first configuration file present in dir.
func Find(dir string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.New("P101").
		WithDetail(fmt.Sprintf("No %s found in %s", strings.Join(FileNames, ", "), dir)).
		WithSuggestion("Pass --config or create pulse.yaml")
}

// Load loads configuration from the first file Find locates in dir.
func Load(dir string) (*Config, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path. The format is chosen by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("P101").
				WithDetail(fmt.Sprintf("%s does not exist", path)).
				Wrap(err)
		}
		return nil, errors.New("P102").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, errors.New("P103").
			WithDetail(fmt.Sprintf("Cannot read %s", path))
	}
	if err != nil {
		return nil, errors.New("P102").
			WithDetail(fmt.Sprintf("Failed to parse %s", path)).
			WithSuggestion("Check the file for syntax errors").
			Wrap(err)
	}

	cfg.path = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills fields left empty by a partial file.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Inspector.Addr == "" {
		c.Inspector.Addr = DefaultInspectorAddr
	}
	if c.Effects.Overlap == "" {
		c.Effects.Overlap = DefaultOverlap
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
	c.Effects.Overlap = strings.ToLower(c.Effects.Overlap)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("P104").
			WithDetail(fmt.Sprintf("Unknown log level %q", c.Log.Level)).
			WithSuggestion("Use debug, info, warn or error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("P104").
			WithDetail(fmt.Sprintf("Unknown log format %q", c.Log.Format)).
			WithSuggestion("Use text or json")
	}
	if _, ok := pulse.ParseOverlapPolicy(c.Effects.Overlap); !ok {
		return errors.New("P105").
			WithDetail(fmt.Sprintf("Unknown overlap policy %q", c.Effects.Overlap))
	}
	if c.Effects.QueueLimit < 0 {
		return errors.New("P106").
			WithDetail(fmt.Sprintf("effects.queueLimit is %d", c.Effects.QueueLimit))
	}
	return nil
}

// Path returns the file this configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// OverlapPolicy returns the configured default overlap policy.
func (c *Config) OverlapPolicy() pulse.OverlapPolicy {
	p, _ := pulse.ParseOverlapPolicy(c.Effects.Overlap)
	return p
}

// EffectOptions returns the effect options implied by the configuration.
func (c *Config) EffectOptions() []pulse.EffectOption {
	opts := []pulse.EffectOption{pulse.WithOverlap(c.OverlapPolicy())}
	if c.Effects.QueueLimit > 0 {
		opts = append(opts, pulse.WithQueueLimit(c.Effects.QueueLimit))
	}
	return opts
}
