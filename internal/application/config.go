// Package application wires record sources, scoring and observability into
// the report service.
package application

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/fsscore/zonescore/infrastructure/persistence/postgres"
	"github.com/fsscore/zonescore/infrastructure/scoring"
	"github.com/fsscore/zonescore/internal/ports"
)

// Source kinds accepted in SourceConfig.Kind.
const (
	SourceKindYAML     = "yaml"
	SourceKindPostgres = "postgres"
)

// ServiceConfig is the top-level configuration of the report service.
// Use DefaultConfig as the starting point: LoadConfig decodes on top of it,
// so a file only needs to name the settings it changes.
type ServiceConfig struct {
	// Report controls the shape of generated reports.
	Report ReportConfig `yaml:"report"`

	// Service controls request-level concurrency and deadlines.
	Service RuntimeConfig `yaml:"service"`

	// Source selects and tunes the record store.
	Source SourceConfig `yaml:"source"`

	// Logging selects the log format and level.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics controls Prometheus export.
	Metrics MetricsConfig `yaml:"metrics"`
}

// ReportConfig holds the report builder settings.
type ReportConfig struct {
	// Ranker sizes the student report lists.
	Ranker scoring.RankerConfig `yaml:"ranker"`

	// CombineMode selects how principal reports merge snapshot scores.
	CombineMode scoring.CombineMode `yaml:"combine_mode" validate:"required,oneof=mean weighted"`
}

// RuntimeConfig bounds the work a single report request may do.
type RuntimeConfig struct {
	// MaxConcurrentSnapshots caps how many snapshots a principal report
	// loads at the same time.
	MaxConcurrentSnapshots int `yaml:"max_concurrent_snapshots" validate:"min=1,max=64"`

	// ReportTimeout bounds a whole report request. Zero disables it.
	ReportTimeout time.Duration `yaml:"report_timeout" validate:"min=0"`
}

// SourceConfig selects the backing record store and the middleware that
// wraps it. Zero values disable the corresponding middleware.
type SourceConfig struct {
	// Kind is the backing store: yaml or postgres.
	Kind string `yaml:"kind" validate:"required,oneof=yaml postgres"`

	// Path is the record file for the yaml kind.
	Path string `yaml:"path" validate:"required_if=Kind yaml"`

	// Postgres holds the connection settings for the postgres kind.
	Postgres postgres.Config `yaml:"postgres"`

	// EnsureSchema creates the snapshot tables on startup.
	EnsureSchema bool `yaml:"ensure_schema"`

	// FetchTimeout bounds each fetch attempt.
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"min=0"`

	// RateLimit is the sustained fetch rate per second.
	RateLimit float64 `yaml:"rate_limit" validate:"min=0"`

	// Burst is the rate limiter bucket size.
	Burst int `yaml:"burst" validate:"min=0"`

	// MaxRetries is the number of retries after a retryable failure.
	MaxRetries int `yaml:"max_retries" validate:"min=0,max=10"`

	// RetryBaseDelay is the first backoff delay.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" validate:"min=0"`

	// RetryMaxDelay caps the backoff delay.
	RetryMaxDelay time.Duration `yaml:"retry_max_delay" validate:"gtefield=RetryBaseDelay"`

	// CircuitBreaker trips after repeated retryable failures.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig configures the source circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the
	// circuit. Zero disables the breaker.
	MaxFailures int `yaml:"max_failures" validate:"min=0"`

	// Cooldown is how long the circuit stays open before a probe.
	Cooldown time.Duration `yaml:"cooldown" validate:"min=0"`
}

// LoggingConfig selects the zap configuration.
type LoggingConfig struct {
	Mode  string `yaml:"mode" validate:"oneof=dev development prod production"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// MetricsConfig controls metric export. The CLI is short-lived, so metrics
// are written once to a node_exporter textfile instead of being served.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile" validate:"required_if=Enabled true"`
}

// DefaultConfig returns a configuration reading records from records.yaml
// with the standard report layout.
func DefaultConfig() ServiceConfig {
	return ServiceConfig{
		Report: ReportConfig{
			Ranker:      scoring.DefaultRankerConfig(),
			CombineMode: scoring.CombineMean,
		},
		Service: RuntimeConfig{
			MaxConcurrentSnapshots: 4,
			ReportTimeout:          30 * time.Second,
		},
		Source: SourceConfig{
			Kind:           SourceKindYAML,
			Path:           "records.yaml",
			Postgres:       postgres.DefaultConfig(),
			FetchTimeout:   5 * time.Second,
			RateLimit:      50,
			Burst:          100,
			MaxRetries:     3,
			RetryBaseDelay: 100 * time.Millisecond,
			RetryMaxDelay:  2 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				MaxFailures: 5,
				Cooldown:    30 * time.Second,
			},
		},
		Logging: LoggingConfig{Mode: "dev", Level: "info"},
	}
}

// configValidate is shared by every config load.
var configValidate = validator.New()

// Validate checks every section against its constraints.
func (c ServiceConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return ports.NewConfigError("service", err)
	}
	return nil
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
func LoadConfig(path string) (ServiceConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return ServiceConfig{}, ports.NewConfigError(path, fmt.Errorf("failed to read file: %w", err))
	}
	return LoadConfigFromReader(bytes.NewReader(data))
}

// LoadConfigFromReader decodes YAML on top of DefaultConfig and validates
// the result. Unknown keys are rejected so typos do not pass silently. An
// empty document yields the defaults.
func LoadConfigFromReader(r io.Reader) (ServiceConfig, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return ServiceConfig{}, ports.NewConfigError("service", fmt.Errorf("YAML decode failed: %w", err))
	}

	if err := cfg.Validate(); err != nil {
		return ServiceConfig{}, err
	}
	return cfg, nil
}
