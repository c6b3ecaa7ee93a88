package statemachine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/amp-labs/actionstate/envutil"
	"gopkg.in/yaml.v3"
)

var (
	// ErrConfigNameRequired indicates that a configuration name is required.
	ErrConfigNameRequired = fmt.Errorf("%w: config name is required", ErrConfiguration)
	// ErrNegativeTimeout indicates a handler timeout below zero.
	ErrNegativeTimeout = fmt.Errorf("%w: handler timeout must not be negative", ErrConfiguration)
)

const defaultMachineName = "machine"

// Config controls how a Machine reports on itself.
type Config struct {
	// Name labels logs, metrics and spans.
	Name string `json:"name" yaml:"name"`
	// HandlerTimeout bounds async and cancelable handlers. Zero means no bound.
	HandlerTimeout time.Duration `json:"handlerTimeout" yaml:"handlerTimeout"`
	// LogTransitions installs the DefaultLogger.
	LogTransitions bool `json:"logTransitions" yaml:"logTransitions"`
	Tracing        bool `json:"tracing"        yaml:"tracing"`
	Metrics        bool `json:"metrics"        yaml:"metrics"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Name:    defaultMachineName,
		Tracing: true,
		Metrics: true,
	}
}

// LoadConfig loads a configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes loads a configuration from YAML bytes. Fields missing
// from the document keep their DefaultConfig values.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	config := DefaultConfig()

	err := yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigFromEnv reads a configuration from PREFIX_NAME,
// PREFIX_HANDLER_TIMEOUT, PREFIX_LOG_TRANSITIONS, PREFIX_TRACING and
// PREFIX_METRICS. Unset variables keep their DefaultConfig values.
func LoadConfigFromEnv(prefix string) (*Config, error) {
	dfl := DefaultConfig()

	name := envutil.String(envutil.Prefixed(prefix, "NAME"), envutil.Default(dfl.Name))
	timeout := envutil.Duration(envutil.Prefixed(prefix, "HANDLER_TIMEOUT"), envutil.Default(dfl.HandlerTimeout))
	logTransitions := envutil.Bool(envutil.Prefixed(prefix, "LOG_TRANSITIONS"), envutil.Default(dfl.LogTransitions))
	tracing := envutil.Bool(envutil.Prefixed(prefix, "TRACING"), envutil.Default(dfl.Tracing))
	metrics := envutil.Bool(envutil.Prefixed(prefix, "METRICS"), envutil.Default(dfl.Metrics))

	err := errors.Join(readError(name), readError(timeout), readError(logTransitions),
		readError(tracing), readError(metrics))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	config := &Config{
		Name:           name.ValueOrElse(dfl.Name),
		HandlerTimeout: timeout.ValueOrElse(dfl.HandlerTimeout),
		LogTransitions: logTransitions.ValueOrElse(dfl.LogTransitions),
		Tracing:        tracing.ValueOrElse(dfl.Tracing),
		Metrics:        metrics.ValueOrElse(dfl.Metrics),
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

// readError returns the reader's parse error annotated with its key.
func readError[T any](rdr envutil.Reader[T]) error {
	if rdr.Error() == nil {
		return nil
	}

	_, err := rdr.Value()

	return err
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrConfigNameRequired
	}

	if c.HandlerTimeout < 0 {
		return ErrNegativeTimeout
	}

	return nil
}
