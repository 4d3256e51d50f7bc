// Package configuration loads the program configuration from the environment
// and optional environment files.
package configuration

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the prefix of all environment variables, e.g. RPCFS_ROOT.
const Prefix = "RPCFS"

type envProvider interface {
	Load(filenames ...string) error
}

// Config is the principal structure holding the program configuration.
type Config struct {
	Root            string        `envconfig:"ROOT"`
	LogLevel        string        `envconfig:"LOG_LEVEL"        default:"info"`
	PolicyFile      string        `envconfig:"POLICY_FILE"`
	PolicyURL       string        `envconfig:"POLICY_URL"`
	PolicyTimeout   time.Duration `envconfig:"POLICY_TIMEOUT"   default:"5s"`
	PolicyRetries   int           `envconfig:"POLICY_RETRIES"   default:"2"`
	Interactive     bool          `envconfig:"INTERACTIVE"      default:"false"`
	RateLimit       float64       `envconfig:"RATE_LIMIT"       default:"0"`
	RateBurst       int           `envconfig:"RATE_BURST"       default:"1"`
	ResolveSymlinks bool          `envconfig:"RESOLVE_SYMLINKS" default:"false"`
	Audit           bool          `envconfig:"AUDIT"            default:"true"`
	MetricsFile     string        `envconfig:"METRICS_FILE"`
}

// Handler is the principal implementation of the configuration loader.
type Handler struct {
	envHandler envProvider
}

// NewHandler returns a pointer to a new configuration [Handler].
func NewHandler(envHandler envProvider) *Handler {
	return &Handler{
		envHandler: envHandler,
	}
}

// Load loads the given environment files (if any) into the environment and
// decodes the environment into a [Config]. The result is not yet validated,
// as command-line flags may still override parts of it.
func (c *Handler) Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := c.envHandler.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("(config) %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("(config) %w", err)
	}

	return &cfg, nil
}

// Validate checks a [Config] for values that cannot be worked with.
func (cfg *Config) Validate() error {
	if cfg.Root == "" {
		return ErrMissingRoot
	}

	if _, err := cfg.Level(); err != nil {
		return err
	}

	if cfg.PolicyTimeout < 0 {
		return fmt.Errorf("%w: policy timeout %v", ErrInvalidValue, cfg.PolicyTimeout)
	}

	if cfg.PolicyRetries < 0 {
		return fmt.Errorf("%w: policy retries %d", ErrInvalidValue, cfg.PolicyRetries)
	}

	if cfg.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit %v", ErrInvalidValue, cfg.RateLimit)
	}

	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		return fmt.Errorf("%w: rate burst %d", ErrInvalidValue, cfg.RateBurst)
	}

	return nil
}

// Level returns the configured log level as [slog.Level].
func (cfg *Config) Level() (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalidValue, cfg.LogLevel)
	}

	return level, nil
}
