package querycache

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/viccon/sturdyc"
)

// Config holds the tuning knobs for the query cache store. The grace settings
// control the sturdyc-backed store that keeps values of entries whose last
// subscriber went away, so quick back-navigation re-serves the previous value
// without a network call.
type Config struct {
	// GraceCapacity is the maximum number of detached entries retained.
	// Must be greater than 0.
	GraceCapacity int

	// GraceShards determines the number of shards for the grace store.
	// Must be greater than 0.
	GraceShards int

	// GraceTTL is how long a detached entry stays servable.
	// Must be greater than 0.
	GraceTTL time.Duration

	// GraceEvictionPercentage specifies what percentage of grace entries to
	// evict when the store reaches capacity. Must be between 1-100.
	GraceEvictionPercentage int
}

// DefaultConfig returns a Config with sensible defaults for a browsing client.
func DefaultConfig() Config {
	return Config{
		GraceCapacity:           1024,
		GraceShards:             64,
		GraceTTL:                30 * time.Second,
		GraceEvictionPercentage: 10,
	}
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.GraceCapacity <= 0 {
		return &ConfigError{Field: "GraceCapacity", Message: "must be greater than 0"}
	}
	if c.GraceShards <= 0 {
		return &ConfigError{Field: "GraceShards", Message: "must be greater than 0"}
	}
	if c.GraceTTL <= 0 {
		return &ConfigError{Field: "GraceTTL", Message: "must be greater than 0"}
	}
	if c.GraceEvictionPercentage < 1 || c.GraceEvictionPercentage > 100 {
		return &ConfigError{Field: "GraceEvictionPercentage", Message: "must be between 1 and 100"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// Option mutates store configuration at construction time.
type Option func(*Store)

// WithLogger injects a logger; the default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "querycache").Logger()
	}
}

// newGraceStore builds the sturdyc client backing detached-entry retention.
func newGraceStore(cfg Config) *sturdyc.Client[any] {
	return sturdyc.New[any](
		cfg.GraceCapacity,
		cfg.GraceShards,
		cfg.GraceTTL,
		cfg.GraceEvictionPercentage,
	)
}
