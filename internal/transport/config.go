package transport

import (
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the HTTP transport settings for the article service.
type Config struct {
	// BaseURL is the root of the article service API, including the /api
	// prefix when the deployment uses one.
	BaseURL string `env:"ARTICLESYNC_API_URL" envDefault:"https://api.realworld.io/api"`

	// Timeout bounds each request, connection setup included.
	Timeout time.Duration `env:"ARTICLESYNC_TIMEOUT" envDefault:"10s"`

	// RetryMax is the number of retries for idempotent requests that fail
	// with a transport error. Zero disables retrying.
	RetryMax uint `env:"ARTICLESYNC_RETRY_MAX" envDefault:"2"`

	// RetryInterval is the initial backoff delay between retries.
	RetryInterval time.Duration `env:"ARTICLESYNC_RETRY_INTERVAL" envDefault:"250ms"`
}

// DefaultConfig returns a Config with the defaults declared on the env tags.
func DefaultConfig() Config {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{}})
	if err != nil {
		// The tag defaults are static and parse; reaching this is a bug.
		panic(err)
	}
	return cfg
}

// FromEnv builds a Config from the process environment, falling back to the
// tag defaults for unset variables.
func FromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return &ConfigError{Field: "BaseURL", Message: "must not be empty"}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "BaseURL", Message: "must be an absolute URL"}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "Timeout", Message: "must be greater than 0"}
	}
	if c.RetryInterval <= 0 {
		return &ConfigError{Field: "RetryInterval", Message: "must be greater than 0"}
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
