package config

import "time"

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	// Listen host and port
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"required,min=1,max=65535"`

	// Request timeouts
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Rate limiting settings
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Expose the Prometheus /metrics endpoint
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Enable request rate limiting
	Enabled bool `mapstructure:"enabled"`

	// Maximum requests per second
	Requests int `mapstructure:"requests" validate:"omitempty,min=1"`

	// Burst size for token bucket
	Burst int `mapstructure:"burst" validate:"omitempty,min=1"`
}
