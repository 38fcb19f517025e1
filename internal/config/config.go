// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// PostgresDSN selects the postgres store when non-empty; the in-memory
	// store is used otherwise.
	PostgresDSN string `koanf:"postgres_dsn"`

	// MigrationsURL points golang-migrate at the schema files, e.g.
	// "file://internal/adapters/repository/migrations".
	MigrationsURL string `koanf:"migrations_url"`

	// RedisAddr enables the cross-instance signal bridge when non-empty.
	RedisAddr string `koanf:"redis_addr"`

	// RedisChannel names the pub/sub channel used by the signal bridge.
	RedisChannel string `koanf:"redis_channel"`

	// SubscriberQueueSize bounds each signal subscriber's queue. Oldest
	// signals are dropped on overflow.
	SubscriberQueueSize int `koanf:"subscriber_queue_size"`

	// OperationTimeoutMS bounds every storage call made by a single operation.
	OperationTimeoutMS int `koanf:"operation_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		MigrationsURL:       "file://internal/adapters/repository/migrations",
		RedisChannel:        "bidding.signals",
		SubscriberQueueSize: 64,
		OperationTimeoutMS:  int(5 * time.Second / time.Millisecond),
	}
}

// OperationTimeout returns the configured per-operation timeout.
func (c *Config) OperationTimeout() time.Duration {
	return time.Duration(c.OperationTimeoutMS) * time.Millisecond
}
