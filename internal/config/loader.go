package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if BIDDING_CONFIG is set
//  3. env (prefix BIDDING_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("BIDDING_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: BIDDING_ADDR, BIDDING_POSTGRES_DSN, ...
	// Map env keys like BIDDING_OPERATION_TIMEOUT_MS -> operation_timeout_ms.
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("BIDDING_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "bidding_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.SubscriberQueueSize < 1 {
		return nil, fmt.Errorf("%w: subscriber_queue_size must be positive", ErrInvalidConfig)
	}
	if cfg.OperationTimeoutMS < 1 {
		return nil, fmt.Errorf("%w: operation_timeout_ms must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
