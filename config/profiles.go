package config

import (
	"fmt"
	"time"

	"github.com/ryandem1/minesweeper-async/latency"
)

// LoadProfile returns the defaults for a named deployment profile with
// environment overrides applied.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	switch Environment(name) {
	case EnvDevelopment:
		cfg.Logging.Format = "text"
		cfg.Logging.Level = "debug"
	case EnvTesting:
		cfg.Environment = EnvTesting
		cfg.Logging.Level = "warn"
		cfg.App.AsyncEvents = false
		cfg.Server.Address = ":0"
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.Latency = latency.Config{
			Create: latency.Range{Min: 5 * time.Millisecond, Max: 50 * time.Millisecond},
			Query:  latency.Range{Min: 1 * time.Millisecond, Max: 10 * time.Millisecond},
			Action: latency.Range{Min: 1 * time.Millisecond, Max: 20 * time.Millisecond},
			Check:  latency.Fixed(25 * time.Millisecond),
		}
	case EnvProduction:
		cfg.Environment = EnvProduction
		cfg.Server.CORSOrigin = ""
		cfg.Security.EnableRateLimit = true
		cfg.Storage.Adapter = "redis"
		cfg.Logging.Level = "info"
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	cfg.Profile = name

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for profile %s: %w", name, err)
	}
	return cfg, nil
}
