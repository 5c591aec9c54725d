package config

import (
	"fmt"
	"time"

	"scorekeeper/adapters/sqlx"
)

// LoadProfile returns the defaults for a named deployment profile with
// environment overrides applied. Known profiles are development, testing,
// staging and production.
func LoadProfile(name string) (*Config, error) {
	cfg, err := profile(name)
	if err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func profile(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name
	switch Environment(name) {
	case EnvDevelopment:
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
		cfg.Storage.Adapter = AdapterFile
	case EnvTesting:
		cfg.Environment = EnvTesting
		cfg.Logging.Level = "warn"
		cfg.History.CacheTTL = 0
		cfg.Realtime.AsyncDispatch = false
		cfg.History.DailyActivity = false
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.Storage.Adapter = AdapterRedis
		cfg.Security.EnableRateLimit = true
	case EnvProduction:
		cfg.Environment = EnvProduction
		cfg.Server.CORSOrigin = ""
		cfg.Server.ShutdownTimeout = 15 * time.Second
		cfg.Storage.Adapter = AdapterSQL
		cfg.Storage.SQL = sqlx.DefaultConfig(sqlx.DriverPgx)
		cfg.Security.EnableRateLimit = true
		cfg.Security.RateLimit.RequestsPerMinute = 120
		cfg.Security.RateLimit.BurstSize = 20
		cfg.History.RetentionPolicy = "hybrid"
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return cfg, nil
}
