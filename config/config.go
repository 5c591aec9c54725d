package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"scorekeeper/adapters/redis"
	"scorekeeper/adapters/sqlx"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Storage adapters selectable through StorageConfig.Adapter.
const (
	AdapterMemory = "memory"
	AdapterFile   = "file"
	AdapterRedis  = "redis"
	AdapterSQL    = "sql"
	AdapterPebble = "pebble"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" yaml:"environment" env:"SCOREKEEPER_ENV"`
	Profile     string      `json:"profile" yaml:"profile" env:"SCOREKEEPER_PROFILE"`

	Server   ServerConfig   `json:"server" yaml:"server"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	History  HistoryConfig  `json:"history" yaml:"history"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Realtime RealtimeConfig `json:"realtime" yaml:"realtime"`
	Webhooks WebhookConfig  `json:"webhooks" yaml:"webhooks"`
	Security SecurityConfig `json:"security" yaml:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" yaml:"address" env:"SCOREKEEPER_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" yaml:"path_prefix" env:"SCOREKEEPER_SERVER_PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" yaml:"cors_origin" env:"SCOREKEEPER_SERVER_CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout" env:"SCOREKEEPER_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout" env:"SCOREKEEPER_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"SCOREKEEPER_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" env:"SCOREKEEPER_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"SCOREKEEPER_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" yaml:"adapter" env:"SCOREKEEPER_STORAGE_ADAPTER"`
	Memory  MemoryConfig `json:"memory,omitempty" yaml:"memory,omitempty"`
	Redis   redis.Config `json:"redis,omitempty" yaml:"redis,omitempty"`
	SQL     sqlx.Config  `json:"sql,omitempty" yaml:"sql,omitempty"`
	File    FileConfig   `json:"file,omitempty" yaml:"file,omitempty"`
	Pebble  PebbleConfig `json:"pebble,omitempty" yaml:"pebble,omitempty"`
}

// MemoryConfig bounds the in-process store. Zero means unlimited.
type MemoryConfig struct {
	QuotaBytes int `json:"quota_bytes" yaml:"quota_bytes" env:"SCOREKEEPER_STORAGE_MEMORY_QUOTA"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" yaml:"path" env:"SCOREKEEPER_STORAGE_FILE_PATH"`
}

// PebbleConfig holds embedded Pebble storage configuration
type PebbleConfig struct {
	Path string `json:"path" yaml:"path" env:"SCOREKEEPER_STORAGE_PEBBLE_PATH"`
}

// HistoryConfig tunes the history manager.
type HistoryConfig struct {
	// RetentionPolicy is "recent" or "hybrid".
	RetentionPolicy string        `json:"retention_policy" yaml:"retention_policy" env:"SCOREKEEPER_HISTORY_RETENTION_POLICY"`
	RetentionCap    int           `json:"retention_cap" yaml:"retention_cap" env:"SCOREKEEPER_HISTORY_RETENTION_CAP"`
	BestScoresCap   int           `json:"best_scores_cap" yaml:"best_scores_cap" env:"SCOREKEEPER_HISTORY_BEST_SCORES_CAP"`
	PageSize        int           `json:"page_size" yaml:"page_size" env:"SCOREKEEPER_HISTORY_PAGE_SIZE"`
	CacheTTL        time.Duration `json:"cache_ttl" yaml:"cache_ttl" env:"SCOREKEEPER_HISTORY_CACHE_TTL"`
	// DailyActivity keeps the per-day play ledger under the gameStats key.
	DailyActivity bool `json:"daily_activity" yaml:"daily_activity" env:"SCOREKEEPER_HISTORY_DAILY_ACTIVITY"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" yaml:"level" env:"SCOREKEEPER_LOG_LEVEL"`
	Format     string            `json:"format" yaml:"format" env:"SCOREKEEPER_LOG_FORMAT"`
	Output     string            `json:"output" yaml:"output" env:"SCOREKEEPER_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty" env:"SCOREKEEPER_LOG_ATTRIBUTES"`
}

// RealtimeConfig controls the WebSocket event stream.
type RealtimeConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" env:"SCOREKEEPER_REALTIME_ENABLED"`
	// AsyncDispatch publishes events from a worker pool instead of the caller's goroutine.
	AsyncDispatch bool `json:"async_dispatch" yaml:"async_dispatch" env:"SCOREKEEPER_REALTIME_ASYNC"`
}

// WebhookConfig lists HTTP endpoints that receive history events.
type WebhookConfig struct {
	Endpoints []string      `json:"endpoints,omitempty" yaml:"endpoints,omitempty" env:"SCOREKEEPER_WEBHOOK_ENDPOINTS"`
	Events    []string      `json:"events,omitempty" yaml:"events,omitempty" env:"SCOREKEEPER_WEBHOOK_EVENTS"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout" env:"SCOREKEEPER_WEBHOOK_TIMEOUT"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" yaml:"enable_rate_limit" env:"SCOREKEEPER_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	APIKeys         []string        `json:"api_keys,omitempty" yaml:"api_keys,omitempty" env:"SCOREKEEPER_SECURITY_API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" env:"SCOREKEEPER_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int `json:"burst_size" yaml:"burst_size" env:"SCOREKEEPER_SECURITY_RATE_LIMIT_BURST"`
}

// Validate validates security settings.
func (s SecurityConfig) Validate() error {
	var errs []string
	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, "rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, "rate_limit.burst_size must be > 0 when rate limiting is enabled")
		}
	}
	for i, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Sprintf("api_keys[%d] is empty", i))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// loadDotEnv reads KEY=value pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func loadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load loads configuration from .env and environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// Load from environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".json", ".yaml", ".yml":
	default:
		return errors.New("config file must have .json, .yaml or .yml extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file
func LoadFromFile(path string) (*Config, error) {
	// Validate the path for security
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	// Open the file safely after validation
	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Environment variables override file values
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: AdapterMemory,
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/scores.json",
			},
			Pebble: PebbleConfig{
				Path: "./data/pebble",
			},
		},
		History: HistoryConfig{
			RetentionPolicy: "recent",
			RetentionCap:    200,
			BestScoresCap:   10,
			PageSize:        20,
			CacheTTL:        30 * time.Second,
			DailyActivity:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Realtime: RealtimeConfig{
			Enabled:       true,
			AsyncDispatch: true,
		},
		Webhooks: WebhookConfig{
			Timeout: 5 * time.Second,
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
			},
			APIKeys: []string{},
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	// Validate environment
	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.History.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("history config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Webhooks.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("webhooks config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	// Create a copy for redaction
	cfg := *c

	// Redact sensitive information
	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		cfg.Security.APIKeys = []string{"[REDACTED]"}
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
