package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"scorekeeper/adapters/sqlx"
	"scorekeeper/core"
)

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	var errs []string

	if s.Address == "" {
		errs = append(errs, "address cannot be empty")
	}

	if s.PathPrefix != "" && !strings.HasPrefix(s.PathPrefix, "/") {
		errs = append(errs, "path_prefix must start with /")
	}

	if s.ReadTimeout <= 0 {
		errs = append(errs, "read_timeout must be positive")
	}

	if s.WriteTimeout <= 0 {
		errs = append(errs, "write_timeout must be positive")
	}

	if s.IdleTimeout <= 0 {
		errs = append(errs, "idle_timeout must be positive")
	}

	if s.ReadHeaderTimeout <= 0 {
		errs = append(errs, "read_header_timeout must be positive")
	}

	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "shutdown_timeout must be positive")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

var validAdapters = []string{AdapterMemory, AdapterFile, AdapterRedis, AdapterSQL, AdapterPebble}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	var errs []string

	if !slices.Contains(validAdapters, s.Adapter) {
		errs = append(errs, fmt.Sprintf("adapter must be one of: %s", strings.Join(validAdapters, ", ")))
	}

	// Validate adapter-specific configs
	switch s.Adapter {
	case AdapterMemory:
		if s.Memory.QuotaBytes < 0 {
			errs = append(errs, "memory config: quota_bytes cannot be negative")
		}
	case AdapterFile:
		if err := s.File.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("file config: %v", err))
		}
	case AdapterPebble:
		if s.Pebble.Path == "" {
			errs = append(errs, "pebble config: path cannot be empty")
		}
	case AdapterRedis:
		if s.Redis.Addr == "" {
			errs = append(errs, "redis config: addr cannot be empty")
		}
	case AdapterSQL:
		switch s.SQL.Driver {
		case sqlx.DriverPostgres, sqlx.DriverPgx, sqlx.DriverMySQL, sqlx.DriverSQLite:
		default:
			errs = append(errs, fmt.Sprintf("sql config: unsupported driver %q", s.SQL.Driver))
		}
		if s.SQL.DSN == "" {
			errs = append(errs, "sql config: dsn cannot be empty")
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// Validate validates file storage configuration
func (f *FileConfig) Validate() error {
	if f.Path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

// Validate validates history manager settings.
func (h *HistoryConfig) Validate() error {
	var errs []string

	switch h.RetentionPolicy {
	case "recent", "hybrid":
	default:
		errs = append(errs, "retention_policy must be one of: recent, hybrid")
	}
	if h.RetentionCap <= 0 {
		errs = append(errs, "retention_cap must be positive")
	}
	if h.BestScoresCap <= 0 {
		errs = append(errs, "best_scores_cap must be positive")
	}
	if h.PageSize <= 0 {
		errs = append(errs, "page_size must be positive")
	}
	if h.CacheTTL < 0 {
		errs = append(errs, "cache_ttl cannot be negative")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	var errs []string

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, l.Level) {
		errs = append(errs, "level must be one of: debug, info, warn, error")
	}

	if !slices.Contains([]string{"json", "text"}, l.Format) {
		errs = append(errs, "format must be one of: json, text")
	}

	if !slices.Contains([]string{"stdout", "stderr"}, l.Output) {
		errs = append(errs, "output must be one of: stdout, stderr")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

var knownEvents = []core.EventType{
	core.EventScoreRecorded,
	core.EventNewBest,
	core.EventRecordDeleted,
	core.EventHistoryCleared,
	core.EventBestScoresCleared,
	core.EventLegacyMigrated,
	core.EventGamesReset,
}

// Validate checks webhook endpoints are absolute http(s) URLs and the event
// filter names known event types.
func (w *WebhookConfig) Validate() error {
	var errs []string

	for i, ep := range w.Endpoints {
		u, err := url.Parse(ep)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Sprintf("endpoints[%d] must be an http(s) URL", i))
		}
	}
	for _, ev := range w.Events {
		if !slices.Contains(knownEvents, core.EventType(ev)) {
			errs = append(errs, fmt.Sprintf("unknown event type %q", ev))
		}
	}
	if len(w.Endpoints) > 0 && w.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
