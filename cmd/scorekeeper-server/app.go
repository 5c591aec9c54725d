package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"scorekeeper/adapters/jsonfile"
	mem "scorekeeper/adapters/memory"
	pebbleAdapter "scorekeeper/adapters/pebble"
	redisAdapter "scorekeeper/adapters/redis"
	sqlxAdapter "scorekeeper/adapters/sqlx"
	"scorekeeper/analytics"
	"scorekeeper/api/httpapi"
	"scorekeeper/arcade"
	"scorekeeper/config"
	"scorekeeper/core"
	"scorekeeper/engine"
	"scorekeeper/history"
	"scorekeeper/integrations/webhook"
	"scorekeeper/realtime"
)

// configFileEnv names a JSON or YAML config file; unset means env-only config.
const configFileEnv = "SCOREKEEPER_CONFIG_FILE"

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Arcade  *arcade.Arcade
	Handler http.Handler
	Server  *http.Server
}

func provideConfig() (*config.Config, error) {
	if path := os.Getenv(configFileEnv); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

// provideHub returns nil when realtime streaming is disabled.
func provideHub(cfg *config.Config) *realtime.Hub {
	if !cfg.Realtime.Enabled {
		return nil
	}
	return realtime.NewHub()
}

func provideStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.Storage, func(), error) {
	storage, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if c, ok := storage.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Error("close storage", "adapter", cfg.Storage.Adapter, "error", err)
			}
		}
	}
	return storage, cleanup, nil
}

func provideRetention(cfg *config.Config) history.Policy {
	if cfg.History.RetentionPolicy == history.PolicyHybrid {
		return history.NewHybridPolicy(cfg.History.RetentionCap)
	}
	return history.RecentPolicy{Cap: cfg.History.RetentionCap}
}

func provideHooks(cfg *config.Config, logger *slog.Logger) []analytics.Hook {
	if len(cfg.Webhooks.Endpoints) == 0 {
		return nil
	}
	events := make([]core.EventType, 0, len(cfg.Webhooks.Events))
	for _, e := range cfg.Webhooks.Events {
		events = append(events, core.EventType(e))
	}
	sink := webhook.New(cfg.Webhooks.Endpoints,
		webhook.WithClient(&http.Client{Timeout: cfg.Webhooks.Timeout}),
		webhook.WithEvents(events...),
		webhook.WithLogger(logger),
	)
	return []analytics.Hook{sink}
}

func provideArcade(cfg *config.Config, logger *slog.Logger, hub *realtime.Hub, storage engine.Storage, policy history.Policy, hooks []analytics.Hook) (*arcade.Arcade, func()) {
	mode := engine.DispatchSync
	if cfg.Realtime.AsyncDispatch {
		mode = engine.DispatchAsync
	}
	opts := []arcade.Option{
		arcade.WithStorage(storage),
		arcade.WithDispatchMode(mode),
		arcade.WithLogger(logger),
		arcade.WithHooks(hooks...),
		arcade.WithDailyActivity(cfg.History.DailyActivity),
		arcade.WithHistoryOptions(
			history.WithRetention(policy),
			history.WithBestScoresCap(cfg.History.BestScoresCap),
			history.WithPageSize(cfg.History.PageSize),
			history.WithCacheTTL(cfg.History.CacheTTL),
		),
	}
	if hub != nil {
		opts = append(opts, arcade.WithRealtime(hub))
	}
	a := arcade.New(opts...)
	return a, a.Close
}

func provideHandler(a *arcade.Arcade, hub *realtime.Hub, cfg *config.Config) http.Handler {
	return httpapi.NewMux(a.Manager, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
	})
}

func provideServer(cfg *config.Config, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	var out io.Writer = os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the storage adapter named by configuration.
func setupStorage(ctx context.Context, cfg *config.Config) (engine.Storage, error) {
	switch cfg.Storage.Adapter {
	case config.AdapterMemory:
		return mem.New(mem.WithQuota(cfg.Storage.Memory.QuotaBytes)), nil
	case config.AdapterFile:
		return jsonfile.New(cfg.Storage.File.Path)
	case config.AdapterRedis:
		return redisAdapter.New(cfg.Storage.Redis)
	case config.AdapterSQL:
		return sqlxAdapter.New(ctx, cfg.Storage.SQL)
	case config.AdapterPebble:
		return pebbleAdapter.Open(cfg.Storage.Pebble.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
