package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/ryandem1/minesweeper-async/adapters/jsonfile"
	mem "github.com/ryandem1/minesweeper-async/adapters/memory"
	redisAdapter "github.com/ryandem1/minesweeper-async/adapters/redis"
	sqlxAdapter "github.com/ryandem1/minesweeper-async/adapters/sqlx"
	"github.com/ryandem1/minesweeper-async/analytics"
	"github.com/ryandem1/minesweeper-async/api/httpapi"
	"github.com/ryandem1/minesweeper-async/config"
	"github.com/ryandem1/minesweeper-async/core"
	"github.com/ryandem1/minesweeper-async/engine"
	"github.com/ryandem1/minesweeper-async/integrations/webhook"
	"github.com/ryandem1/minesweeper-async/latency"
	"github.com/ryandem1/minesweeper-async/leaderboard"
	"github.com/ryandem1/minesweeper-async/oracle"
	"github.com/ryandem1/minesweeper-async/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Service *engine.Service
	Handler http.Handler
	Server  *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case os.Getenv("SWEEPER_CONFIG_FILE") != "":
		cfg, err = config.LoadFromFile(os.Getenv("SWEEPER_CONFIG_FILE"))
	case os.Getenv("SWEEPER_PROFILE") != "":
		cfg, err = config.LoadProfile(os.Getenv("SWEEPER_PROFILE"))
	default:
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if cfg.Environment == config.EnvProduction {
		if err := cfg.LoadSecretsFromEnv(ctx); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideLeaderboard(cfg *config.Config) *leaderboard.SkipList {
	return leaderboard.NewSkipList(cfg.Leaderboard.Size)
}

func provideMetrics() *analytics.GameMetrics {
	return analytics.NewGameMetrics()
}

func providePolicy(cfg *config.Config) (core.ScoringPolicy, error) {
	return core.PolicyByName(cfg.Scoring.Policy)
}

func provideLatency(cfg *config.Config) *latency.Injector {
	return latency.New(cfg.Latency)
}

func provideStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.ScoreStore, func(), error) {
	return setupStorage(ctx, cfg, logger)
}

func provideService(
	cfg *config.Config,
	logger *slog.Logger,
	hub *realtime.Hub,
	store engine.ScoreStore,
	policy core.ScoringPolicy,
	pauser *latency.Injector,
	ranks *leaderboard.SkipList,
	metrics *analytics.GameMetrics,
) (*engine.Service, func()) {
	hooks := []analytics.Hook{metrics}
	if len(cfg.Webhooks.Endpoints) > 0 {
		hooks = append(hooks, setupWebhooks(cfg, logger))
	}
	mode := engine.DispatchSync
	if cfg.App.AsyncEvents {
		mode = engine.DispatchAsync
	}
	svc := oracle.New(
		oracle.WithStore(store),
		oracle.WithPolicy(policy),
		oracle.WithCapacity(cfg.App.MaxBoards),
		oracle.WithDefaultSpec(cfg.Board.Spec()),
		oracle.WithMaxSpaces(cfg.Board.MaxSpaces),
		oracle.WithFlagLimit(cfg.Scoring.EnforceFlagLimit),
		oracle.WithPauser(pauser),
		oracle.WithDispatchMode(mode),
		oracle.WithRealtime(hub),
		oracle.WithLeaderboard(ranks),
		oracle.WithHooks(hooks...),
		oracle.WithLogger(logger),
	)
	return svc, svc.Close
}

func provideHandler(cfg *config.Config, logger *slog.Logger, svc *engine.Service, hub *realtime.Hub, ranks *leaderboard.SkipList, metrics *analytics.GameMetrics) http.Handler {
	return httpapi.NewMux(svc, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		RateLimitCleanup: cfg.Security.RateLimit.CleanupInterval,
		Leaderboard:      ranks,
		Stats:            metrics,
		Logger:           logger,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
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
	case "json":
		handler = slog.NewJSONHandler(out, opts)
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
	case "info":
		return slog.LevelInfo
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
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the score store selected by configuration.
func setupStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.ScoreStore, func(), error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), func() {}, nil
	case "redis":
		store, err := redisAdapter.New(cfg.Storage.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis score store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing redis score store", "error", err)
			}
		}, nil
	case "sql":
		store, err := sqlxAdapter.New(ctx, cfg.Storage.SQL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect sql score store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing sql score store", "error", err)
			}
		}, nil
	case "file":
		store, err := jsonfile.New(cfg.Storage.File.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open score file: %w", err)
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}

func setupWebhooks(cfg *config.Config, logger *slog.Logger) *webhook.Sink {
	opts := []webhook.Option{webhook.WithTimeout(cfg.Webhooks.Timeout), webhook.WithLogger(logger)}
	if len(cfg.Webhooks.Events) > 0 {
		types := make([]core.EventType, len(cfg.Webhooks.Events))
		for i, ev := range cfg.Webhooks.Events {
			types[i] = core.EventType(ev)
		}
		opts = append(opts, webhook.WithEventTypes(types...))
	}
	return webhook.New(cfg.Webhooks.Endpoints, opts...)
}
