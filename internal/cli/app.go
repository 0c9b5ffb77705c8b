package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/pushkit/pkg/config"
	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/pushstore"
	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

const serviceName = "pushkit"

// appConfig selects the store backend and logging.
type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"` // Env is the deployment environment, e.g. "production".
	LogLevel string `env:"LOG_LEVEL"`                        // LogLevel overrides the environment's default level.
	Store    string `env:"PUSH_STORE" envDefault:"postgres"` // Store is one of postgres, redis or memory.
}

func newLogger(cfg appConfig, out io.Writer) (*slog.Logger, error) {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, serviceName),
		logger.WithOutput(out),
		logger.WithAttr(slog.String("version", version)),
	}
	if cfg.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		opts = append(opts, logger.WithLevel(level))
	}
	return logger.New(opts...), nil
}

// openStore connects the configured backend. The returned close func is
// never nil.
func openStore(ctx context.Context, kind string, log *slog.Logger) (webpush.Store, func(), error) {
	switch kind {
	case "postgres":
		var cfg pushstore.PostgresConfig
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pushstore.ConnectPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.DebugContext(ctx, "connected to postgres")
		return pushstore.NewPostgres(pool), pool.Close, nil

	case "redis":
		var cfg pushstore.RedisConfig
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		client, err := pushstore.ConnectRedis(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.DebugContext(ctx, "connected to redis")
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.ErrorContext(ctx, "failed to close redis client", logger.Error(err))
			}
		}
		return pushstore.NewRedis(client, pushstore.WithKeyPrefix(cfg.KeyPrefix)), closeFn, nil

	case "memory":
		return webpush.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", errUnknownStore, kind)
}

// app is what send and broadcast need: a ready Service and its teardown.
type app struct {
	log     *slog.Logger
	service *webpush.Service
	metrics *prometheus.Registry
	close   func()
}

func newApp(ctx context.Context, stderr io.Writer) (*app, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	log, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, err
	}
	logger.SetAsDefault(log)

	var pushCfg webpush.Config
	if err := config.Load(&pushCfg); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics, err := webpush.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return nil, err
	}

	svc, err := webpush.NewServiceFromConfig(store, pushCfg,
		webpush.WithLogger(log),
		webpush.WithMetrics(metrics),
	)
	if err != nil {
		closeStore()
		return nil, err
	}

	return &app{log: log, service: svc, metrics: reg, close: closeStore}, nil
}
