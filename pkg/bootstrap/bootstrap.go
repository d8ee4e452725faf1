// Package bootstrap holds the process wiring shared by the cmd binaries:
// environment loading, the service logger and the long-lived clients.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/matreq-backend/pkg/config"
	"github.com/angelmondragon/matreq-backend/pkg/db"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	"github.com/angelmondragon/matreq-backend/pkg/migrate"
	"github.com/angelmondragon/matreq-backend/pkg/redis"
)

// Load reads .env when present, then the environment, and returns the
// configured logger for service. The returned logger is usable even when
// config loading fails.
func Load(service string) (*config.Config, *logger.Logger, error) {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, logg, fmt.Errorf("load config: %w", err)
	}
	return cfg, NewLogger(service, cfg), nil
}

func NewLogger(service string, cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: service,
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
}

// Needs selects the optional dependencies Open brings up.
type Needs struct {
	Redis      bool
	DevMigrate bool
}

// Runtime owns the clients of one process. Close releases them in reverse
// order of acquisition.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client

	closers []closer
}

type closer struct {
	name string
	fn   func() error
}

// Open connects the database and, per needs, applies dev migrations and
// connects Redis. On failure everything opened so far is closed.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger, needs Needs) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logg}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	rt.DB = dbClient
	rt.OnClose("database", dbClient.Close)

	if needs.DevMigrate {
		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("dev migrations: %w", err)
		}
	}

	if needs.Redis {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		rt.Redis = redisClient
		rt.OnClose("redis", redisClient.Close)
	}
	return rt, nil
}

// OnClose registers fn to run on Close.
func (r *Runtime) OnClose(name string, fn func() error) {
	r.closers = append(r.closers, closer{name: name, fn: fn})
}

func (r *Runtime) Close(ctx context.Context) {
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		if err := c.fn(); err != nil && r.Logger != nil {
			r.Logger.Error(r.Logger.WithField(ctx, "dependency", c.name), "close failed", err)
		}
	}
	r.closers = nil
}

// SignalContext is canceled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
