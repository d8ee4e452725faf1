package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/matreq-backend/internal/cron"
	"github.com/angelmondragon/matreq-backend/internal/cutoff"
	"github.com/angelmondragon/matreq-backend/internal/requisitions"
	"github.com/angelmondragon/matreq-backend/internal/tables"
	"github.com/angelmondragon/matreq-backend/pkg/bootstrap"
	"github.com/angelmondragon/matreq-backend/pkg/config"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	"github.com/angelmondragon/matreq-backend/pkg/metrics"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
)

const outboxRetentionEvery = 24 * time.Hour

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, logg, err := bootstrap.Load("cron-worker")
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		return err
	}

	ctx, stop := bootstrap.SignalContext(context.Background())
	defer stop()

	rt, err := bootstrap.Open(ctx, cfg, logg, bootstrap.Needs{Redis: true, DevMigrate: true})
	if err != nil {
		logg.Error(ctx, "failed to bootstrap dependencies", err)
		return err
	}
	defer rt.Close(context.Background())

	service, err := buildService(cfg, logg, rt)
	if err != nil {
		logg.Error(ctx, "failed to wire cron worker", err)
		return err
	}

	ctx = logg.WithField(ctx, "tick", cfg.Cron.Interval.String())
	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

// buildService registers the reminder job on every tick and outbox retention
// once a day, both behind one Redis lock.
func buildService(cfg *config.Config, logg *logger.Logger, rt *bootstrap.Runtime) (*cron.Service, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	policy, err := cutoff.PolicyFromConfig(cfg.CutOff, loc)
	if err != nil {
		return nil, fmt.Errorf("cut-off configuration: %w", err)
	}
	dbClient, redisClient := rt.DB, rt.Redis

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outboxRepo, logg)

	reminderJob, err := cron.NewCutOffReminderJob(cron.CutOffReminderJobParams{
		Logger:       logg,
		DB:           dbClient,
		Tables:       tables.NewRepository(dbClient.DB()),
		Requisitions: requisitions.NewRepository(dbClient.DB()),
		Policy:       policy,
		Marks:        redisClient,
		Outbox:       outboxSvc,
		Window:       cfg.CutOff.ReminderWindow(),
	})
	if err != nil {
		return nil, fmt.Errorf("cut-off reminder job: %w", err)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:           logg,
		DB:               dbClient,
		Repository:       outboxRepo,
		Retention:        cfg.Outbox.Retention(),
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	registry := cron.NewRegistry(reminderJob)
	registry.Register(retentionJob, outboxRetentionEvery)

	lock, err := cron.NewRedisLock(redisClient, "cron-worker", cfg.Cron.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("cron lock: %w", err)
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Tick:     cfg.Cron.Interval,
	})
}
