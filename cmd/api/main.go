package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/matreq-backend/api/controllers"
	"github.com/angelmondragon/matreq-backend/api/routes"
	"github.com/angelmondragon/matreq-backend/internal/catalog"
	"github.com/angelmondragon/matreq-backend/internal/cutoff"
	"github.com/angelmondragon/matreq-backend/internal/ingest"
	"github.com/angelmondragon/matreq-backend/internal/receipts"
	"github.com/angelmondragon/matreq-backend/internal/requisitions"
	"github.com/angelmondragon/matreq-backend/internal/tables"
	"github.com/angelmondragon/matreq-backend/internal/usage"
	"github.com/angelmondragon/matreq-backend/pkg/bootstrap"
	"github.com/angelmondragon/matreq-backend/pkg/config"
	"github.com/angelmondragon/matreq-backend/pkg/db"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
	"github.com/angelmondragon/matreq-backend/pkg/metrics"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
	"github.com/angelmondragon/matreq-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, logg, err := bootstrap.Load("api")
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

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(ctx, "invalid timezone", err)
		return err
	}
	policy, err := cutoff.PolicyFromConfig(cfg.CutOff, loc)
	if err != nil {
		logg.Error(ctx, "invalid cut-off configuration", err)
		return err
	}

	services, err := buildServices(cfg, logg, rt.DB, rt.Redis, policy)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"addr":     addr,
		"timezone": loc.String(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			return err
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
	return nil
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, policy *cutoff.Policy) (routes.Services, error) {
	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	workflowMetrics := metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer)

	catalogSvc, err := catalog.NewService(
		catalog.NewRepository(gormDB),
		dbClient,
		outboxSvc,
		catalog.NewRedisCache(redisClient, cfg.Redis.CatalogCacheTTL),
		logg,
	)
	if err != nil {
		return routes.Services{}, err
	}

	ingestSvc, err := ingest.NewService(catalogSvc, metrics.NewIngestMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		return routes.Services{}, err
	}

	tableRepo := tables.NewRepository(gormDB)
	requisitionRepo := requisitions.NewRepository(gormDB)
	receiptRepo := receipts.NewRepository(gormDB)

	tableSvc, err := tables.NewService(tables.Deps{
		Repo:         tableRepo,
		Requisitions: requisitionRepo,
		Receipts:     receiptRepo,
		CutOff:       policy,
		Tx:           dbClient,
		Outbox:       outboxSvc,
		Metrics:      workflowMetrics,
		Logger:       logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	requisitionSvc, err := requisitions.NewService(requisitions.Deps{
		Repo:     requisitionRepo,
		Tables:   tableRepo,
		Receipts: receiptRepo,
		Catalog:  catalogSvc,
		CutOff:   policy,
		Numbers:  requisitions.NewNumberGenerator(policy.Location(), time.Now().UnixNano()),
		Tx:       dbClient,
		Outbox:   outboxSvc,
		Metrics:  workflowMetrics,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	receiptSvc, err := receipts.NewService(receiptRepo, tableRepo, requisitionRepo, dbClient, outboxSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}

	usageSvc, err := usage.NewService(tableRepo, requisitionRepo, usage.NewAggregator(catalogSvc), logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Catalog:      catalogSvc,
		Ingest:       ingestSvc,
		Tables:       tableSvc,
		Requisitions: requisitionSvc,
		Receipts:     receiptSvc,
		Usage:        usageSvc,
		CutOff:       policy,
		Idempotency:  redisClient,
		Ready: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
	}, nil
}
