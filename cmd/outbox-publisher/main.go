package main

import (
	"context"
	"errors"
	"os"

	"github.com/angelmondragon/matreq-backend/pkg/bootstrap"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
	"github.com/angelmondragon/matreq-backend/pkg/pubsub"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, logg, err := bootstrap.Load("outbox-publisher")
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		return err
	}

	ctx, stop := bootstrap.SignalContext(context.Background())
	defer stop()

	rt, err := bootstrap.Open(ctx, cfg, logg, bootstrap.Needs{DevMigrate: true})
	if err != nil {
		logg.Error(ctx, "failed to bootstrap dependencies", err)
		return err
	}
	defer rt.Close(context.Background())

	pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap pubsub", err)
		return err
	}
	rt.OnClose("pubsub", pubsubClient.Close)

	requisitionPublisher := pubsubClient.RequisitionPublisher()
	// flushes buffered messages before the client closes
	rt.OnClose("pubsub publisher", func() error {
		requisitionPublisher.Stop()
		return nil
	})

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         rt.DB,
		PubSub:     pubsubClient,
		Repository: outbox.NewRepository(rt.DB.DB()),
		Publisher:  newGCPPublisher(requisitionPublisher),
	})
	if err != nil {
		logg.Error(ctx, "failed to create outbox publisher", err)
		return err
	}

	ctx = logg.WithField(ctx, "topic", cfg.PubSub.RequisitionTopic)
	logg.Info(ctx, "starting outbox publisher")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		return err
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
	return nil
}
