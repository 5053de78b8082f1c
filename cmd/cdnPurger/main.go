package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZilDuck/blaze-marketplace/internal/bunny"
	"github.com/ZilDuck/blaze-marketplace/internal/config"
	"github.com/ZilDuck/blaze-marketplace/internal/config/di"
	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/messenger"
	"go.uber.org/zap"
)

const queue = "blaze.cdn"

func main() {
	config.Init()

	container, err := di.NewContainer(config.Get())
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}
	defer func() { _ = container.Delete() }()

	bunnyService, ok := container.Get("bunny").(bunny.Service)
	if !ok {
		zap.L().Fatal("CDN is not enabled")
	}
	messageService, ok := container.Get("messenger").(messenger.MessageService)
	if !ok {
		zap.L().Fatal("AMQP is not enabled")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	zap.L().Info("Subscribing to cdn purge")
	for _, eventType := range []entity.EventType{entity.MintConfigUpdatedEvent, entity.TransferEvent} {
		go consume(ctx, messageService, eventType, bunnyService.PurgeCacheFromEvent)
	}

	<-ctx.Done()
	zap.L().Info("CDN purger stopped")
}

func consume(ctx context.Context, messageService messenger.MessageService, eventType entity.EventType, purge func(e entity.Event)) {
	if err := messageService.ConsumeEvents(ctx, queue, string(eventType), purge); err != nil {
		zap.L().With(zap.String("type", string(eventType)), zap.Error(err)).Error("Failed to consume messages")
	}
}
