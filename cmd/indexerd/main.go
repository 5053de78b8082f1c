package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZilDuck/blaze-marketplace/internal/api"
	"github.com/ZilDuck/blaze-marketplace/internal/config"
	"github.com/ZilDuck/blaze-marketplace/internal/config/di"
	"github.com/ZilDuck/blaze-marketplace/internal/elastic_search"
	"github.com/ZilDuck/blaze-marketplace/internal/messenger"
	"go.uber.org/zap"
)

const queue = "blaze.indexer"

func main() {
	config.Init()
	cfg := config.Get()

	container, err := di.NewContainer(cfg)
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	index, ok := container.Get("elastic").(elastic_search.Index)
	if !ok {
		zap.L().Fatal("Elastic search is not enabled")
	}
	if err := index.InstallMappings(false); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to install elastic mappings")
	}

	messageService, ok := container.Get("messenger").(messenger.MessageService)
	if !ok {
		zap.L().Fatal("AMQP is not enabled")
	}

	go health(cfg.HealthPort)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	zap.L().With(zap.String("port", cfg.HealthPort)).Info("Indexer Started")

	indexer := container.Get("indexer").(elastic_search.Indexer)
	if err := messageService.ConsumeEvents(ctx, queue, "#", indexer.Handle); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to consume events")
	}

	// flushes the indexer and closes the broker connection
	if err := container.Delete(); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to flush indexer")
	}
	zap.L().Info("Indexer Stopped")
}

func health(port string) {
	if err := http.ListenAndServe(":"+port, api.HealthRouter()); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to start indexer")
	}
}
