package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZilDuck/blaze-marketplace/internal/api"
	"github.com/ZilDuck/blaze-marketplace/internal/asset"
	"github.com/ZilDuck/blaze-marketplace/internal/bunny"
	"github.com/ZilDuck/blaze-marketplace/internal/config"
	"github.com/ZilDuck/blaze-marketplace/internal/config/di"
	"github.com/ZilDuck/blaze-marketplace/internal/elastic_search"
	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/event"
	"github.com/ZilDuck/blaze-marketplace/internal/messenger"
	"go.uber.org/zap"
)

func main() {
	config.Init()
	cfg := config.Get()

	container, err := di.NewContainer(cfg)
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	manager := container.Get("events").(event.Manager)
	registerListeners(container, manager)

	go health(cfg.HealthPort)
	go assets(cfg.AssetPort, container.Get("asset").(asset.Server))

	server := &http.Server{
		Addr:    ":" + cfg.ApiPort,
		Handler: container.Get("api").(api.Server).Router(),
	}

	go func() {
		zap.L().With(zap.String("port", cfg.ApiPort), zap.String("env", cfg.Env)).Info("Marketplace Started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().With(zap.Error(err)).Fatal("Failed to start marketplace api")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to shutdown marketplace api")
	}

	manager.Close()
	if err := container.Delete(); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to close services")
	}
	zap.L().Info("Marketplace Stopped")
	_ = zap.L().Sync()
}

func registerListeners(container interface{ Get(name string) interface{} }, manager event.Manager) {
	if index, ok := container.Get("elastic").(elastic_search.Index); ok {
		if err := index.InstallMappings(false); err != nil {
			zap.L().With(zap.Error(err)).Fatal("Failed to install elastic mappings")
		}
		manager.AddEventListener(event.AllEvents, container.Get("indexer").(elastic_search.Indexer).Handle)
	}

	if m, ok := container.Get("messenger").(messenger.MessageService); ok {
		manager.AddEventListener(event.AllEvents, m.PublishEvent)
	}

	if cdn, ok := container.Get("bunny").(bunny.Service); ok {
		manager.AddEventListener(entity.MintConfigUpdatedEvent, cdn.PurgeCacheFromEvent)
		manager.AddEventListener(entity.TransferEvent, cdn.PurgeCacheFromEvent)
	}
}

func assets(port string, server asset.Server) {
	zap.L().Info("Serving assets on :" + port)
	if err := http.ListenAndServe(":"+port, server.Router()); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to start asset server")
	}
}

func health(port string) {
	if err := http.ListenAndServe(":"+port, api.HealthRouter()); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to start health check")
	}
}
