package di

import (
	"time"

	"github.com/ZilDuck/blaze-marketplace/internal/api"
	"github.com/ZilDuck/blaze-marketplace/internal/asset"
	"github.com/ZilDuck/blaze-marketplace/internal/bunny"
	"github.com/ZilDuck/blaze-marketplace/internal/config"
	"github.com/ZilDuck/blaze-marketplace/internal/elastic_search"
	"github.com/ZilDuck/blaze-marketplace/internal/event"
	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
	"github.com/ZilDuck/blaze-marketplace/internal/log"
	"github.com/ZilDuck/blaze-marketplace/internal/marketplace"
	"github.com/ZilDuck/blaze-marketplace/internal/messenger"
	"github.com/ZilDuck/blaze-marketplace/internal/metadata"
	"github.com/ZilDuck/blaze-marketplace/internal/registry"
	"github.com/ZilDuck/blaze-marketplace/internal/storage"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"
	"github.com/sarulabs/di/v2"
	"go.uber.org/zap"
)

// Definitions builds every service from cfg. Optional sinks (elastic,
// messenger, bunny) resolve to nil when disabled.
func Definitions(cfg *config.Config) []di.Def {
	return []di.Def{
		{
			Name: "cache",
			Build: func(ctn di.Container) (interface{}, error) {
				return cache.New(5*time.Minute, 10*time.Minute), nil
			},
		},
		{
			Name: "httpClient",
			Build: func(ctn di.Container) (interface{}, error) {
				client := retryablehttp.NewClient()
				client.Logger = log.NewPrintfLogger("HttpClient")
				client.RetryMax = cfg.Ipfs.Retries
				client.HTTPClient.Timeout = time.Duration(cfg.Ipfs.Timeout) * time.Second

				return client, nil
			},
		},
		{
			Name: "ledger",
			Build: func(ctn di.Container) (interface{}, error) {
				l := ledger.New()
				l.Fund(cfg.Ledger.Faucet, cfg.Ledger.FaucetAmount)
				zap.L().With(
					zap.String("faucet", cfg.Ledger.Faucet.Hex()),
					zap.String("amount", cfg.Ledger.FaucetAmount.String()),
				).Info("Ledger: Funded faucet")

				return l, nil
			},
		},
		{
			Name: "events",
			Build: func(ctn di.Container) (interface{}, error) {
				manager := event.NewManager()
				ctn.Get("ledger").(*ledger.Ledger).Subscribe(manager.Publish)

				return manager, nil
			},
			Close: func(obj interface{}) error {
				obj.(event.Manager).Close()
				return nil
			},
		},
		{
			Name: "registry",
			Build: func(ctn di.Container) (interface{}, error) {
				return registry.NewRegistry(
					ctn.Get("ledger").(*ledger.Ledger),
					cfg.Ledger.RegistryAddress,
					cfg.Ledger.RegistryAdmin,
					cfg.Ledger.BaseUri,
					cfg.Ledger.BasePrice,
				), nil
			},
		},
		{
			Name: "marketplace",
			Build: func(ctn di.Container) (interface{}, error) {
				market, err := marketplace.NewMarketplace(
					ctn.Get("ledger").(*ledger.Ledger),
					cfg.Ledger.MarketplaceAddress,
					cfg.Ledger.MarketplaceOwner,
					cfg.Ledger.FeeRecipient,
					cfg.Ledger.FeeBps,
				)
				if err != nil {
					return nil, err
				}
				market.RegisterCollection(ctn.Get("registry").(*registry.Registry))

				return market, nil
			},
		},
		{
			Name: "uploader",
			Build: func(ctn di.Container) (interface{}, error) {
				return storage.NewUploader(cfg.Ipfs, ctn.Get("httpClient").(*retryablehttp.Client))
			},
		},
		{
			Name: "metadata",
			Build: func(ctn di.Container) (interface{}, error) {
				return metadata.NewMetadataService(
					cfg.Ipfs.Gateway,
					ctn.Get("httpClient").(*retryablehttp.Client),
					ctn.Get("cache").(*cache.Cache),
				), nil
			},
		},
		{
			Name: "api",
			Build: func(ctn di.Container) (interface{}, error) {
				return api.NewServer(
					ctn.Get("ledger").(*ledger.Ledger),
					ctn.Get("registry").(*registry.Registry),
					ctn.Get("marketplace").(*marketplace.Marketplace),
					ctn.Get("uploader").(storage.Uploader),
					ctn.Get("metadata").(metadata.Service),
				), nil
			},
		},
		{
			Name: "asset",
			Build: func(ctn di.Container) (interface{}, error) {
				return asset.NewServer(
					ctn.Get("ledger").(*ledger.Ledger),
					ctn.Get("registry").(*registry.Registry),
					ctn.Get("metadata").(metadata.Service),
				), nil
			},
		},
		{
			Name: "elastic",
			Build: func(ctn di.Container) (interface{}, error) {
				if !cfg.ElasticSearch.Enabled {
					return nil, nil
				}
				return elastic_search.New(cfg.ElasticSearch, cfg.Aws)
			},
		},
		{
			Name: "indexer",
			Build: func(ctn di.Container) (interface{}, error) {
				index, _ := ctn.Get("elastic").(elastic_search.Index)
				if index == nil {
					return nil, nil
				}
				return elastic_search.NewIndexer(index), nil
			},
			Close: func(obj interface{}) error {
				if indexer, ok := obj.(elastic_search.Indexer); ok {
					return indexer.Flush()
				}
				return nil
			},
		},
		{
			Name: "messenger",
			Build: func(ctn di.Container) (interface{}, error) {
				if !cfg.Amqp.Enabled {
					return nil, nil
				}
				return messenger.NewMessenger(cfg.Amqp.Uri, cfg.Amqp.Exchange), nil
			},
			Close: func(obj interface{}) error {
				if m, ok := obj.(messenger.MessageService); ok {
					return m.Close()
				}
				return nil
			},
		},
		{
			Name: "bunny",
			Build: func(ctn di.Container) (interface{}, error) {
				if !cfg.Cdn.Enabled {
					return nil, nil
				}
				return bunny.NewService(
					cfg.Cdn.Url,
					cfg.Cdn.ApiUrl,
					cfg.Cdn.AccessKey,
					ctn.Get("httpClient").(*retryablehttp.Client),
				), nil
			},
		},
	}
}

// NewContainer builds the application container from cfg.
func NewContainer(cfg *config.Config) (di.Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}
	if err = builder.Add(Definitions(cfg)...); err != nil {
		return nil, err
	}

	return builder.Build(), nil
}
