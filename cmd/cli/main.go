package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZilDuck/blaze-marketplace/internal/client"
	"github.com/ZilDuck/blaze-marketplace/internal/config"
	"github.com/ZilDuck/blaze-marketplace/internal/log"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var apiClient *client.Client

func main() {
	config.Init()

	app := &cli.App{
		Name:  "blaze",
		Usage: "Blaze marketplace command line client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: config.Get().ApiUrl, Usage: "marketplace api url"},
			&cli.StringFlag{Name: "from", Value: config.Get().Ledger.Faucet.Hex(), Usage: "calling account"},
		},
		Before: func(c *cli.Context) error {
			httpClient := retryablehttp.NewClient()
			httpClient.Logger = log.NewPrintfLogger("Cli")
			httpClient.RetryMax = config.Get().Ipfs.Retries
			apiClient = client.New(c.String("api"), httpClient)

			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "faucet",
				Usage:     "Credit an account from the development faucet",
				ArgsUsage: "<address> <ether>",
				Action:    faucet,
			},
			{
				Name:      "balance",
				Usage:     "Show an account balance",
				ArgsUsage: "[address]",
				Action:    balance,
			},
			{
				Name:   "mint",
				Usage:  "Mint an asset at the base price",
				Action: mint,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "value", Usage: "attached ether, defaults to the base price"},
					&cli.StringFlag{Name: "locator", Usage: "content locator, empty uses the base uri"},
				},
			},
			{
				Name:      "admin-mint",
				Usage:     "Mint an asset for free as the registry admin",
				ArgsUsage: "<recipient>",
				Action:    adminMint,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "locator", Usage: "content locator, empty uses the base uri"},
				},
			},
			{
				Name:      "approve",
				Usage:     "Approve an operator for an asset",
				ArgsUsage: "<assetId> [operator]",
				Action:    approve,
			},
			{
				Name:      "transfer",
				Usage:     "Transfer an asset",
				ArgsUsage: "<assetId> <to>",
				Action:    transfer,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sender", Usage: "current owner when transferring as an operator"},
				},
			},
			{
				Name:      "asset",
				Usage:     "Show an asset",
				ArgsUsage: "<assetId>",
				Action:    asset,
			},
			{
				Name:   "mint-config",
				Usage:  "Show or update the mint configuration",
				Action: mintConfig,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "price", Usage: "new base price in ether"},
					&cli.StringFlag{Name: "base-uri", Usage: "new base uri"},
				},
			},
			{
				Name:   "registry-withdraw",
				Usage:  "Withdraw mint revenue to the registry admin",
				Action: registryWithdraw,
			},
			{
				Name:      "upload",
				Usage:     "Upload an image and its metadata document",
				ArgsUsage: "<file>",
				Action:    upload,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
				},
			},
			{
				Name:      "list",
				Usage:     "List an asset for sale",
				ArgsUsage: "<assetId> <ether>",
				Action:    createListing,
				Flags:     []cli.Flag{collectionFlag()},
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a listing",
				ArgsUsage: "<assetId>",
				Action:    cancelListing,
				Flags:     []cli.Flag{collectionFlag()},
			},
			{
				Name:      "buy",
				Usage:     "Buy a listed asset",
				ArgsUsage: "<assetId>",
				Action:    buy,
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.StringFlag{Name: "value", Usage: "attached ether, defaults to the listing price"},
				},
			},
			{
				Name:      "listing",
				Usage:     "Show a listing",
				ArgsUsage: "<assetId>",
				Action:    listing,
				Flags:     []cli.Flag{collectionFlag()},
			},
			{
				Name:   "listings",
				Usage:  "Show all active listings",
				Action: listings,
			},
			{
				Name:      "proceeds",
				Usage:     "Show withdrawable proceeds",
				ArgsUsage: "[address]",
				Action:    proceeds,
			},
			{
				Name:   "withdraw",
				Usage:  "Withdraw marketplace proceeds",
				Action: withdraw,
			},
			{
				Name:   "fee",
				Usage:  "Show the marketplace fee",
				Action: fee,
			},
			{
				Name:      "set-fee",
				Usage:     "Update the marketplace fee",
				ArgsUsage: "<feeBps> <recipient>",
				Action:    setFee,
			},
			{
				Name:   "events",
				Usage:  "Show committed ledger events",
				Action: events,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "since", Usage: "first sequence"},
				},
			},
			{
				Name:   "watch",
				Usage:  "Follow events published to the message broker",
				Action: watch,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "queue", Value: "blaze.cli"},
					&cli.StringFlag{Name: "binding", Value: "#", Usage: "event type routing key"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Command failed")
	}
}

func collectionFlag() cli.Flag {
	return &cli.StringFlag{Name: "collection", Value: config.Get().Ledger.RegistryAddress.Hex(), Usage: "collection address"}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
