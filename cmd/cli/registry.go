package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZilDuck/blaze-marketplace/internal/config"
	"github.com/ZilDuck/blaze-marketplace/internal/storage"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func faucet(c *cli.Context) error {
	to, err := addressArg(c, 0, "address")
	if err != nil {
		return err
	}
	if c.NArg() < 2 {
		return fmt.Errorf("%w: ether", ErrMissingArgument)
	}
	amount, err := weiString(c.Args().Get(1))
	if err != nil {
		return err
	}

	account, err := apiClient.Faucet(c.Context, to, amount)
	if err != nil {
		return err
	}
	zap.S().Infof("%s balance %s", account.Address, ether(account.Balance))

	return nil
}

func balance(c *cli.Context) error {
	addr, err := from(c)
	if err != nil {
		return err
	}
	if c.NArg() > 0 {
		if addr, err = addressArg(c, 0, "address"); err != nil {
			return err
		}
	}

	account, err := apiClient.Account(c.Context, addr)
	if err != nil {
		return err
	}
	zap.S().Infof("%s balance %s", account.Address, ether(account.Balance))

	return nil
}

func mint(c *cli.Context) error {
	sender, err := from(c)
	if err != nil {
		return err
	}

	var value string
	if c.String("value") != "" {
		if value, err = weiString(c.String("value")); err != nil {
			return err
		}
	} else {
		cfg, err := apiClient.MintConfig(c.Context)
		if err != nil {
			return err
		}
		value = cfg.BasePrice
	}

	tx, err := apiClient.Mint(c.Context, sender, value, c.String("locator"))
	if err != nil {
		return err
	}
	logTx("Minted asset", tx)

	return nil
}

func adminMint(c *cli.Context) error {
	sender, err := from(c)
	if err != nil {
		return err
	}
	recipient, err := addressArg(c, 0, "recipient")
	if err != nil {
		return err
	}

	tx, err := apiClient.AdminMint(c.Context, sender, recipient, c.String("locator"))
	if err != nil {
		return err
	}
	logTx("Minted asset", tx)

	return nil
}

func approve(c *cli.Context) error {
	sender, err := from(c)
	if err != nil {
		return err
	}
	id, err := assetIdArg(c)
	if err != nil {
		return err
	}

	operator := config.Get().Ledger.MarketplaceAddress
	if c.NArg() > 1 {
		if operator, err = addressArg(c, 1, "operator"); err != nil {
			return err
		}
	}

	tx, err := apiClient.Approve(c.Context, sender, operator, id)
	if err != nil {
		return err
	}
	logTx("Approved operator", tx)

	return nil
}

func transfer(c *cli.Context) error {
	caller, err := from(c)
	if err != nil {
		return err
	}
	id, err := assetIdArg(c)
	if err != nil {
		return err
	}
	to, err := addressArg(c, 1, "to")
	if err != nil {
		return err
	}

	sender := caller
	if c.String("sender") != "" {
		if sender, err = address("sender", c.String("sender")); err != nil {
			return err
		}
	}

	tx, err := apiClient.Transfer(c.Context, caller, sender, to, id)
	if err != nil {
		return err
	}
	logTx("Transferred asset", tx)

	return nil
}

func asset(c *cli.Context) error {
	id, err := assetIdArg(c)
	if err != nil {
		return err
	}

	view, err := apiClient.Asset(c.Context, id)
	if err != nil {
		return err
	}
	zap.S().Infof("#%d owner %s approved %s locator %s", view.ID, view.Owner, view.Approved, view.Locator)

	return nil
}

func mintConfig(c *cli.Context) error {
	if c.IsSet("price") || c.IsSet("base-uri") {
		sender, err := from(c)
		if err != nil {
			return err
		}

		var price, baseUri *string
		if c.IsSet("price") {
			wei, err := weiString(c.String("price"))
			if err != nil {
				return err
			}
			price = &wei
		}
		if c.IsSet("base-uri") {
			uri := c.String("base-uri")
			baseUri = &uri
		}

		tx, err := apiClient.SetMintConfig(c.Context, sender, price, baseUri)
		if err != nil {
			return err
		}
		logTx("Updated mint config", tx)
	}

	cfg, err := apiClient.MintConfig(c.Context)
	if err != nil {
		return err
	}
	zap.S().Infof("registry %s admin %s price %s baseUri %s next %d supply %d balance %s",
		cfg.Address, cfg.Admin, ether(cfg.BasePrice), cfg.BaseUri, cfg.NextID, cfg.TotalSupply, ether(cfg.Balance))

	return nil
}

func registryWithdraw(c *cli.Context) error {
	sender, err := from(c)
	if err != nil {
		return err
	}

	tx, err := apiClient.RegistryWithdraw(c.Context, sender)
	if err != nil {
		return err
	}
	logTx("Withdrew mint revenue", tx)

	return nil
}

func upload(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("%w: file", ErrMissingArgument)
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	result, err := apiClient.Upload(c.Context, storage.AssetUpload{
		File:        data,
		FileName:    filepath.Base(path),
		Name:        c.String("name"),
		Description: c.String("description"),
	})
	if err != nil {
		return err
	}
	zap.L().With(
		zap.String("image", result.ImageUri),
		zap.String("metadata", result.MetadataUri),
	).Info("Uploaded asset, mint with --locator " + result.MetadataUri)

	return nil
}
