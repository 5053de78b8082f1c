package main

import (
	"fmt"
	"strconv"

	"github.com/ZilDuck/blaze-marketplace/internal/api"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func collection(c *cli.Context) (common.Address, error) {
	return address("collection", c.String("collection"))
}

func createListing(c *cli.Context) error {
	seller, err := from(c)
	if err != nil {
		return err
	}
	coll, err := collection(c)
	if err != nil {
		return err
	}
	id, err := assetIdArg(c)
	if err != nil {
		return err
	}
	if c.NArg() < 2 {
		return fmt.Errorf("%w: ether", ErrMissingArgument)
	}
	price, err := weiString(c.Args().Get(1))
	if err != nil {
		return err
	}

	tx, err := apiClient.CreateListing(c.Context, seller, coll, id, price)
	if err != nil {
		return err
	}
	logTx("Listed asset", tx)

	return nil
}

func cancelListing(c *cli.Context) error {
	seller, err := from(c)
	if err != nil {
		return err
	}
	coll, err := collection(c)
	if err != nil {
		return err
	}
	id, err := assetIdArg(c)
	if err != nil {
		return err
	}

	tx, err := apiClient.CancelListing(c.Context, seller, coll, id)
	if err != nil {
		return err
	}
	logTx("Cancelled listing", tx)

	return nil
}

func buy(c *cli.Context) error {
	buyer, err := from(c)
	if err != nil {
		return err
	}
	coll, err := collection(c)
	if err != nil {
		return err
	}
	id, err := assetIdArg(c)
	if err != nil {
		return err
	}

	var value string
	if c.String("value") != "" {
		if value, err = weiString(c.String("value")); err != nil {
			return err
		}
	} else {
		l, err := apiClient.Listing(c.Context, coll, id)
		if err != nil {
			return err
		}
		value = l.Price
	}

	tx, err := apiClient.Buy(c.Context, buyer, coll, id, value)
	if err != nil {
		return err
	}
	logTx("Bought asset", tx)

	return nil
}

func listing(c *cli.Context) error {
	coll, err := collection(c)
	if err != nil {
		return err
	}
	id, err := assetIdArg(c)
	if err != nil {
		return err
	}

	l, err := apiClient.Listing(c.Context, coll, id)
	if err != nil {
		return err
	}
	printListing(*l)

	return nil
}

func listings(c *cli.Context) error {
	active, err := apiClient.Listings(c.Context)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		zap.L().Info("No active listings")
	}
	for _, l := range active {
		printListing(l)
	}

	return nil
}

func printListing(l api.ListingView) {
	if !l.Active {
		zap.S().Infof("%s #%d is not listed", l.Collection, l.AssetID)
		return
	}
	zap.S().Infof("%s #%d seller %s price %s", l.Collection, l.AssetID, l.Seller, ether(l.Price))
}

func proceeds(c *cli.Context) error {
	addr, err := from(c)
	if err != nil {
		return err
	}
	if c.NArg() > 0 {
		if addr, err = addressArg(c, 0, "address"); err != nil {
			return err
		}
	}

	view, err := apiClient.Proceeds(c.Context, addr)
	if err != nil {
		return err
	}
	zap.S().Infof("%s proceeds %s", view.Address, ether(view.Amount))

	return nil
}

func withdraw(c *cli.Context) error {
	payee, err := from(c)
	if err != nil {
		return err
	}

	tx, err := apiClient.WithdrawProceeds(c.Context, payee)
	if err != nil {
		return err
	}
	logTx("Withdrew proceeds", tx)

	return nil
}

func fee(c *cli.Context) error {
	view, err := apiClient.Fee(c.Context)
	if err != nil {
		return err
	}
	zap.S().Infof("marketplace %s owner %s fee %d bps to %s", view.Address, view.Owner, view.FeeBps, view.FeeRecipient)

	return nil
}

func setFee(c *cli.Context) error {
	owner, err := from(c)
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return fmt.Errorf("%w: feeBps", ErrMissingArgument)
	}
	feeBps, err := strconv.ParseUint(c.Args().First(), 10, 32)
	if err != nil {
		return err
	}
	recipient, err := addressArg(c, 1, "recipient")
	if err != nil {
		return err
	}

	tx, err := apiClient.SetFee(c.Context, owner, uint(feeBps), recipient)
	if err != nil {
		return err
	}
	logTx("Updated fee", tx)

	return nil
}
