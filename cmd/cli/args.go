package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ZilDuck/blaze-marketplace/internal/api"
	"github.com/ZilDuck/blaze-marketplace/internal/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var ErrMissingArgument = errors.New("missing argument")

func from(c *cli.Context) (common.Address, error) {
	return address("from", c.String("from"))
}

func address(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func addressArg(c *cli.Context, n int, name string) (common.Address, error) {
	if c.NArg() <= n {
		return common.Address{}, fmt.Errorf("%w: %s", ErrMissingArgument, name)
	}
	return address(name, c.Args().Get(n))
}

func assetIdArg(c *cli.Context) (uint64, error) {
	if c.NArg() == 0 {
		return 0, fmt.Errorf("%w: assetId", ErrMissingArgument)
	}
	return strconv.ParseUint(c.Args().First(), 10, 64)
}

// weiString converts a decimal ether amount to the api's wei representation.
func weiString(ether string) (string, error) {
	wei, err := units.ParseEther(ether)
	if err != nil {
		return "", err
	}
	return wei.String(), nil
}

// ether renders an api wei amount in ether.
func ether(wei string) string {
	amount, err := units.ParseWei(wei)
	if err != nil {
		return wei
	}
	return units.FormatEther(amount) + " ETH"
}

func logTx(msg string, tx *api.TxResponse) {
	types := make([]string, len(tx.Events))
	for i, e := range tx.Events {
		types[i] = string(e.Type)
	}

	fields := []zap.Field{
		zap.String("txId", tx.TxID),
		zap.Uint64("sequence", tx.Sequence),
		zap.Strings("events", types),
	}
	if tx.AssetID != nil {
		fields = append(fields, zap.Uint64("assetId", *tx.AssetID))
	}

	zap.L().With(fields...).Info(msg)
}
