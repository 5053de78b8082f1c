package units

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

const EtherDecimals int32 = 18

var ErrInvalidAmount = errors.New("invalid amount")

// ParseEther converts a decimal ether amount ("0.01") into wei. Amounts with
// more than 18 decimal places or a negative sign are rejected.
func ParseEther(value string) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, value)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, value)
	}

	wei := d.Shift(EtherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAmount, value, EtherDecimals)
	}

	return wei.BigInt(), nil
}

func MustParseEther(value string) *big.Int {
	wei, err := ParseEther(value)
	if err != nil {
		panic(err)
	}

	return wei
}

func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	return decimal.NewFromBigInt(wei, -EtherDecimals).String()
}

// ParseWei parses a base-10 or 0x-prefixed integer amount of wei.
func ParseWei(value string) (*big.Int, error) {
	wei, ok := math.ParseBig256(value)
	if !ok || wei.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, value)
	}

	return wei, nil
}
