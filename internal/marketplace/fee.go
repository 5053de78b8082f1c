package marketplace

import (
	"math/big"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
)

// SplitFee divides price into the platform fee and the seller's share. The fee
// is truncated, so any rounding residue stays with the seller and
// fee + seller == price always holds.
func SplitFee(price *big.Int, feeBps uint) (fee, seller *big.Int) {
	fee = new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(feeBps)))
	fee.Quo(fee, new(big.Int).SetUint64(uint64(entity.MaxFeeBps)))
	seller = new(big.Int).Sub(price, fee)

	return fee, seller
}
