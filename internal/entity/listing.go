package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gosimple/slug"
)

const MaxFeeBps uint = 10000

type ListingKey struct {
	Collection common.Address
	AssetID    uint64
}

func (k ListingKey) Slug() string {
	return CreateListingSlug(k.Collection, k.AssetID)
}

func CreateListingSlug(collection common.Address, assetId uint64) string {
	return slug.Make(fmt.Sprintf("listing-%s-%d", collection.Hex(), assetId))
}

type Listing struct {
	Collection common.Address `json:"collection"`
	AssetID    uint64         `json:"assetId"`
	Seller     common.Address `json:"seller"`
	Price      *big.Int       `json:"price"`
	Active     bool           `json:"active"`
}

func (l Listing) Key() ListingKey {
	return ListingKey{l.Collection, l.AssetID}
}

func (l Listing) Slug() string {
	return l.Key().Slug()
}

type FeeConfig struct {
	FeeBps       uint           `json:"feeBps"`
	FeeRecipient common.Address `json:"feeRecipient"`
}

func (f FeeConfig) Validate() error {
	if f.FeeBps > MaxFeeBps {
		return fmt.Errorf("%w: %d", ErrInvalidFee, f.FeeBps)
	}
	if f.FeeRecipient == (common.Address{}) {
		return fmt.Errorf("%w: fee recipient", ErrInvalidRecipient)
	}

	return nil
}
