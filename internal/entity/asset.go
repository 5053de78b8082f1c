package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gosimple/slug"
)

type Asset struct {
	ID              uint64         `json:"id"`
	Collection      common.Address `json:"collection"`
	Owner           common.Address `json:"owner"`
	Approved        common.Address `json:"approved"`
	LocatorOverride string         `json:"locatorOverride"`
}

func (a Asset) Slug() string {
	return CreateAssetSlug(a.ID, a.Collection)
}

func CreateAssetSlug(id uint64, collection common.Address) string {
	return slug.Make(fmt.Sprintf("asset-%d-%s", id, collection.Hex()))
}

// Locator returns the override when set, otherwise the base prefix followed by
// the decimal id.
func (a Asset) Locator(baseUri string) string {
	if a.LocatorOverride != "" {
		return a.LocatorOverride
	}

	return fmt.Sprintf("%s%d", baseUri, a.ID)
}

func (a Asset) HasApproval() bool {
	return a.Approved != common.Address{}
}

type MintConfig struct {
	BasePrice *big.Int       `json:"basePrice"`
	BaseUri   string         `json:"baseUri"`
	Admin     common.Address `json:"admin"`
}

// MintConfigUpdate carries a partial update, nil fields are left untouched.
type MintConfigUpdate struct {
	BasePrice *big.Int
	BaseUri   *string
}

func (u MintConfigUpdate) IsEmpty() bool {
	return u.BasePrice == nil && u.BaseUri == nil
}
