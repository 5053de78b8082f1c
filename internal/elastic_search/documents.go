package elastic_search

import (
	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ethereum/go-ethereum/common"
)

// ListingDocument is the searchable state of a listing slot. Update requests
// only carry the fields that changed.
type ListingDocument struct {
	Collection string `json:"collection,omitempty"`
	AssetID    uint64 `json:"assetId,omitempty"`
	Seller     string `json:"seller,omitempty"`
	Price      string `json:"price,omitempty"`
	Active     bool   `json:"active"`
	Buyer      string `json:"buyer,omitempty"`
	Sequence   uint64 `json:"sequence"`

	slug string
}

func (d ListingDocument) Slug() string {
	return d.slug
}

type AssetDocument struct {
	Collection string `json:"collection,omitempty"`
	AssetID    uint64 `json:"assetId,omitempty"`
	Owner      string `json:"owner"`
	Locator    string `json:"locator,omitempty"`
	Sequence   uint64 `json:"sequence"`

	slug string
}

func (d AssetDocument) Slug() string {
	return d.slug
}

func newListingDocument(collection common.Address, assetId uint64) ListingDocument {
	return ListingDocument{slug: entity.CreateListingSlug(collection, assetId)}
}

func newAssetDocument(collection common.Address, assetId uint64) AssetDocument {
	return AssetDocument{slug: entity.CreateAssetSlug(assetId, collection)}
}
