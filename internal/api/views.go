package api

import (
	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
)

type TxResponse struct {
	TxID     string         `json:"txId"`
	Sequence uint64         `json:"sequence"`
	Events   []entity.Event `json:"events"`
	AssetID  *uint64        `json:"assetId,omitempty"`
}

func NewTxResponse(receipt *ledger.Receipt) TxResponse {
	return TxResponse{TxID: receipt.TxID, Sequence: receipt.Sequence, Events: receipt.Events}
}

type AccountView struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

type AssetView struct {
	ID         uint64 `json:"id"`
	Collection string `json:"collection"`
	Owner      string `json:"owner"`
	Approved   string `json:"approved,omitempty"`
	Locator    string `json:"locator"`
}

type OwnerView struct {
	Owner  string   `json:"owner"`
	Count  uint64   `json:"count"`
	Assets []uint64 `json:"assets"`
}

type MintConfigView struct {
	Address     string `json:"address"`
	Admin       string `json:"admin"`
	BasePrice   string `json:"basePrice"`
	BaseUri     string `json:"baseUri"`
	NextID      uint64 `json:"nextId"`
	TotalSupply uint64 `json:"totalSupply"`
	Balance     string `json:"balance"`
}

type ListingView struct {
	Collection string `json:"collection"`
	AssetID    uint64 `json:"assetId"`
	Seller     string `json:"seller"`
	Price      string `json:"price"`
	Active     bool   `json:"active"`
}

func NewListingView(l entity.Listing) ListingView {
	return ListingView{
		Collection: l.Collection.Hex(),
		AssetID:    l.AssetID,
		Seller:     l.Seller.Hex(),
		Price:      l.Price.String(),
		Active:     l.Active,
	}
}

type ProceedsView struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type FeeView struct {
	Address      string `json:"address"`
	Owner        string `json:"owner"`
	FeeBps       uint   `json:"feeBps"`
	FeeRecipient string `json:"feeRecipient"`
}
