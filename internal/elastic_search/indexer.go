package elastic_search

import (
	"strconv"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Indexer turns committed ledger events into search documents: one per
// event, plus the current state of each listing slot and asset.
type Indexer interface {
	Handle(e entity.Event)
	Flush() error
}

type indexer struct {
	index Index
}

func NewIndexer(index Index) Indexer {
	return indexer{index}
}

func (x indexer) Handle(e entity.Event) {
	x.index.AddIndexRequest(EventIndex, e, EventCreate)

	assetId, err := strconv.ParseUint(e.Params["assetId"], 10, 64)
	hasAsset := err == nil

	switch e.Type {
	case entity.MintEvent:
		doc := newAssetDocument(e.Contract, assetId)
		doc.Collection = e.Contract.Hex()
		doc.AssetID = assetId
		doc.Owner = e.Params["to"]
		doc.Locator = e.Params["locator"]
		doc.Sequence = e.Sequence
		x.index.AddIndexRequest(AssetIndex, doc, AssetMint)

	case entity.TransferEvent:
		if !hasAsset || e.Params["from"] == (common.Address{}).Hex() {
			break
		}
		doc := newAssetDocument(e.Contract, assetId)
		doc.Owner = e.Params["to"]
		doc.Sequence = e.Sequence
		x.index.AddUpdateRequest(AssetIndex, doc, AssetTransfer)

	case entity.ListingCreatedEvent:
		collection := common.HexToAddress(e.Params["collection"])
		doc := newListingDocument(collection, assetId)
		doc.Collection = collection.Hex()
		doc.AssetID = assetId
		doc.Seller = e.Params["seller"]
		doc.Price = e.Params["price"]
		doc.Active = true
		doc.Sequence = e.Sequence
		x.index.AddIndexRequest(ListingIndex, doc, ListingCreate)

	case entity.ListingCancelledEvent:
		doc := newListingDocument(common.HexToAddress(e.Params["collection"]), assetId)
		doc.Sequence = e.Sequence
		x.index.AddUpdateRequest(ListingIndex, doc, ListingCancel)

	case entity.SaleEvent:
		doc := newListingDocument(common.HexToAddress(e.Params["collection"]), assetId)
		doc.Buyer = e.Params["buyer"]
		doc.Sequence = e.Sequence
		x.index.AddUpdateRequest(ListingIndex, doc, ListingSale)
	}

	x.index.BatchPersist()
}

func (x indexer) Flush() error {
	actions, err := x.index.Persist()
	if err != nil {
		zap.L().With(zap.Error(err)).Error("ElasticSearch: Failed to flush indexer")
		return err
	}

	zap.L().With(zap.Int("actions", actions)).Debug("ElasticSearch: Flushed indexer")
	return nil
}
