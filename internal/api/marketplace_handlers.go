package api

import (
	"net/http"

	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
)

func (s Server) handleGetListings(w http.ResponseWriter, r *http.Request) {
	views := make([]ListingView, 0)
	s.ledger.View(func(c *ledger.Call) {
		for _, listing := range s.market.ActiveListings(c) {
			views = append(views, NewListingView(listing))
		}
	})

	writeJSON(w, http.StatusOK, views)
}

// handleGetListing never fails for a well formed key: a missing listing is
// reported as inactive with a zero price.
func (s Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	collection, err := varAddress(r, "collection")
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := varAssetId(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var view ListingView
	s.ledger.View(func(c *ledger.Call) {
		view = NewListingView(s.market.GetListing(c, collection, id))
	})

	writeJSON(w, http.StatusOK, view)
}

func (s Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req ListingRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	from, err := parseAddress("from", req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	collection, err := parseAddress("collection", req.Collection)
	if err != nil {
		writeError(w, err)
		return
	}
	price, err := parseAmount("price", req.Price)
	if err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.market.CreateListing(from, collection, req.AssetID, price)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, NewTxResponse(receipt))
}

func (s Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	var req FromRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	from, err := parseAddress("from", req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	collection, err := varAddress(r, "collection")
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := varAssetId(r)
	if err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.market.CancelListing(from, collection, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewTxResponse(receipt))
}

func (s Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	from, err := parseAddress("from", req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	value, err := parseAmount("value", req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	collection, err := varAddress(r, "collection")
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := varAssetId(r)
	if err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.market.Buy(from, collection, id, value)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewTxResponse(receipt))
}

func (s Server) handleGetProceeds(w http.ResponseWriter, r *http.Request) {
	addr, err := varAddress(r, "address")
	if err != nil {
		writeError(w, err)
		return
	}

	view := ProceedsView{Address: addr.Hex()}
	s.ledger.View(func(c *ledger.Call) {
		view.Amount = s.market.GetProceeds(c, addr).String()
	})

	writeJSON(w, http.StatusOK, view)
}

func (s Server) handleWithdrawProceeds(w http.ResponseWriter, r *http.Request) {
	var req FromRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	from, err := parseAddress("from", req.From)
	if err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.market.WithdrawProceeds(from)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewTxResponse(receipt))
}

func (s Server) handleGetFee(w http.ResponseWriter, r *http.Request) {
	view := FeeView{Address: s.market.Address().Hex(), Owner: s.market.Owner().Hex()}
	s.ledger.View(func(c *ledger.Call) {
		fee := s.market.FeeConfig(c)
		view.FeeBps = fee.FeeBps
		view.FeeRecipient = fee.FeeRecipient.Hex()
	})

	writeJSON(w, http.StatusOK, view)
}

func (s Server) handleSetFee(w http.ResponseWriter, r *http.Request) {
	var req FeeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	from, err := parseAddress("from", req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	recipient, err := parseAddress("feeRecipient", req.FeeRecipient)
	if err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.market.SetFee(from, req.FeeBps, recipient)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewTxResponse(receipt))
}
