package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
	"github.com/ZilDuck/blaze-marketplace/internal/storage"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req FaucetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	to, err := parseAddress("to", req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	s.ledger.Fund(to, amount)
	zap.L().With(zap.String("to", to.Hex()), zap.String("amount", amount.String())).Info("API: Faucet")

	writeJSON(w, http.StatusOK, AccountView{Address: to.Hex(), Balance: s.ledger.BalanceOf(to).String()})
}

func (s Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := varAddress(r, "address")
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountView{Address: addr.Hex(), Balance: s.ledger.BalanceOf(addr).String()})
}

// handleGetEvents returns committed events from the optional "from" sequence.
func (s Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	var from uint64
	if value := r.URL.Query().Get("from"); value != "" {
		var err error
		if from, err = strconv.ParseUint(value, 10, 64); err != nil {
			writeError(w, ErrBadRequest)
			return
		}
	}

	writeJSON(w, http.StatusOK, s.ledger.Events(from))
}

func (s Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
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

	id, receipt, err := s.registry.Mint(from, value, req.Locator)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := NewTxResponse(receipt)
	resp.AssetID = &id
	writeJSON(w, http.StatusCreated, resp)
}

func (s Server) handleAdminMint(w http.ResponseWriter, r *http.Request) {
	var req AdminMintRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	from, err := parseAddress("from", req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		writeError(w, err)
		return
	}

	id, receipt, err := s.registry.AdminMint(from, to, req.Locator)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := NewTxResponse(receipt)
	resp.AssetID = &id
	writeJSON(w, http.StatusCreated, resp)
}

func (s Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := varAssetId(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var asset entity.Asset
	var locator string
	s.ledger.View(func(c *ledger.Call) {
		if asset, err = s.registry.Asset(c, id); err == nil {
			locator, err = s.registry.ResolveLocator(c, id)
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}

	view := AssetView{
		ID:         asset.ID,
		Collection: asset.Collection.Hex(),
		Owner:      asset.Owner.Hex(),
		Locator:    locator,
	}
	if asset.HasApproval() {
		view.Approved = asset.Approved.Hex()
	}

	writeJSON(w, http.StatusOK, view)
}

// handleGetAssetMetadata resolves the asset's locator and serves the
// document it points at.
func (s Server) handleGetAssetMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := varAssetId(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var locator string
	s.ledger.View(func(c *ledger.Call) {
		locator, err = s.registry.ResolveLocator(c, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	md, err := s.metadata.GetMetadata(r.Context(), locator)
	if err != nil {
		zap.L().With(zap.Error(err), zap.Uint64("assetId", id), zap.String("locator", locator)).Warn("API: Metadata not available")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, md)
}

func (s Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := varAssetId(r)
	if err != nil {
		writeError(w, err)
		return
	}
	from, err := parseAddress("from", req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	operator, err := parseAddress("operator", req.Operator)
	if err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.registry.Approve(from, operator, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewTxResponse(receipt))
}

func (s Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := varAssetId(r)
	if err != nil {
		writeError(w, err)
		return
	}
	from, err := parseAddress("from", req.From)
	if err != nil {
		writeError(w, err)
		return
	}
	sender := from
	if req.Sender != "" {
		if sender, err = parseAddress("sender", req.Sender); err != nil {
			writeError(w, err)
			return
		}
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		writeError(w, err)
		return
	}

	receipt, err := s.registry.Transfer(from, sender, to, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewTxResponse(receipt))
}

func (s Server) handleGetOwnerAssets(w http.ResponseWriter, r *http.Request) {
	owner, err := varAddress(r, "address")
	if err != nil {
		writeError(w, err)
		return
	}

	view := OwnerView{Owner: owner.Hex()}
	s.ledger.View(func(c *ledger.Call) {
		view.Count = s.registry.BalanceOf(c, owner)
		view.Assets = s.registry.AssetsOf(c, owner)
	})

	writeJSON(w, http.StatusOK, view)
}

func (s Server) handleGetMintConfig(w http.ResponseWriter, r *http.Request) {
	view := MintConfigView{Address: s.registry.Address().Hex()}
	s.ledger.View(func(c *ledger.Call) {
		cfg := s.registry.MintConfig(c)
		view.Admin = cfg.Admin.Hex()
		view.BasePrice = cfg.BasePrice.String()
		view.BaseUri = cfg.BaseUri
		view.NextID = s.registry.NextID(c)
		view.TotalSupply = s.registry.TotalSupply(c)
		view.Balance = c.BalanceOf(s.registry.Address()).String()
	})

	writeJSON(w, http.StatusOK, view)
}

func (s Server) handleSetMintConfig(w http.ResponseWriter, r *http.Request) {
	var req MintConfigRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	from, err := parseAddress("from", req.From)
	if err != nil {
		writeError(w, err)
		return
	}

	update := entity.MintConfigUpdate{BaseUri: req.BaseUri}
	if req.BasePrice != nil {
		if update.BasePrice, err = parseAmount("basePrice", *req.BasePrice); err != nil {
			writeError(w, err)
			return
		}
	}

	receipt, err := s.registry.SetMintConfig(from, update)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewTxResponse(receipt))
}

func (s Server) handleRegistryWithdraw(w http.ResponseWriter, r *http.Request) {
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

	receipt, err := s.registry.Withdraw(from)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NewTxResponse(receipt))
}

// handleUpload takes a multipart form with file, name and description and
// returns the locators to mint with.
func (s Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, ErrBadRequest)
		return
	}

	upload := storage.AssetUpload{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		if upload.File, err = io.ReadAll(file); err != nil {
			writeError(w, err)
			return
		}
		upload.FileName = header.Filename
	}

	result, err := storage.UploadImageAndMetadata(r.Context(), s.uploader, upload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleGetContent serves stored content for backends that can read it back,
// which lets the server act as its own development gateway.
func (s Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	reader, ok := s.uploader.(storage.Reader)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "NotFound", Message: "storage backend is write only"})
		return
	}

	content, err := reader.Cat(r.Context(), mux.Vars(r)["path"])
	if err != nil {
		writeError(w, err)
		return
	}
	defer content.Close()

	data, err := io.ReadAll(content)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
