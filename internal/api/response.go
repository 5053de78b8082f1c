package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/metadata"
	"github.com/ZilDuck/blaze-marketplace/internal/storage"
	"github.com/ZilDuck/blaze-marketplace/internal/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var ErrBadRequest = errors.New("bad request")

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var statusByKind = map[string]int{
	"Unauthorized":        http.StatusForbidden,
	"NotOwner":            http.StatusForbidden,
	"UnknownAsset":        http.StatusNotFound,
	"UnknownCollection":   http.StatusNotFound,
	"AlreadyListed":       http.StatusConflict,
	"NotActive":           http.StatusConflict,
	"InsufficientPayment": http.StatusBadRequest,
	"InvalidPrice":        http.StatusBadRequest,
	"InvalidFee":          http.StatusBadRequest,
	"InvalidRecipient":    http.StatusBadRequest,
	"NothingToWithdraw":   http.StatusBadRequest,
	"InsufficientFunds":   http.StatusBadRequest,
	"TransferFailed":      http.StatusUnprocessableEntity,
	"TransferRejected":    http.StatusUnprocessableEntity,
}

// classify maps an error onto the kind reported to clients and its status.
func classify(err error) (string, int) {
	if kind := entity.ErrorKind(err); kind != "" {
		return kind, statusByKind[kind]
	}

	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, units.ErrInvalidAmount):
		return "BadRequest", http.StatusBadRequest
	case errors.Is(err, storage.ErrNoFile), errors.Is(err, storage.ErrNoName):
		return "BadRequest", http.StatusBadRequest
	case errors.Is(err, metadata.ErrInvalidLocator):
		return "InvalidLocator", http.StatusUnprocessableEntity
	case errors.Is(err, metadata.ErrMetadataNotFound), errors.Is(err, metadata.ErrMediaNotFound):
		return "MetadataUnavailable", http.StatusBadGateway
	case errors.Is(err, storage.ErrNotFound):
		return "NotFound", http.StatusNotFound
	case errors.Is(err, storage.ErrUploadFailed):
		return "UploadFailed", http.StatusBadGateway
	}

	return "Internal", http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	kind, status := classify(err)
	if status >= http.StatusInternalServerError {
		zap.L().With(zap.Error(err)).Error("API: Request failed")
	}

	writeJSON(w, status, ErrorResponse{Error: kind, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().With(zap.Error(err)).Warn("API: Failed to encode response")
	}
}

func decode(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	return nil
}

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%w: %s is not an address", ErrBadRequest, field)
	}

	return common.HexToAddress(value), nil
}

// parseAmount reads a wei amount. An empty string is zero.
func parseAmount(field, value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}

	amount, err := units.ParseWei(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadRequest, field, err)
	}

	return amount, nil
}

func varAddress(r *http.Request, name string) (common.Address, error) {
	return parseAddress(name, mux.Vars(r)[name])
}

func varAssetId(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid asset id", ErrBadRequest)
	}

	return id, nil
}
