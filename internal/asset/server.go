package asset

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
	"github.com/ZilDuck/blaze-marketplace/internal/metadata"
	"github.com/ZilDuck/blaze-marketplace/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var ErrInvalidParameters = errors.New("invalid parameters")

// Server is the CDN origin for asset media: /{collection}/{assetId} serves
// the image referenced by the asset's metadata document.
type Server struct {
	ledger          *ledger.Ledger
	registry        *registry.Registry
	metadataService metadata.Service
}

func NewServer(l *ledger.Ledger, registry *registry.Registry, metadataService metadata.Service) Server {
	return Server{l, registry, metadataService}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHomepage).Methods(http.MethodGet)
	r.HandleFunc("/{collection}/{assetId}", s.handleGetAsset).Methods(http.MethodGet)
	r.NotFoundHandler = notFoundHandler()

	return r
}

func (s Server) handleHomepage(w http.ResponseWriter, r *http.Request) {
	_, _ = fmt.Fprintf(w, "Blaze Asset CDN")
}

func (s Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	collection, assetId, err := getAssetRef(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if collection != s.registry.Address() {
		http.Error(w, "Collection not available", http.StatusNotFound)
		return
	}

	var locator string
	s.ledger.View(func(c *ledger.Call) {
		locator, err = s.registry.ResolveLocator(c, assetId)
	})
	if err != nil {
		zap.L().With(zap.Uint64("assetId", assetId), zap.Error(err)).Warn("Asset not available")
		http.Error(w, "Asset not available", http.StatusNotFound)
		return
	}

	data, contentType, err := s.metadataService.FetchImage(r.Context(), locator)
	if err != nil {
		zap.L().With(zap.String("locator", locator), zap.Error(err)).Warn("Asset media not available")
		status := http.StatusBadGateway
		if errors.Is(err, metadata.ErrInvalidLocator) {
			status = http.StatusNotFound
		}
		http.Error(w, "Asset media not available", status)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)

	zap.L().With(zap.String("collection", collection.Hex()), zap.Uint64("assetId", assetId)).Info("Serving asset")
}

func getAssetRef(r *http.Request) (common.Address, uint64, error) {
	vars := mux.Vars(r)
	if !common.IsHexAddress(vars["collection"]) {
		return common.Address{}, 0, fmt.Errorf("%w: collection", ErrInvalidParameters)
	}

	assetId, err := strconv.ParseUint(vars["assetId"], 10, 64)
	if err != nil {
		return common.Address{}, 0, fmt.Errorf("%w: assetId", ErrInvalidParameters)
	}

	return common.HexToAddress(vars["collection"]), assetId, nil
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, "Page not found")
	})
}

