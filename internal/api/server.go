package api

import (
	"fmt"
	"net/http"

	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
	"github.com/ZilDuck/blaze-marketplace/internal/marketplace"
	"github.com/ZilDuck/blaze-marketplace/internal/metadata"
	"github.com/ZilDuck/blaze-marketplace/internal/registry"
	"github.com/ZilDuck/blaze-marketplace/internal/storage"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxUploadSize = 32 << 20

// Server exposes the ledger, registry and marketplace over HTTP. Callers name
// themselves with a "from" field; amounts are decimal wei strings.
type Server struct {
	ledger   *ledger.Ledger
	registry *registry.Registry
	market   *marketplace.Marketplace
	uploader storage.Uploader
	metadata metadata.Service
}

func NewServer(
	l *ledger.Ledger,
	registry *registry.Registry,
	market *marketplace.Marketplace,
	uploader storage.Uploader,
	metadataService metadata.Service,
) Server {
	return Server{l, registry, market, uploader, metadataService}
}

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHomepage).Methods(http.MethodGet)
	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/faucet", s.handleFaucet).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{address}", s.handleGetAccount).Methods(http.MethodGet)
	r.HandleFunc("/events", s.handleGetEvents).Methods(http.MethodGet)

	r.HandleFunc("/assets", s.handleMint).Methods(http.MethodPost)
	r.HandleFunc("/assets/admin", s.handleAdminMint).Methods(http.MethodPost)
	r.HandleFunc("/assets/{id:[0-9]+}", s.handleGetAsset).Methods(http.MethodGet)
	r.HandleFunc("/assets/{id:[0-9]+}/metadata", s.handleGetAssetMetadata).Methods(http.MethodGet)
	r.HandleFunc("/assets/{id:[0-9]+}/approve", s.handleApprove).Methods(http.MethodPost)
	r.HandleFunc("/assets/{id:[0-9]+}/transfer", s.handleTransfer).Methods(http.MethodPost)
	r.HandleFunc("/owners/{address}/assets", s.handleGetOwnerAssets).Methods(http.MethodGet)

	r.HandleFunc("/registry/config", s.handleGetMintConfig).Methods(http.MethodGet)
	r.HandleFunc("/registry/config", s.handleSetMintConfig).Methods(http.MethodPut)
	r.HandleFunc("/registry/withdraw", s.handleRegistryWithdraw).Methods(http.MethodPost)

	r.HandleFunc("/uploads", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/ipfs/{path:.+}", s.handleGetContent).Methods(http.MethodGet)

	r.HandleFunc("/listings", s.handleGetListings).Methods(http.MethodGet)
	r.HandleFunc("/listings", s.handleCreateListing).Methods(http.MethodPost)
	r.HandleFunc("/listings/{collection}/{id:[0-9]+}", s.handleGetListing).Methods(http.MethodGet)
	r.HandleFunc("/listings/{collection}/{id:[0-9]+}", s.handleCancelListing).Methods(http.MethodDelete)
	r.HandleFunc("/listings/{collection}/{id:[0-9]+}/buy", s.handleBuy).Methods(http.MethodPost)

	r.HandleFunc("/proceeds/withdraw", s.handleWithdrawProceeds).Methods(http.MethodPost)
	r.HandleFunc("/proceeds/{address}", s.handleGetProceeds).Methods(http.MethodGet)

	r.HandleFunc("/fee", s.handleGetFee).Methods(http.MethodGet)
	r.HandleFunc("/fee", s.handleSetFee).Methods(http.MethodPut)

	r.NotFoundHandler = notFoundHandler()

	return r
}

// HealthRouter serves only the health check, for the separate health port.
func HealthRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	return r
}

func (s Server) handleHomepage(w http.ResponseWriter, r *http.Request) {
	_, _ = fmt.Fprintf(w, "Blaze Marketplace")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zap.L().With(zap.String("path", r.URL.Path)).Debug("API: Page not found")
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "NotFound", Message: "page not found"})
	})
}
