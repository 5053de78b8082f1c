package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
	"github.com/ZilDuck/blaze-marketplace/internal/marketplace"
	"github.com/ZilDuck/blaze-marketplace/internal/metadata"
	"github.com/ZilDuck/blaze-marketplace/internal/registry"
	"github.com/ZilDuck/blaze-marketplace/internal/storage"
	"github.com/ZilDuck/blaze-marketplace/internal/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer     = common.HexToAddress("0x000000000000000000000000000000000000de01")
	user1        = common.HexToAddress("0x0000000000000000000000000000000000000001")
	user2        = common.HexToAddress("0x0000000000000000000000000000000000000002")
	feeRecipient = common.HexToAddress("0x000000000000000000000000000000000000fee1")
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000b1a2e000")
	marketAddr   = common.HexToAddress("0x000000000000000000000000000000000a2ce700")
)

type testApi struct {
	t   *testing.T
	url string
}

func newTestApi(t *testing.T) testApi {
	t.Helper()

	l := ledger.New()
	for _, addr := range []common.Address{deployer, user1, user2} {
		l.Fund(addr, units.MustParseEther("10"))
	}

	reg := registry.NewRegistry(l, registryAddr, deployer, "ipfs://QmBase/", units.MustParseEther("0.01"))
	market, err := marketplace.NewMarketplace(l, marketAddr, deployer, feeRecipient, 250)
	require.NoError(t, err)
	market.RegisterCollection(reg)

	// the server is its own gateway for the mock store
	var handler http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil

	handler = NewServer(l, reg, market, storage.NewMockStore(), metadata.NewMetadataService(srv.URL, client, nil)).Router()

	return testApi{t, srv.URL}
}

func (a testApi) do(method, path string, body interface{}, out interface{}) int {
	a.t.Helper()

	var reader *bytes.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(s))
	} else {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, a.url+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func (a testApi) expectError(method, path string, body interface{}, status int, kind string) {
	a.t.Helper()

	var resp ErrorResponse
	assert.Equal(a.t, status, a.do(method, path, body, &resp))
	assert.Equal(a.t, kind, resp.Error)
}

func (a testApi) mint(from common.Address, locator string) uint64 {
	a.t.Helper()

	var resp TxResponse
	status := a.do(http.MethodPost, "/assets", MintRequest{
		From:    from.Hex(),
		Value:   units.MustParseEther("0.01").String(),
		Locator: locator,
	}, &resp)
	require.Equal(a.t, http.StatusCreated, status)
	require.NotNil(a.t, resp.AssetID)

	return *resp.AssetID
}

func (a testApi) list(from common.Address, id uint64, price string) int {
	a.t.Helper()

	return a.do(http.MethodPost, "/listings", ListingRequest{
		From:       from.Hex(),
		Collection: registryAddr.Hex(),
		AssetID:    id,
		Price:      units.MustParseEther(price).String(),
	}, nil)
}

func listingPath(id uint64) string {
	return "/listings/" + registryAddr.Hex() + "/" + strconv.FormatUint(id, 10)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestUploadMintAndResolveMetadata(t *testing.T) {
	a := newTestApi(t)

	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)
	part, _ := form.CreateFormFile("file", "duck.png")
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\nduck"))
	_ = form.WriteField("name", "Duck")
	_ = form.WriteField("description", "A duck")
	require.NoError(t, form.Close())

	resp, err := http.Post(a.url+"/uploads", form.FormDataContentType(), body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var uploaded storage.UploadResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))

	id := a.mint(user1, uploaded.MetadataUri)
	assert.Equal(t, uint64(1), id)

	var asset AssetView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/assets/1", nil, &asset))
	assert.Equal(t, user1.Hex(), asset.Owner)
	assert.Equal(t, uploaded.MetadataUri, asset.Locator)

	var md map[string]interface{}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/assets/1/metadata", nil, &md))
	assert.Equal(t, "Duck", md["name"])
	assert.Equal(t, uploaded.ImageUri, md["image"])
}

func TestUpload_RequiresName(t *testing.T) {
	a := newTestApi(t)

	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)
	part, _ := form.CreateFormFile("file", "duck.png")
	_, _ = part.Write([]byte("duck"))
	require.NoError(t, form.Close())

	resp, err := http.Post(a.url+"/uploads", form.FormDataContentType(), body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMintConfigFlow(t *testing.T) {
	a := newTestApi(t)
	a.mint(user1, "")

	var asset AssetView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/assets/1", nil, &asset))
	assert.Equal(t, "ipfs://QmBase/1", asset.Locator)

	baseUri := "ipfs://QmNewBase/"
	a.expectError(http.MethodPut, "/registry/config", MintConfigRequest{From: user1.Hex(), BaseUri: &baseUri},
		http.StatusForbidden, "Unauthorized")
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/registry/config",
		MintConfigRequest{From: deployer.Hex(), BaseUri: &baseUri}, nil))

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/assets/1", nil, &asset))
	assert.Equal(t, "ipfs://QmNewBase/1", asset.Locator)

	var cfg MintConfigView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/registry/config", nil, &cfg))
	assert.Equal(t, uint64(2), cfg.NextID)
	assert.Equal(t, uint64(1), cfg.TotalSupply)
	assert.Equal(t, units.MustParseEther("0.01").String(), cfg.Balance)

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/registry/withdraw", FromRequest{From: deployer.Hex()}, nil))
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/registry/config", nil, &cfg))
	assert.Equal(t, "0", cfg.Balance)

	var owner OwnerView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/owners/"+user1.Hex()+"/assets", nil, &owner))
	assert.Equal(t, []uint64{1}, owner.Assets)
}

func TestMarketplaceFlow(t *testing.T) {
	a := newTestApi(t)
	id := a.mint(user1, "ipfs://token1.json")

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/assets/1/approve",
		ApproveRequest{From: user1.Hex(), Operator: marketAddr.Hex()}, nil))
	require.Equal(t, http.StatusCreated, a.list(user1, id, "0.1"))

	var listings []ListingView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/listings", nil, &listings))
	require.Len(t, listings, 1)
	assert.Equal(t, units.MustParseEther("0.1").String(), listings[0].Price)

	a.expectError(http.MethodPost, listingPath(id)+"/buy",
		BuyRequest{From: user2.Hex(), Value: units.MustParseEther("0.09").String()},
		http.StatusBadRequest, "InsufficientPayment")

	var receipt TxResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, listingPath(id)+"/buy",
		BuyRequest{From: user2.Hex(), Value: units.MustParseEther("0.1").String()}, &receipt))
	assert.NotEmpty(t, receipt.TxID)

	var listing ListingView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, listingPath(id), nil, &listing))
	assert.False(t, listing.Active)

	var proceeds ProceedsView
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/proceeds/"+user1.Hex(), nil, &proceeds))
	assert.Equal(t, units.MustParseEther("0.0975").String(), proceeds.Amount)
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/proceeds/"+feeRecipient.Hex(), nil, &proceeds))
	assert.Equal(t, units.MustParseEther("0.0025").String(), proceeds.Amount)

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/proceeds/withdraw", FromRequest{From: user1.Hex()}, nil))
	a.expectError(http.MethodPost, "/proceeds/withdraw", FromRequest{From: user1.Hex()},
		http.StatusBadRequest, "NothingToWithdraw")

	var events []map[string]interface{}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/events?from=2", nil, &events))
	assert.NotEmpty(t, events)
}

func TestMarketplaceErrors(t *testing.T) {
	a := newTestApi(t)
	id := a.mint(user1, "")

	a.expectError(http.MethodPost, "/listings", ListingRequest{From: user2.Hex(), Collection: registryAddr.Hex(), AssetID: id, Price: "1"},
		http.StatusForbidden, "NotOwner")
	a.expectError(http.MethodPost, "/listings", ListingRequest{From: user1.Hex(), Collection: registryAddr.Hex(), AssetID: 9, Price: "1"},
		http.StatusNotFound, "UnknownAsset")
	a.expectError(http.MethodPost, "/listings", ListingRequest{From: user1.Hex(), Collection: user2.Hex(), AssetID: id, Price: "1"},
		http.StatusNotFound, "UnknownCollection")
	a.expectError(http.MethodPost, "/listings", ListingRequest{From: user1.Hex(), Collection: registryAddr.Hex(), AssetID: id, Price: "0"},
		http.StatusBadRequest, "InvalidPrice")

	require.Equal(t, http.StatusCreated, a.list(user1, id, "0.1"))
	assert.Equal(t, http.StatusConflict, a.list(user1, id, "0.2"))

	a.expectError(http.MethodDelete, listingPath(id), FromRequest{From: user2.Hex()}, http.StatusForbidden, "Unauthorized")

	// no approval for the marketplace, so the sale cannot settle
	a.expectError(http.MethodPost, listingPath(id)+"/buy",
		BuyRequest{From: user2.Hex(), Value: units.MustParseEther("0.1").String()},
		http.StatusUnprocessableEntity, "TransferFailed")

	require.Equal(t, http.StatusOK, a.do(http.MethodDelete, listingPath(id), FromRequest{From: user1.Hex()}, nil))
	a.expectError(http.MethodDelete, listingPath(id), FromRequest{From: user1.Hex()}, http.StatusConflict, "NotActive")

	a.expectError(http.MethodPut, "/fee", FeeRequest{From: deployer.Hex(), FeeBps: 10001, FeeRecipient: deployer.Hex()},
		http.StatusBadRequest, "InvalidFee")
	a.expectError(http.MethodPut, "/fee", FeeRequest{From: user1.Hex(), FeeBps: 100, FeeRecipient: user1.Hex()},
		http.StatusForbidden, "Unauthorized")

	var fee FeeView
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/fee", FeeRequest{From: deployer.Hex(), FeeBps: 500, FeeRecipient: deployer.Hex()}, nil))
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/fee", nil, &fee))
	assert.Equal(t, uint(500), fee.FeeBps)
	assert.Equal(t, deployer.Hex(), fee.FeeRecipient)
}

func TestBadRequests(t *testing.T) {
	a := newTestApi(t)

	a.expectError(http.MethodPost, "/assets", `{"from":`, http.StatusBadRequest, "BadRequest")
	a.expectError(http.MethodPost, "/assets", MintRequest{From: "alice"}, http.StatusBadRequest, "BadRequest")
	a.expectError(http.MethodPost, "/assets", MintRequest{From: user1.Hex(), Value: "-1"}, http.StatusBadRequest, "BadRequest")
	a.expectError(http.MethodPost, "/assets", MintRequest{From: user1.Hex(), Value: "1"}, http.StatusBadRequest, "InsufficientPayment")
	a.expectError(http.MethodGet, "/assets/4", nil, http.StatusNotFound, "UnknownAsset")
	a.expectError(http.MethodGet, "/nowhere", nil, http.StatusNotFound, "NotFound")
}

func TestFaucet(t *testing.T) {
	a := newTestApi(t)
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	var account AccountView
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/faucet", FaucetRequest{To: stranger.Hex(), Amount: "1000"}, &account))
	assert.Equal(t, "1000", account.Balance)

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/accounts/"+stranger.Hex(), nil, &account))
	assert.Equal(t, "1000", account.Balance)
}
