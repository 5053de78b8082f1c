package asset

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/ZilDuck/blaze-marketplace/internal/ledger"
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
	admin        = common.HexToAddress("0x000000000000000000000000000000000000de01")
	holder       = common.HexToAddress("0x0000000000000000000000000000000000000001")
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000b1a2e000")
)

func newGateway(t *testing.T, store *storage.MockStore) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, err := store.Cat(r.Context(), strings.TrimPrefix(r.URL.Path, "/ipfs/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer content.Close()
		_, _ = io.Copy(w, content)
	}))
	t.Cleanup(srv.Close)

	return srv.URL
}

func TestServer_ServesAssetImage(t *testing.T) {
	store := storage.NewMockStore()
	gateway := newGateway(t, store)

	image := []byte("\x89PNG\r\n\x1a\nblaze")
	uploaded, err := storage.UploadImageAndMetadata(context.Background(), store, storage.AssetUpload{
		File:     image,
		FileName: "blaze.png",
		Name:     "Blaze #1",
	})
	require.NoError(t, err)

	l := ledger.New()
	reg := registry.NewRegistry(l, registryAddr, admin, "ipfs://QmBase/", units.MustParseEther("0.01"))
	id, _, err := reg.AdminMint(admin, holder, uploaded.MetadataUri)
	require.NoError(t, err)
	unresolvable, _, err := reg.AdminMint(admin, holder, "")
	require.NoError(t, err)

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil

	srv := httptest.NewServer(NewServer(l, reg, metadata.NewMetadataService(gateway, client, nil)).Router())
	defer srv.Close()

	get := func(path string) *http.Response {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("serves the image", func(t *testing.T) {
		resp := get("/" + registryAddr.Hex() + "/1")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, image, body)
	})

	t.Run("unknown collection", func(t *testing.T) {
		resp := get("/0x0000000000000000000000000000000000000bad/1")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown asset", func(t *testing.T) {
		resp := get("/" + registryAddr.Hex() + "/99")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get("/not-an-address/1").StatusCode)
		assert.Equal(t, http.StatusBadRequest, get("/"+registryAddr.Hex()+"/one").StatusCode)
	})

	t.Run("metadata not on the gateway", func(t *testing.T) {
		resp := get("/" + registryAddr.Hex() + "/" + strconv.FormatUint(unresolvable, 10))
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})

	assert.Equal(t, uint64(1), id)
}
