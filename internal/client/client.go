package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/ZilDuck/blaze-marketplace/internal/api"
	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-retryablehttp"
)

// Error is a failed API call. Kind is the error taxonomy name, eg "NotActive".
type Error struct {
	Status  int
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

type Client struct {
	baseUrl string
	http    *retryablehttp.Client
}

func New(baseUrl string, httpClient *retryablehttp.Client) *Client {
	return &Client{strings.TrimSuffix(baseUrl, "/"), httpClient}
}

func (c *Client) Mint(ctx context.Context, from common.Address, value, locator string) (*api.TxResponse, error) {
	var resp api.TxResponse
	return &resp, c.call(ctx, http.MethodPost, "/assets", api.MintRequest{From: from.Hex(), Value: value, Locator: locator}, &resp)
}

func (c *Client) AdminMint(ctx context.Context, from, to common.Address, locator string) (*api.TxResponse, error) {
	var resp api.TxResponse
	return &resp, c.call(ctx, http.MethodPost, "/assets/admin", api.AdminMintRequest{From: from.Hex(), To: to.Hex(), Locator: locator}, &resp)
}

func (c *Client) Approve(ctx context.Context, from, operator common.Address, id uint64) (*api.TxResponse, error) {
	var resp api.TxResponse
	return &resp, c.call(ctx, http.MethodPost, assetPath(id)+"/approve", api.ApproveRequest{From: from.Hex(), Operator: operator.Hex()}, &resp)
}

func (c *Client) Transfer(ctx context.Context, from, sender, to common.Address, id uint64) (*api.TxResponse, error) {
	var resp api.TxResponse
	req := api.TransferRequest{From: from.Hex(), To: to.Hex()}
	if sender != (common.Address{}) {
		req.Sender = sender.Hex()
	}
	return &resp, c.call(ctx, http.MethodPost, assetPath(id)+"/transfer", req, &resp)
}

func (c *Client) Asset(ctx context.Context, id uint64) (*api.AssetView, error) {
	var resp api.AssetView
	return &resp, c.call(ctx, http.MethodGet, assetPath(id), nil, &resp)
}

func (c *Client) Account(ctx context.Context, addr common.Address) (*api.AccountView, error) {
	var resp api.AccountView
	return &resp, c.call(ctx, http.MethodGet, "/accounts/"+addr.Hex(), nil, &resp)
}

func (c *Client) Faucet(ctx context.Context, to common.Address, amount string) (*api.AccountView, error) {
	var resp api.AccountView
	return &resp, c.call(ctx, http.MethodPost, "/faucet", api.FaucetRequest{To: to.Hex(), Amount: amount}, &resp)
}

func (c *Client) MintConfig(ctx context.Context) (*api.MintConfigView, error) {
	var resp api.MintConfigView
	return &resp, c.call(ctx, http.MethodGet, "/registry/config", nil, &resp)
}

func (c *Client) SetMintConfig(ctx context.Context, from common.Address, basePrice, baseUri *string) (*api.TxResponse, error) {
	var resp api.TxResponse
	req := api.MintConfigRequest{From: from.Hex(), BasePrice: basePrice, BaseUri: baseUri}
	return &resp, c.call(ctx, http.MethodPut, "/registry/config", req, &resp)
}

func (c *Client) RegistryWithdraw(ctx context.Context, from common.Address) (*api.TxResponse, error) {
	var resp api.TxResponse
	return &resp, c.call(ctx, http.MethodPost, "/registry/withdraw", api.FromRequest{From: from.Hex()}, &resp)
}

func (c *Client) Listings(ctx context.Context) ([]api.ListingView, error) {
	resp := make([]api.ListingView, 0)
	return resp, c.call(ctx, http.MethodGet, "/listings", nil, &resp)
}

func (c *Client) Listing(ctx context.Context, collection common.Address, id uint64) (*api.ListingView, error) {
	var resp api.ListingView
	return &resp, c.call(ctx, http.MethodGet, listingPath(collection, id), nil, &resp)
}

func (c *Client) CreateListing(ctx context.Context, from, collection common.Address, id uint64, price string) (*api.TxResponse, error) {
	var resp api.TxResponse
	req := api.ListingRequest{From: from.Hex(), Collection: collection.Hex(), AssetID: id, Price: price}
	return &resp, c.call(ctx, http.MethodPost, "/listings", req, &resp)
}

func (c *Client) CancelListing(ctx context.Context, from, collection common.Address, id uint64) (*api.TxResponse, error) {
	var resp api.TxResponse
	return &resp, c.call(ctx, http.MethodDelete, listingPath(collection, id), api.FromRequest{From: from.Hex()}, &resp)
}

func (c *Client) Buy(ctx context.Context, from, collection common.Address, id uint64, value string) (*api.TxResponse, error) {
	var resp api.TxResponse
	return &resp, c.call(ctx, http.MethodPost, listingPath(collection, id)+"/buy", api.BuyRequest{From: from.Hex(), Value: value}, &resp)
}

func (c *Client) Proceeds(ctx context.Context, addr common.Address) (*api.ProceedsView, error) {
	var resp api.ProceedsView
	return &resp, c.call(ctx, http.MethodGet, "/proceeds/"+addr.Hex(), nil, &resp)
}

func (c *Client) WithdrawProceeds(ctx context.Context, from common.Address) (*api.TxResponse, error) {
	var resp api.TxResponse
	return &resp, c.call(ctx, http.MethodPost, "/proceeds/withdraw", api.FromRequest{From: from.Hex()}, &resp)
}

func (c *Client) Fee(ctx context.Context) (*api.FeeView, error) {
	var resp api.FeeView
	return &resp, c.call(ctx, http.MethodGet, "/fee", nil, &resp)
}

func (c *Client) SetFee(ctx context.Context, from common.Address, feeBps uint, recipient common.Address) (*api.TxResponse, error) {
	var resp api.TxResponse
	req := api.FeeRequest{From: from.Hex(), FeeBps: feeBps, FeeRecipient: recipient.Hex()}
	return &resp, c.call(ctx, http.MethodPut, "/fee", req, &resp)
}

func (c *Client) Events(ctx context.Context, fromSequence uint64) ([]entity.Event, error) {
	resp := make([]entity.Event, 0)
	return resp, c.call(ctx, http.MethodGet, "/events?from="+strconv.FormatUint(fromSequence, 10), nil, &resp)
}

func (c *Client) Upload(ctx context.Context, upload storage.AssetUpload) (*storage.UploadResult, error) {
	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)

	part, err := form.CreateFormFile("file", upload.FileName)
	if err != nil {
		return nil, err
	}
	if _, err = part.Write(upload.File); err != nil {
		return nil, err
	}
	_ = form.WriteField("name", upload.Name)
	_ = form.WriteField("description", upload.Description)
	if err = form.Close(); err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, c.baseUrl+"/uploads", body.Bytes())
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp storage.UploadResult
	return &resp, c.do(req, &resp)
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	req, err := retryablehttp.NewRequest(method, c.baseUrl+path, payload)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

func (c *Client) do(req *retryablehttp.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &apiErr) != nil || apiErr.Error == "" {
			apiErr = api.ErrorResponse{Error: http.StatusText(resp.StatusCode), Message: strings.TrimSpace(string(data))}
		}
		return &Error{Status: resp.StatusCode, Kind: apiErr.Error, Message: apiErr.Message}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func assetPath(id uint64) string {
	return "/assets/" + strconv.FormatUint(id, 10)
}

func listingPath(collection common.Address, id uint64) string {
	return "/listings/" + collection.Hex() + "/" + strconv.FormatUint(id, 10)
}
