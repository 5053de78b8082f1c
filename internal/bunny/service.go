package bunny

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

var ErrPurgeFailed = errors.New("cdn purge failed")

type Service interface {
	PurgeCacheFromEvent(e entity.Event)
	PurgeAsset(collection common.Address, assetId uint64) error
	PurgeCollection(collection common.Address) error
}

type service struct {
	cdnUrl    string
	apiUrl    string
	accessKey string
	client    *retryablehttp.Client
}

// variants are the optimizer query strings the frontend requests.
var variants = []string{
	"",
	"?optimizer=image&width=800",
	"?optimizer=image&height=400&width=400&aspect_ratio=1:1",
	"?optimizer=image&width=650",
}

func NewService(cdnUrl, apiUrl, accessKey string, client *retryablehttp.Client) Service {
	return service{cdnUrl, apiUrl, accessKey, client}
}

// PurgeCacheFromEvent drops cached asset pages when what they render changes:
// a new base locator invalidates the whole collection, a transfer one asset.
func (s service) PurgeCacheFromEvent(e entity.Event) {
	switch e.Type {
	case entity.MintConfigUpdatedEvent:
		if _, ok := e.Param("baseUri"); !ok {
			return
		}
		_ = s.PurgeCollection(e.Contract)

	case entity.TransferEvent:
		assetId, err := strconv.ParseUint(e.Params["assetId"], 10, 64)
		if err != nil {
			return
		}
		_ = s.PurgeAsset(e.Contract, assetId)
	}
}

func (s service) PurgeAsset(collection common.Address, assetId uint64) error {
	zap.L().With(
		zap.String("collection", collection.Hex()),
		zap.Uint64("assetId", assetId),
	).Info("Bunny cache purge request")

	for _, variant := range variants {
		if err := s.purge(fmt.Sprintf("%s/%s/%d%s", s.cdnUrl, collection.Hex(), assetId, variant)); err != nil {
			return err
		}
	}

	zap.L().With(
		zap.String("collection", collection.Hex()),
		zap.Uint64("assetId", assetId),
	).Info("Bunny cache purge success")

	return nil
}

func (s service) PurgeCollection(collection common.Address) error {
	zap.L().With(zap.String("collection", collection.Hex())).Info("Bunny collection purge request")

	return s.purge(fmt.Sprintf("%s/%s/*", s.cdnUrl, collection.Hex()))
}

func (s service) purge(assetPath string) error {
	zap.S().Debugf("Bunny purge: %s", assetPath)

	uri := fmt.Sprintf("%s/purge?url=%s", s.apiUrl, url.QueryEscape(assetPath))
	req, err := retryablehttp.NewRequest(http.MethodPost, uri, nil)
	if err != nil {
		return err
	}
	req.Header.Set("AccessKey", s.accessKey)

	resp, err := s.client.Do(req)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("uri", uri)).Error("Failed to handle purge request")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().With(zap.Int("status", resp.StatusCode), zap.String("uri", uri)).Error("Failed to handle purge request")
		return fmt.Errorf("%w: status %d", ErrPurgeFailed, resp.StatusCode)
	}

	return nil
}
