package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZilDuck/blaze-marketplace/internal/helper"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	ErrInvalidLocator   = errors.New("invalid locator")
	ErrMetadataNotFound = errors.New("metadata not available")
	ErrMediaNotFound    = errors.New("media not available")
)

type Metadata map[string]interface{}

type Service interface {
	GatewayUrl(locator string) (string, error)
	GetMetadata(ctx context.Context, locator string) (Metadata, error)
	FetchImage(ctx context.Context, locator string) ([]byte, string, error)
	Forget(locator string)
}

type service struct {
	gateway string
	client  *retryablehttp.Client
	cache   *cache.Cache
}

func NewMetadataService(gateway string, client *retryablehttp.Client, c *cache.Cache) Service {
	if c == nil {
		c = cache.New(5*time.Minute, 10*time.Minute)
	}

	return service{strings.TrimSuffix(gateway, "/"), client, c}
}

// GatewayUrl rewrites ipfs locators onto the gateway. http(s) locators are
// returned unchanged.
func (s service) GatewayUrl(locator string) (string, error) {
	if strings.HasPrefix(locator, "ipfs://") || !helper.IsUrl(locator) {
		path, ok := helper.GetIpfsPath(locator)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
		}
		return fmt.Sprintf("%s/ipfs/%s", s.gateway, path), nil
	}

	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return locator, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
}

func (s service) GetMetadata(ctx context.Context, locator string) (Metadata, error) {
	if cached, found := s.cache.Get(locator); found {
		return cached.(Metadata), nil
	}

	uri, err := s.GatewayUrl(locator)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	resp, err := s.client.Do(req)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("uri", uri)).Warn("Metadata: Failed to fetch")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().With(zap.Int("status", resp.StatusCode), zap.String("uri", uri)).Warn("Metadata: Unexpected status")
		return nil, fmt.Errorf("%w: %s", ErrMetadataNotFound, resp.Status)
	}

	var md Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataNotFound, err)
	}

	s.cache.Set(locator, md, cache.DefaultExpiration)

	return md, nil
}

// FetchImage loads the metadata document at locator and downloads the media
// its "image" field points at. The content type falls back to sniffing.
func (s service) FetchImage(ctx context.Context, locator string) ([]byte, string, error) {
	md, err := s.GetMetadata(ctx, locator)
	if err != nil {
		return nil, "", err
	}

	image, ok := md["image"].(string)
	if !ok || image == "" {
		return nil, "", fmt.Errorf("%w: no image in %s", ErrMediaNotFound, locator)
	}

	uri, err := s.GatewayUrl(image)
	if err != nil {
		return nil, "", err
	}

	req, err := retryablehttp.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", err
	}
	req = req.WithContext(ctx)

	resp, err := s.client.Do(req)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("uri", uri)).Warn("Metadata: Failed to fetch image")
		return nil, "", fmt.Errorf("%w: %v", ErrMediaNotFound, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().With(zap.Int("status", resp.StatusCode), zap.String("uri", uri)).Warn("Metadata: Unexpected image status")
		return nil, "", fmt.Errorf("%w: %s", ErrMediaNotFound, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMediaNotFound, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return data, contentType, nil
}

func (s service) Forget(locator string) {
	s.cache.Delete(locator)
}
