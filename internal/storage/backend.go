package storage

import (
	"fmt"
	"time"

	"github.com/ZilDuck/blaze-marketplace/internal/config"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	MockBackend   = "mock"
	PinataBackend = "pinata"
	NodeBackend   = "node"
)

func NewUploader(cfg config.IpfsConfig, client *retryablehttp.Client) (Uploader, error) {
	zap.L().With(zap.String("backend", cfg.Backend)).Info("Storage: Backend selected")

	switch cfg.Backend {
	case MockBackend, "":
		return NewMockStore(), nil
	case PinataBackend:
		return NewPinataStore(cfg.PinataUrl, cfg.PinataJwt, client), nil
	case NodeBackend:
		return NewNodeStore(cfg.ApiUrl, time.Duration(cfg.Timeout)*time.Second), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
}
