package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ZilDuck/blaze-marketplace/internal/helper"
	"go.uber.org/zap"
)

const Platform = "Blaze Marketplace"

var (
	ErrNoFile         = errors.New("no image file provided")
	ErrNoName         = errors.New("name is required")
	ErrUploadFailed   = errors.New("upload failed")
	ErrNotFound       = errors.New("content not found")
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Uploader stores content and returns its content id.
type Uploader interface {
	UploadFile(ctx context.Context, name string, data []byte) (string, error)
	UploadJSON(ctx context.Context, name string, v interface{}) (string, error)
}

// Reader is implemented by backends that can serve content back.
type Reader interface {
	Cat(ctx context.Context, path string) (io.ReadCloser, error)
}

type AssetUpload struct {
	File        []byte
	FileName    string
	Name        string
	Description string
}

type UploadResult struct {
	ImageCid    string `json:"imageCid"`
	ImageUri    string `json:"imageUri"`
	MetadataCid string `json:"metadataCid"`
	MetadataUri string `json:"metadataUri"`
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// UploadImageAndMetadata uploads the image, then a metadata document that
// references it. The metadata locator is what gets minted.
func UploadImageAndMetadata(ctx context.Context, uploader Uploader, upload AssetUpload) (*UploadResult, error) {
	if len(upload.File) == 0 {
		return nil, ErrNoFile
	}
	if upload.Name == "" {
		return nil, ErrNoName
	}

	fileName := upload.FileName
	if fileName == "" {
		fileName = "asset"
	}

	imageCid, err := uploader.UploadFile(ctx, fileName, upload.File)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("file", fileName)).Error("Storage: image upload failed")
		return nil, fmt.Errorf("image: %w", err)
	}

	metadata := Metadata{
		Name:        upload.Name,
		Description: upload.Description,
		Image:       helper.IpfsUri(imageCid),
		Attributes: []Attribute{
			{TraitType: "Created", Value: time.Now().UTC().Format(time.RFC3339)},
			{TraitType: "Platform", Value: Platform},
		},
	}

	metadataCid, err := uploader.UploadJSON(ctx, "NFT Metadata", metadata)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("image", imageCid)).Error("Storage: metadata upload failed")
		return nil, fmt.Errorf("metadata: %w", err)
	}

	result := &UploadResult{
		ImageCid:    imageCid,
		ImageUri:    helper.IpfsUri(imageCid),
		MetadataCid: metadataCid,
		MetadataUri: helper.IpfsUri(metadataCid),
	}

	zap.L().With(zap.String("image", result.ImageUri), zap.String("metadata", result.MetadataUri)).
		Info("Storage: upload complete")

	return result, nil
}
