package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

type pinataStore struct {
	baseUrl string
	jwt     string
	client  *retryablehttp.Client
}

type PinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type pinataMetadata struct {
	Name string `json:"name"`
}

func NewPinataStore(baseUrl, jwt string, client *retryablehttp.Client) Uploader {
	return pinataStore{strings.TrimSuffix(baseUrl, "/"), jwt, client}
}

func (p pinataStore) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	zap.L().With(zap.String("file", name)).Info("Pinata: uploading file")

	body := new(bytes.Buffer)
	form := multipart.NewWriter(body)

	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err = part.Write(data); err != nil {
		return "", err
	}

	meta, _ := json.Marshal(pinataMetadata{Name: name})
	if err = form.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", err
	}
	if err = form.Close(); err != nil {
		return "", err
	}

	return p.pin(ctx, "/pinning/pinFileToIPFS", form.FormDataContentType(), body.Bytes())
}

func (p pinataStore) UploadJSON(ctx context.Context, name string, v interface{}) (string, error) {
	zap.L().Info("Pinata: uploading JSON metadata")

	body, err := json.Marshal(map[string]interface{}{
		"pinataContent":  v,
		"pinataMetadata": pinataMetadata{Name: name},
	})
	if err != nil {
		return "", err
	}

	return p.pin(ctx, "/pinning/pinJSONToIPFS", "application/json", body)
}

func (p pinataStore) pin(ctx context.Context, path, contentType string, body []byte) (string, error) {
	if p.jwt == "" {
		return "", fmt.Errorf("%w: missing pinata jwt", ErrUploadFailed)
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, p.baseUrl+path, body)
	if err != nil {
		return "", err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+p.jwt)

	resp, err := p.client.Do(req)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("path", path)).Error("Pinata: request failed")
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		zap.L().With(zap.Int("status", resp.StatusCode), zap.String("path", path)).Error("Pinata: upload rejected")
		return "", fmt.Errorf("%w: %d %s", ErrUploadFailed, resp.StatusCode, strings.TrimSpace(string(text)))
	}

	var pinned PinataResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if pinned.IpfsHash == "" {
		return "", fmt.Errorf("%w: empty ipfs hash", ErrUploadFailed)
	}

	return pinned.IpfsHash, nil
}
