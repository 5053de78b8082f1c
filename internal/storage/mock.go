package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"go.uber.org/zap"
)

// MockStore keeps content in memory under a CIDv0 of its sha2-256 digest, so
// identical content always gets the same id.
type MockStore struct {
	mu      sync.RWMutex
	content map[string][]byte
}

func NewMockStore() *MockStore {
	return &MockStore{content: make(map[string][]byte)}
}

func (m *MockStore) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	return m.put(ctx, data)
}

func (m *MockStore) UploadJSON(ctx context.Context, name string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}

	return m.put(ctx, data)
}

func (m *MockStore) Cat(ctx context.Context, path string) (io.ReadCloser, error) {
	id := strings.SplitN(strings.TrimPrefix(path, "ipfs://"), "/", 2)[0]

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.content[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStore) put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	hash, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	id := cid.NewCidV0(hash).String()

	m.mu.Lock()
	m.content[id] = append([]byte(nil), data...)
	m.mu.Unlock()

	zap.S().Debugf("Mock IPFS: Stored %d bytes as %s", len(data), id)

	return id, nil
}
