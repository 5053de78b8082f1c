package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"go.uber.org/zap"
)

// NodeStore talks to the HTTP RPC api of an IPFS node.
type NodeStore struct {
	sh *shell.Shell
}

func NewNodeStore(apiUrl string, timeout time.Duration) *NodeStore {
	sh := shell.NewShellWithClient(apiUrl, &http.Client{Timeout: timeout})

	return &NodeStore{sh}
}

func (n *NodeStore) UploadFile(ctx context.Context, name string, data []byte) (string, error) {
	return n.add(ctx, name, data)
}

func (n *NodeStore) UploadJSON(ctx context.Context, name string, v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return n.add(ctx, name, data)
}

func (n *NodeStore) Cat(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := n.sh.Cat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return r, nil
}

func (n *NodeStore) add(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id, err := n.sh.Add(bytes.NewReader(data), shell.Pin(true))
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("name", name)).Error("IPFS: add failed")
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	zap.L().With(zap.String("name", name), zap.String("cid", id)).Debug("IPFS: added")

	return id, nil
}
