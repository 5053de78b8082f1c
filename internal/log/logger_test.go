package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_WritesJsonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "var", "marketd.log")
	defer zap.ReplaceGlobals(zap.NewNop())

	NewLogger(path, true, "", "test")
	zap.L().With(zap.String("txId", "abc")).Debug("Ledger: transaction committed")
	NewPrintfLogger("HttpClient").Printf("GET %s", "/health")
	_ = zap.L().Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Ledger: transaction committed"`)
	assert.Contains(t, string(data), `"env":"test"`)
	assert.Contains(t, string(data), `"txId":"abc"`)
	assert.Contains(t, string(data), `HttpClient: GET /health`)
}
