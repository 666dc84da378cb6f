package embedder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDownloadsMissingWeights(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("weights"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "models", "m.onnx")
	got, err := NewWeightsFetcher(srv.Client(), logger.Nop{}).Ensure(context.Background(), path, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestEnsureKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.onnx")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o644))

	got, err := NewWeightsFetcher(nil, logger.Nop{}).Ensure(context.Background(), path, "http://127.0.0.1:1/unused")
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestEnsureFailsWithoutURL(t *testing.T) {
	_, err := NewWeightsFetcher(nil, logger.Nop{}).Ensure(context.Background(), filepath.Join(t.TempDir(), "m.onnx"), "")
	assert.Error(t, err)
}

func TestEnsureFailsOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "m.onnx")
	_, err := NewWeightsFetcher(srv.Client(), logger.Nop{}).Ensure(context.Background(), path, srv.URL)
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
