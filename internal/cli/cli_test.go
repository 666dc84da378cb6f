package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder возвращает вектор, заранее заданный для содержимого файла.
type fakeEmbedder struct {
	vectors map[string][]float32
	closed  bool
}

func (f *fakeEmbedder) EmbedBytes(_ context.Context, data []byte) (domain.EmbeddingVector, error) {
	v, ok := f.vectors[string(data)]
	if !ok {
		return domain.EmbeddingVector{}, e.ErrImageDecode
	}
	return domain.NewEmbeddingVector(v, "fake"), nil
}

func (f *fakeEmbedder) ModelVersion() string { return "fake" }

func (f *fakeEmbedder) Close() error {
	f.closed = true
	return nil
}

type harness struct {
	fake  *fakeEmbedder
	loads int
	dir   string
}

func newHarness(t *testing.T) *harness {
	t.Setenv("MATCH_THRESHOLD", "")
	return &harness{
		fake: &fakeEmbedder{vectors: map[string][]float32{
			"red":   {1, 0, 0},
			"green": {0, 1, 0},
			"pink":  {0.9, 0.1, 0},
		}},
		dir: t.TempDir(),
	}
}

func (h *harness) file(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func (h *harness) run(args ...string) (string, error) {
	load := func(context.Context, logger.Logger) (Embedder, error) {
		h.loads++
		return h.fake, nil
	}

	var out bytes.Buffer
	cmd := NewRootCmd(load)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEmbed(t *testing.T) {
	h := newHarness(t)
	img := h.file(t, "red.png", "red")

	out, err := h.run("embed", "--full", img)
	require.NoError(t, err)

	var res EmbedOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Dim)
	assert.Equal(t, []float32{1, 0, 0}, res.Vector)
	assert.Equal(t, []float32{1, 0, 0}, res.Head)
	assert.Equal(t, "fake", res.ModelVersion)
	assert.True(t, h.fake.closed)
}

func TestEmbedValidatesArgsBeforeLoading(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("embed")
	require.Error(t, err)

	_, err = h.run("embed", filepath.Join(h.dir, "missing.png"))
	require.Error(t, err)
	assert.Zero(t, h.loads)
}

func TestMatch(t *testing.T) {
	h := newHarness(t)
	green := h.file(t, "green.png", "green")
	red := h.file(t, "red.png", "red")
	query := h.file(t, "query.png", "pink")

	out, err := h.run("match", "--ref", green, "--ref", red, query)
	require.NoError(t, err)

	var res MatchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.IsMatch)
	assert.Equal(t, 1, res.BestIndex)
	assert.Equal(t, red, res.BestMatch)
	assert.Equal(t, 2, res.ReferenceCount)
	assert.InDelta(t, 0.9939, res.Score, 1e-4)
	assert.Equal(t, 0.8, res.Threshold)
}

func TestMatchThresholdIsStrict(t *testing.T) {
	h := newHarness(t)
	red := h.file(t, "red.png", "red")
	query := h.file(t, "query.png", "red")

	out, err := h.run("match", "--threshold", "1", "--ref", red, query)
	require.NoError(t, err)

	var res MatchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 1.0, res.Score, 1e-9)
	assert.False(t, res.IsMatch)
}

func TestMatchRequiresReferences(t *testing.T) {
	h := newHarness(t)
	query := h.file(t, "query.png", "red")

	_, err := h.run("match", query)
	require.ErrorIs(t, err, e.ErrEmptyReferenceSet)
	assert.Zero(t, h.loads)
}

func TestMatchDecodeError(t *testing.T) {
	h := newHarness(t)
	ref := h.file(t, "ref.png", "red")
	query := h.file(t, "query.txt", "not an image")

	_, err := h.run("match", "--ref", ref, query)
	require.ErrorIs(t, err, e.ErrImageDecode)
}
