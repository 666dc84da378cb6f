package embedder

import (
	"context"
	"image/color"
	"math"
	"testing"

	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedIsDeterministic(t *testing.T) {
	m := New(&fakeBackbone{dim: 8}, CaffeRecipe, "resnet50")
	img := solidImage(40, 30, color.RGBA{R: 200, G: 10, B: 60, A: 255})

	first, err := m.Embed(img)
	require.NoError(t, err)
	second, err := m.Embed(img)
	require.NoError(t, err)

	assert.Equal(t, first.Values, second.Values)
	assert.Equal(t, 8, first.Dim())
	assert.Equal(t, "resnet50/caffe", first.ModelVersion)
}

func TestEmbedRejectsWrongLength(t *testing.T) {
	m := New(&fakeBackbone{dim: 4, out: []float32{1, 2, 3}}, CaffeRecipe, "resnet50")

	_, err := m.Embed(solidImage(10, 10, color.White))
	assert.ErrorIs(t, err, e.ErrDimensionMismatch)
}

func TestEmbedRejectsNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	m := New(&fakeBackbone{dim: 3, out: []float32{1, nan, 2}}, CaffeRecipe, "resnet50")

	_, err := m.Embed(solidImage(10, 10, color.White))
	assert.ErrorIs(t, err, e.ErrNonFiniteEmbedding)
}

func TestEmbedBytes(t *testing.T) {
	backbone := &fakeBackbone{dim: 4}
	m := New(backbone, TorchRecipe, "resnet50")

	vec, err := m.EmbedBytes(context.Background(), encodePNG(t, solidImage(16, 16, color.Black)))
	require.NoError(t, err)
	assert.Equal(t, 4, vec.Dim())
	assert.Equal(t, "resnet50/torch", m.ModelVersion())

	_, err = m.EmbedBytes(context.Background(), []byte("definitely not an image"))
	assert.ErrorIs(t, err, e.ErrImageDecode)
	assert.Equal(t, 1, backbone.calls)
}

func TestEmbedBytesCancelled(t *testing.T) {
	m := New(&fakeBackbone{dim: 4}, CaffeRecipe, "resnet50")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.EmbedBytes(ctx, encodePNG(t, solidImage(4, 4, color.White)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCloseClosesBackbone(t *testing.T) {
	backbone := &fakeBackbone{dim: 1}
	require.NoError(t, New(backbone, CaffeRecipe, "v").Close())
	assert.True(t, backbone.closed)
}
