package converter

import (
	"math"
	"testing"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCodecPreservesBits(t *testing.T) {
	in := domain.NewEmbeddingVector([]float32{0, -1.5, math.MaxFloat32, math.SmallestNonzeroFloat32}, "v1/caffe")

	data := EncodeVector(in)
	assert.Len(t, data, 16)

	out, err := DecodeVector(data, "v1/caffe")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeVectorRejectsCorruptedBlob(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3}, "v")
	assert.Error(t, err)

	_, err = DecodeVector(nil, "v")
	assert.Error(t, err)
}

func TestDecodeVectorRejectsNonFiniteValues(t *testing.T) {
	for _, bad := range []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))} {
		data := EncodeVector(domain.NewEmbeddingVector([]float32{1, bad}, "v"))

		_, err := DecodeVector(data, "v")
		assert.Error(t, err)
	}
}
