package embedder

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeBackbone возвращает dim значений, зависящих от суммы входа.
type fakeBackbone struct {
	dim    int
	out    []float32
	calls  int
	closed bool
}

func (f *fakeBackbone) Forward(input []float32) ([]float32, error) {
	f.calls++
	if f.out != nil {
		return append([]float32(nil), f.out...), nil
	}

	var sum float64
	for _, v := range input {
		sum += float64(v)
	}

	out := make([]float32, f.dim)
	for i := range out {
		out[i] = float32(sum/float64(len(input))) + float32(i)
	}
	return out, nil
}

func (f *fakeBackbone) Dim() int { return f.dim }

func (f *fakeBackbone) Close() error {
	f.closed = true
	return nil
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
