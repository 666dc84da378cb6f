package infrastructure

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExtensionFromMIME(t *testing.T) {
	cases := map[string]string{
		"image/jpeg": "jpg",
		"image/jpg":  "jpg",
		"image/png":  "png",
		"image/webp": "webp",
	}
	for mime, want := range cases {
		ext, err := GetExtensionFromMIME(mime)
		require.NoError(t, err, mime)
		assert.Equal(t, want, ext)
	}

	ext, err := GetExtensionFromMIME("image/gif")
	assert.ErrorIs(t, err, e.ErrUnsupportedMediaType)
	assert.Equal(t, "bin", ext)
}

func TestDetectImageType(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	mime, err := DetectImageType(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	mime, err = DetectImageType([]byte("GIF89a......"))
	assert.ErrorIs(t, err, e.ErrUnsupportedMediaType)
	assert.Equal(t, "image/gif", mime)

	_, err = DetectImageType(nil)
	assert.ErrorIs(t, err, e.ErrUnsupportedMediaType)
}

func TestMIMEFromFilename(t *testing.T) {
	assert.Equal(t, "image/jpeg", MIMEFromFilename("shoe.JPEG"))
	assert.Equal(t, "image/png", MIMEFromFilename("a/b/c.png"))
	assert.Equal(t, "application/octet-stream", MIMEFromFilename("notes.txt"))
}
