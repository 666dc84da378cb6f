package embedder

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/DRSN-tech/product-verifier/internal/infrastructure"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	_ "golang.org/x/image/webp"
)

// maxPixels ограничивает размер декодируемого изображения (≈ 64 Мп).
const maxPixels = 64 << 20

// Decode проверяет формат по содержимому и только потом декодирует изображение.
// Возвращает изображение и его MIME-тип. Любая ошибка оборачивает e.ErrImageDecode.
func Decode(data []byte) (image.Image, string, error) {
	const op = "embedder.Decode"

	mime, err := infrastructure.DetectImageType(data)
	if err != nil {
		return nil, mime, e.Wrap(op, fmt.Errorf("%w: %w: %s", e.ErrImageDecode, err, mime))
	}

	conf, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, mime, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrImageDecode, err))
	}
	if conf.Width <= 0 || conf.Height <= 0 || conf.Width*conf.Height > maxPixels {
		return nil, mime, e.Wrap(op, fmt.Errorf("%w: bad dimensions %dx%d", e.ErrImageDecode, conf.Width, conf.Height))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, mime, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrImageDecode, err))
	}

	return img, mime, nil
}
