package infrastructure

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/DRSN-tech/product-verifier/pkg/e"
)

// sniffLen — сколько первых байт смотрит http.DetectContentType.
const sniffLen = 512

// GetExtensionFromMIME возвращает расширение файла по MIME-типу изображения.
// Поддерживает jpeg, png, webp. Для остальных типов возвращает e.ErrUnsupportedMediaType.
func GetExtensionFromMIME(mime string) (string, error) {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}

// DetectImageType определяет MIME-тип по содержимому и проверяет, что формат поддерживается.
func DetectImageType(data []byte) (string, error) {
	mime := http.DetectContentType(data[:min(len(data), sniffLen)])
	if _, err := GetExtensionFromMIME(mime); err != nil {
		return mime, err
	}

	return mime, nil
}

// MIMEFromFilename угадывает MIME-тип по расширению файла. Используется только для подписи
// загружаемых из CLI файлов, решение о формате всё равно принимает DetectImageType.
func MIMEFromFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
