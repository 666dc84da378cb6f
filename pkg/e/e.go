package e

import "fmt"

var (
	// Ошибки изображений
	ErrImageDecode          = fmt.Errorf("image cannot be decoded")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrImageNotFound        = fmt.Errorf("image not found")

	// Ошибки модели и векторов
	ErrModelUnavailable   = fmt.Errorf("embedding model is unavailable")
	ErrNonFiniteEmbedding = fmt.Errorf("embedding contains non-finite values")
	ErrEmptyReferenceSet  = fmt.Errorf("reference set is empty")
	ErrDimensionMismatch  = fmt.Errorf("embedding dimension mismatch")
	ErrModelMismatch      = fmt.Errorf("embedding model version mismatch")
	ErrEmptyVectors       = fmt.Errorf("empty vectors")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// 400 Bad Request
	ErrStatusBadRequest  = fmt.Errorf("bad request")
	ErrExpectedMultipart = fmt.Errorf("expected multipart/form-data")
	ErrNoImages          = fmt.Errorf("no images provided")
	ErrTooManyImages     = fmt.Errorf("too many images")
	ErrFileTooLarge      = fmt.Errorf("file too large")
	ErrInvalidLimit      = fmt.Errorf("invalid limit")

	// 500
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
