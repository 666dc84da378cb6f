package usecase

import (
	"context"

	"github.com/DRSN-tech/product-verifier/internal/domain"
)

// EmbedderInfra векторизует изображения.
type EmbedderInfra interface {
	EmbedBytes(ctx context.Context, data []byte) (domain.EmbeddingVector, error)
	ModelVersion() string
	Dim() int
}

type ImagesInfra interface {
	UploadImages(ctx context.Context, req *UploadImagesReq) (*UploadImagesRes, error)
	CleanupImages(keys []string)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}
