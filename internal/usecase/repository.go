package usecase

import (
	"context"

	"github.com/DRSN-tech/product-verifier/internal/domain"
)

type ImageRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Get(ctx context.Context, key string) (*StoredImage, error)
	Delete(ctx context.Context, key string) error
}

type EmbeddingCacheRepository interface {
	GetEmbeddings(ctx context.Context, modelVersion string, digests []string) (map[string]domain.EmbeddingVector, error)
	SetEmbeddings(ctx context.Context, entries []CachedEmbedding) error
}

type VerificationRepository interface {
	Create(ctx context.Context, v *domain.Verification) error
	ListRecent(ctx context.Context, limit int) ([]domain.Verification, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	ResetStale(ctx context.Context, olderThanSeconds int) (int64, error)
}
