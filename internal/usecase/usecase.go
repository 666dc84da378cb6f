package usecase

import (
	"context"

	"github.com/DRSN-tech/product-verifier/internal/domain"
)

type VerificationUC interface {
	AddReferences(ctx context.Context, req *AddReferencesReq) ([]domain.Reference, error)
	ListReferences(ctx context.Context) []domain.Reference
	ResetReferences(ctx context.Context) int
	Verify(ctx context.Context, req *VerifyReq) (*VerifyRes, error)
	GetImage(ctx context.Context, key string) (*StoredImage, error)
	ListVerifications(ctx context.Context, limit int) ([]domain.Verification, error)
	ModelVersion() string
}

// AuditRecorder сохраняет результаты проверок.
type AuditRecorder interface {
	Record(ctx context.Context, v *domain.Verification) error
	ListRecent(ctx context.Context, limit int) ([]domain.Verification, error)
}
