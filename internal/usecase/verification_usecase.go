package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/internal/infrastructure"
	"github.com/DRSN-tech/product-verifier/internal/matcher"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/google/uuid"
)

const (
	ReferencesPrefix = "references"
	QueriesPrefix    = "queries"

	MaxImagesPerRequest = 10
	MaxImageSize        = 15 << 20
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// VerificationUseCase хранит состояние сессии (набор эталонов) и обрабатывает запросы по одному.
type VerificationUseCase struct {
	mu          sync.Mutex
	refs        *domain.ReferenceSet
	embedder    EmbedderInfra
	matcher     *matcher.Matcher
	imagesInfra ImagesInfra
	imageRepo   ImageRepository
	cacheRepo   EmbeddingCacheRepository
	audit       AuditRecorder
	logger      logger.Logger
	now         func() time.Time
}

func NewVerificationUseCase(
	embedder EmbedderInfra,
	matcher *matcher.Matcher,
	imagesInfra ImagesInfra,
	imageRepo ImageRepository,
	cacheRepo EmbeddingCacheRepository,
	audit AuditRecorder,
	logger logger.Logger,
) *VerificationUseCase {
	return &VerificationUseCase{
		refs:        domain.NewReferenceSet(),
		embedder:    embedder,
		matcher:     matcher,
		imagesInfra: imagesInfra,
		imageRepo:   imageRepo,
		cacheRepo:   cacheRepo,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
	}
}

func (uc *VerificationUseCase) ModelVersion() string {
	return uc.embedder.ModelVersion()
}

// AddReferences векторизует и сохраняет эталоны. Либо добавляются все изображения запроса, либо ни одного.
func (uc *VerificationUseCase) AddReferences(ctx context.Context, req *AddReferencesReq) ([]domain.Reference, error) {
	const op = "VerificationUseCase.AddReferences"

	if err := validateBatch(req.Images); err != nil {
		return nil, e.Wrap(op, err)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	images, vectors, err := uc.embedImages(ctx, req.Images)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// UploadImages сам удаляет частично загруженные объекты при ошибке
	uploaded, err := uc.imagesInfra.UploadImages(ctx, NewUploadImagesReq(ReferencesPrefix, images))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	now := uc.now()
	refs := make([]domain.Reference, len(images))
	for i, img := range images {
		refs[i] = domain.NewReference(uuid.NewString(), img.Name, uploaded.Images[i], vectors[i], now)
	}
	uc.refs.Append(refs...)

	uc.logger.Infof("added %d references, set size %d", len(refs), uc.refs.Len())
	return refs, nil
}

// ListReferences возвращает эталоны в порядке добавления.
func (uc *VerificationUseCase) ListReferences(_ context.Context) []domain.Reference {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	return uc.refs.Items()
}

// ResetReferences очищает набор и удаляет изображения эталонов в фоне. Возвращает число удалённых эталонов.
func (uc *VerificationUseCase) ResetReferences(_ context.Context) int {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	removed := uc.refs.Reset()
	keys := make([]string, 0, len(removed))
	for _, ref := range removed {
		keys = append(keys, ref.Image.ObjectKey)
	}
	uc.imagesInfra.CleanupImages(keys)

	uc.logger.Infof("reference set reset, removed %d references", len(removed))
	return len(removed)
}

// Verify сравнивает изображение с набором эталонов.
// Сохранение запроса и аудит выполняются по возможности: их сбой логируется, результат всё равно возвращается.
func (uc *VerificationUseCase) Verify(ctx context.Context, req *VerifyReq) (*VerifyRes, error) {
	const op = "VerificationUseCase.Verify"

	if err := validateImage(req.Image); err != nil {
		return nil, e.Wrap(op, err)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	images, vectors, err := uc.embedImages(ctx, []UploadedImage{req.Image})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if uc.refs.Len() == 0 {
		return nil, e.Wrap(op, e.ErrEmptyReferenceSet)
	}

	match, err := uc.matcher.FindBestMatch(vectors[0], uc.refs)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	best := uc.refs.At(match.BestIndex)

	var query domain.ImageHandle
	if uploaded, err := uc.imagesInfra.UploadImages(ctx, NewUploadImagesReq(QueriesPrefix, images)); err != nil {
		uc.logger.Warnf("failed to store query image %s: %v", images[0].Name, e.Wrap(op, err))
	} else {
		query = uploaded.Images[0]
	}

	v := &domain.Verification{
		ID:             uuid.NewString(),
		QueryImage:     query,
		BestMatchID:    best.ID,
		BestMatchImage: best.Image,
		Score:          match.Score,
		IsMatch:        match.IsMatch,
		Threshold:      uc.matcher.Threshold(),
		ModelVersion:   vectors[0].ModelVersion,
		ReferenceCount: uc.refs.Len(),
		CreatedAt:      uc.now(),
	}

	if err := uc.audit.Record(ctx, v); err != nil {
		uc.logger.Errorf(err, "failed to record verification %s", v.ID)
	}

	uc.logger.Infof("verification %s: match=%t score=%.4f best=%s", v.ID, v.IsMatch, v.Score, best.ID)

	return &VerifyRes{
		VerificationID: v.ID,
		IsMatch:        v.IsMatch,
		Score:          v.Score,
		Threshold:      v.Threshold,
		BestMatch:      best,
		QueryImage:     query,
		ModelVersion:   v.ModelVersion,
		ReferenceCount: v.ReferenceCount,
	}, nil
}

// GetImage открывает сохранённое изображение эталона или запроса.
// Не берёт блокировку сессии: чтение из хранилища не меняет состояние.
func (uc *VerificationUseCase) GetImage(ctx context.Context, key string) (*StoredImage, error) {
	const op = "VerificationUseCase.GetImage"

	if !strings.HasPrefix(key, ReferencesPrefix+"/") && !strings.HasPrefix(key, QueriesPrefix+"/") {
		return nil, e.Wrap(op, e.ErrImageNotFound)
	}

	img, err := uc.imageRepo.Get(ctx, key)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return img, nil
}

// ListVerifications возвращает последние проверки, новые первыми.
func (uc *VerificationUseCase) ListVerifications(ctx context.Context, limit int) ([]domain.Verification, error) {
	const op = "VerificationUseCase.ListVerifications"

	if limit <= 0 || limit > MaxHistoryLimit {
		return nil, e.Wrap(op, fmt.Errorf("%w: must be in 1..%d", e.ErrInvalidLimit, MaxHistoryLimit))
	}

	res, err := uc.audit.ListRecent(ctx, limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return res, nil
}

// embedImages проверяет формат каждого изображения и возвращает векторы в том же порядке.
// MIME-тип в результате заменяется на определённый по содержимому.
func (uc *VerificationUseCase) embedImages(ctx context.Context, in []UploadedImage) ([]UploadedImage, []domain.EmbeddingVector, error) {
	images := make([]UploadedImage, len(in))
	digests := make([]string, len(in))
	for i, img := range in {
		mime, err := infrastructure.DetectImageType(img.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w: %w: %s", img.Name, e.ErrImageDecode, err, mime)
		}
		img.MimeType = mime
		images[i] = img

		sum := sha256.Sum256(img.Data)
		digests[i] = hex.EncodeToString(sum[:])
	}

	version := uc.embedder.ModelVersion()
	cached, err := uc.cacheRepo.GetEmbeddings(ctx, version, digests)
	if err != nil {
		uc.logger.Warnf("embedding cache unavailable: %v", err)
		cached = nil
	}

	vectors := make([]domain.EmbeddingVector, len(images))
	var fresh []CachedEmbedding
	for i, img := range images {
		if vec, ok := cached[digests[i]]; ok && vec.Dim() == uc.embedder.Dim() && vec.IsFinite() {
			vectors[i] = vec
			continue
		}

		vec, err := uc.embedder.EmbedBytes(ctx, img.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", img.Name, err)
		}
		vectors[i] = vec
		fresh = append(fresh, CachedEmbedding{Digest: digests[i], Vector: vec})
	}

	if err := uc.cacheRepo.SetEmbeddings(ctx, fresh); err != nil {
		uc.logger.Warnf("failed to cache embeddings: %v", err)
	}

	return images, vectors, nil
}

func validateBatch(images []UploadedImage) error {
	if len(images) == 0 {
		return e.ErrNoImages
	}
	if len(images) > MaxImagesPerRequest {
		return fmt.Errorf("%w: %d, max %d", e.ErrTooManyImages, len(images), MaxImagesPerRequest)
	}

	for _, img := range images {
		if err := validateImage(img); err != nil {
			return err
		}
	}

	return nil
}

func validateImage(img UploadedImage) error {
	if len(img.Data) == 0 {
		return fmt.Errorf("%s: %w", img.Name, e.ErrNoImages)
	}
	if len(img.Data) > MaxImageSize {
		return fmt.Errorf("%s: %w: %d bytes, max %d", img.Name, e.ErrFileTooLarge, len(img.Data), MaxImageSize)
	}

	return nil
}
