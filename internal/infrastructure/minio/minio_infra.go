package minio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/DRSN-tech/product-verifier/internal/cfg"
	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/internal/infrastructure"
	"github.com/DRSN-tech/product-verifier/internal/usecase"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/jitter"
	"github.com/DRSN-tech/product-verifier/pkg/logger"

	"github.com/google/uuid"
)

const cleanupAttempts = 3

// MinioInfrastructure управляет загрузкой и очисткой изображений в MinIO.
type MinioInfrastructure struct {
	minioRepo   usecase.ImageRepository
	cfg         *cfg.MinIOCfg
	logger      logger.Logger
	shutdownCtx context.Context
	wg          sync.WaitGroup
	backoff     *jitter.Backoff
}

func NewMinioInfrastructure(minioRepo usecase.ImageRepository, cfg *cfg.MinIOCfg, logger logger.Logger, shutdownCtx context.Context) *MinioInfrastructure {
	return &MinioInfrastructure{
		minioRepo:   minioRepo,
		cfg:         cfg,
		logger:      logger,
		shutdownCtx: shutdownCtx,
		backoff:     jitter.NewBackoff(time.Second, 8*time.Second, jitter.DefaultJitter),
	}
}

// WithBackoff подменяет политику повторов очистки.
func (m *MinioInfrastructure) WithBackoff(b *jitter.Backoff) *MinioInfrastructure {
	m.backoff = b
	return m
}

// UploadImages загружает изображения в MinIO параллельно с ограничением одновременных операций.
// Ссылки возвращаются в порядке запроса. При первой ошибке остальные загрузки отменяются,
// а уже загруженные объекты удаляются в фоне.
func (m *MinioInfrastructure) UploadImages(ctx context.Context, req *usecase.UploadImagesReq) (*usecase.UploadImagesRes, error) {
	const op = "MinioInfrastructure.UploadImages"
	// Отмена остальных загрузок при первой ошибке
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handles := make([]domain.ImageHandle, len(req.Images))
	errs := make([]error, len(req.Images))
	sem := make(chan struct{}, max(m.cfg.UploadLimit, 1))

	var uploadWg sync.WaitGroup
	for i, image := range req.Images {
		uploadWg.Add(1)
		go func() {
			defer uploadWg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			defer func() { <-sem }()

			handle, err := m.uploadOne(ctx, req.Prefix, image)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			handles[i] = handle
		}()
	}
	uploadWg.Wait()

	if err := firstError(errs); err != nil {
		var keys []string
		for i, h := range handles {
			if errs[i] == nil && h.ObjectKey != "" {
				keys = append(keys, h.ObjectKey)
			}
		}
		m.CleanupImages(keys)

		return nil, e.Wrap(op, err)
	}

	return usecase.NewUploadImagesRes(handles), nil
}

func (m *MinioInfrastructure) uploadOne(ctx context.Context, prefix string, image usecase.UploadedImage) (domain.ImageHandle, error) {
	imageID := uuid.NewString()
	ext, err := infrastructure.GetExtensionFromMIME(image.MimeType)
	if err != nil {
		return domain.ImageHandle{}, fmt.Errorf("invalid mime type %s for %s: %w", image.MimeType, image.Name, err)
	}

	objKey := fmt.Sprintf("%s/%s.%s", prefix, imageID, ext)
	newImage := domain.NewImage(imageID, m.cfg.BucketName, objKey, image.Data, image.MimeType)

	key, err := m.minioRepo.Upload(ctx, newImage)
	if err != nil {
		return domain.ImageHandle{}, fmt.Errorf("upload %s failed: %w", image.Name, err)
	}
	newImage.ObjectKey = key

	return newImage.Handle(), nil
}

// firstError возвращает первую ошибку по порядку изображений, предпочитая исходную причину отмене.
func firstError(errs []error) error {
	var canceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			if canceled == nil {
				canceled = err
			}
			continue
		}
		return err
	}

	return canceled
}

// CleanupImages запускает фоновую очистку указанных ключей MinIO
func (m *MinioInfrastructure) CleanupImages(keys []string) {
	if len(keys) == 0 {
		return
	}
	m.wg.Add(1)
	go m.cleanupUploadedKeys(keys)
}

// cleanupUploadedKeys удаляет указанные объекты из MinIO с экспоненциальной задержкой и jitter.
func (m *MinioInfrastructure) cleanupUploadedKeys(keys []string) {
	defer m.wg.Done() // сигнализируем завершение компенсации
	const op = "MinioInfrastructure.cleanupUploadedKeys"
	m.logger.Infof("%s: cleaning up %d uploaded keys", op, len(keys))

	ctx, cancel := context.WithTimeout(m.shutdownCtx, m.cfg.CleanupTimeout)
	defer cancel()

	for _, key := range keys {
		for attempt := 0; attempt < cleanupAttempts; attempt++ {
			err := m.minioRepo.Delete(ctx, key)
			if err == nil {
				break
			}

			if attempt == cleanupAttempts-1 {
				m.logger.Errorf(err, "%s: giving up on key=%s", op, key)
				break
			}

			if err := m.backoff.Wait(ctx, attempt); err != nil {
				m.logger.Warnf("cleanup interrupted by shutdown, key=%v", key)
				return
			}
		}
	}
}

// WaitForCleanup ожидает завершения всех фоновых задач очистки с учётом таймаута завершения приложения.
func (m *MinioInfrastructure) WaitForCleanup(shutdownTimeoutCtx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-shutdownTimeoutCtx.Done():
		return fmt.Errorf("minio cleanup timeout during shutdown: %w", shutdownTimeoutCtx.Err())
	}
}
