package usecase

import (
	"io"
	"time"

	"github.com/DRSN-tech/product-verifier/internal/domain"
)

// VERIFICATION USECASE

// UploadedImage — изображение, полученное от клиента (multipart, gRPC или файл CLI).
type UploadedImage struct {
	Data     []byte // байты изображения
	MimeType string // Content-Type со стороны клиента, формат всё равно проверяется по содержимому
	Size     int64  // фактический размер в байтах
	Name     string // оригинальное имя файла (для логов)
}

type AddReferencesReq struct {
	Images []UploadedImage
}

type VerifyReq struct {
	Image UploadedImage
}

// VerifyRes — результат проверки для слоя отображения.
type VerifyRes struct {
	VerificationID string
	IsMatch        bool
	Score          float64
	Threshold      float64
	BestMatch      domain.Reference
	QueryImage     domain.ImageHandle
	ModelVersion   string
	ReferenceCount int
}

// INFRASTRUCTURE

// UploadImagesReq — запрос на загрузку изображений под общим префиксом ключа.
type UploadImagesReq struct {
	Prefix string
	Images []UploadedImage
}

type UploadImagesRes struct {
	Images []domain.ImageHandle
}

// StoredImage открыт на чтение, Body закрывает вызывающий.
type StoredImage struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

type CachedEmbedding struct {
	Digest string
	Vector domain.EmbeddingVector
}

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

type OutboxEventType string

const VerificationCompleted OutboxEventType = "verification.completed"

// OutboxEvent — событие, ожидающее публикации в Kafka.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	AggregateID string // идентификатор проверки, ключ сообщения
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// VerificationCompletedPayload — тело события verification.completed.
type VerificationCompletedPayload struct {
	EventID        string    `json:"event_id"`
	VerificationID string    `json:"verification_id"`
	IsMatch        bool      `json:"is_match"`
	Score          float64   `json:"score"`
	Threshold      float64   `json:"threshold"`
	BestMatchID    string    `json:"best_match_id"`
	BestMatchKey   string    `json:"best_match_key"`
	QueryKey       string    `json:"query_key"`
	ModelVersion   string    `json:"model_version"`
	ReferenceCount int       `json:"reference_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// MAPPERS

func NewUploadedImage(data []byte, mimeType string, name string) UploadedImage {
	return UploadedImage{
		Data:     data,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Name:     name,
	}
}

func NewAddReferencesReq(images []UploadedImage) *AddReferencesReq {
	return &AddReferencesReq{
		Images: images,
	}
}

func NewVerifyReq(image UploadedImage) *VerifyReq {
	return &VerifyReq{
		Image: image,
	}
}

func NewUploadImagesReq(prefix string, images []UploadedImage) *UploadImagesReq {
	return &UploadImagesReq{
		Prefix: prefix,
		Images: images,
	}
}

func NewUploadImagesRes(images []domain.ImageHandle) *UploadImagesRes {
	return &UploadImagesRes{
		Images: images,
	}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
	}
}

func NewVerificationCompletedPayload(eventID string, v *domain.Verification) VerificationCompletedPayload {
	return VerificationCompletedPayload{
		EventID:        eventID,
		VerificationID: v.ID,
		IsMatch:        v.IsMatch,
		Score:          v.Score,
		Threshold:      v.Threshold,
		BestMatchID:    v.BestMatchID,
		BestMatchKey:   v.BestMatchImage.ObjectKey,
		QueryKey:       v.QueryImage.ObjectKey,
		ModelVersion:   v.ModelVersion,
		ReferenceCount: v.ReferenceCount,
		CreatedAt:      v.CreatedAt,
	}
}
