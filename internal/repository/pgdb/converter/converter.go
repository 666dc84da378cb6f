package converter

import (
	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/internal/usecase"
)

// VerificationConverter преобразует Verification между domain и моделью PostgreSQL.
// Бакет хранится в конфигурации, поэтому в таблицу пишутся только ключи объектов.
type VerificationConverter struct {
	Bucket string
}

func (c VerificationConverter) ToModel(entity *domain.Verification) *VerificationModel {
	model := &VerificationModel{
		ID:             entity.ID,
		BestMatchID:    entity.BestMatchID,
		BestMatchKey:   entity.BestMatchImage.ObjectKey,
		Score:          entity.Score,
		IsMatch:        entity.IsMatch,
		Threshold:      entity.Threshold,
		ModelVersion:   entity.ModelVersion,
		ReferenceCount: entity.ReferenceCount,
		CreatedAt:      entity.CreatedAt,
	}
	if key := entity.QueryImage.ObjectKey; key != "" {
		model.QueryKey = &key
	}

	return model
}

func (c VerificationConverter) ToEntity(model *VerificationModel) *domain.Verification {
	entity := &domain.Verification{
		ID:             model.ID,
		BestMatchID:    model.BestMatchID,
		BestMatchImage: domain.ImageHandle{Bucket: c.Bucket, ObjectKey: model.BestMatchKey},
		Score:          model.Score,
		IsMatch:        model.IsMatch,
		Threshold:      model.Threshold,
		ModelVersion:   model.ModelVersion,
		ReferenceCount: model.ReferenceCount,
		CreatedAt:      model.CreatedAt,
	}
	if model.QueryKey != nil {
		entity.QueryImage = domain.ImageHandle{Bucket: c.Bucket, ObjectKey: *model.QueryKey}
	}

	return entity
}

// OutboxEventConverter преобразует OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter struct{}

func (OutboxEventConverter) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:             entity.ID,
		EventID:        entity.EventID,
		EventType:      string(entity.EventType),
		VerificationID: entity.AggregateID,
		Payload:        entity.Payload,
		Status:         string(entity.Status),
		CreatedAt:      entity.CreatedAt,
		ProcessedAt:    entity.ProcessedAt,
	}
}

func (OutboxEventConverter) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		AggregateID: model.VerificationID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c OutboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	result := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		result = append(result, c.ToEntity(m))
	}

	return result
}
