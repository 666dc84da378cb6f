package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/DRSN-tech/product-verifier/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Audit сохраняет проверку и событие outbox в одной транзакции PostgreSQL.
type Audit struct {
	dbPool           transaction.Transactional
	verificationRepo VerificationRepository
	outboxRepo       OutboxRepository
	logger           logger.Logger
}

func NewAudit(
	dbPool transaction.Transactional,
	verificationRepo VerificationRepository,
	outboxRepo OutboxRepository,
	logger logger.Logger,
) *Audit {
	return &Audit{
		dbPool:           dbPool,
		verificationRepo: verificationRepo,
		outboxRepo:       outboxRepo,
		logger:           logger,
	}
}

func (a *Audit) Record(ctx context.Context, v *domain.Verification) error {
	const op = "Audit.Record"

	event, err := newVerificationEvent(v)
	if err != nil {
		return e.Wrap(op, err)
	}

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, a.dbPool)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				a.logger.Warnf("%s: rollback failed: %v", op, rbErr)
			}
		}
	}()

	pgxTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		err = e.ErrTransactionNotFound
		return e.Wrap(op, err)
	}
	ctx = tr.WithTx(ctx, pgxTx)

	if err = a.verificationRepo.Create(ctx, v); err != nil {
		return e.Wrap(op, err)
	}

	if _, err = a.outboxRepo.Create(ctx, event); err != nil {
		return e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

func (a *Audit) ListRecent(ctx context.Context, limit int) ([]domain.Verification, error) {
	res, err := a.verificationRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, e.Wrap("Audit.ListRecent", err)
	}

	return res, nil
}

func newVerificationEvent(v *domain.Verification) (*OutboxEvent, error) {
	eventID := uuid.NewString()

	payload, err := json.Marshal(NewVerificationCompletedPayload(eventID, v))
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", VerificationCompleted, err)
	}

	return &OutboxEvent{
		EventID:     eventID,
		EventType:   VerificationCompleted,
		AggregateID: v.ID,
		Payload:     payload,
		Status:      Pending,
		CreatedAt:   v.CreatedAt,
	}, nil
}

// NopAudit используется, когда PostgreSQL не настроен.
type NopAudit struct{}

func (NopAudit) Record(context.Context, *domain.Verification) error { return nil }

func (NopAudit) ListRecent(context.Context, int) ([]domain.Verification, error) {
	return []domain.Verification{}, nil
}
