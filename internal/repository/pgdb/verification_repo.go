package pgdb

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// VerificationRepo хранит журнал проверок в PostgreSQL.
type VerificationRepo struct {
	pool *pgxpool.Pool
	conv converter.VerificationConverter
}

func NewVerificationRepo(pool *pgxpool.Pool, conv converter.VerificationConverter) *VerificationRepo {
	return &VerificationRepo{
		pool: pool,
		conv: conv,
	}
}

// Create записывает проверку в рамках транзакции из контекста.
func (r *VerificationRepo) Create(ctx context.Context, v *domain.Verification) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	model := r.conv.ToModel(v)
	query := `
		INSERT INTO verifications (
			id,
			query_key,
			best_match_id,
			best_match_key,
			score,
			is_match,
			threshold,
			model_version,
			reference_count,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if _, err := tx.Exec(ctx, query,
		model.ID,
		model.QueryKey,
		model.BestMatchID,
		model.BestMatchKey,
		model.Score,
		model.IsMatch,
		model.Threshold,
		model.ModelVersion,
		model.ReferenceCount,
		model.CreatedAt,
	); err != nil {
		if postgresDuplicate(err) {
			return fmt.Errorf("%s: verification with id %s already exists", whereami.WhereAmI(), v.ID)
		}

		return fmt.Errorf("%s: failed to insert verification: %w", whereami.WhereAmI(), err)
	}

	return nil
}

// ListRecent возвращает последние limit проверок, новые первыми.
func (r *VerificationRepo) ListRecent(ctx context.Context, limit int) ([]domain.Verification, error) {
	query := `
		SELECT id, query_key, best_match_id, best_match_key, score, is_match,
		       threshold, model_version, reference_count, created_at
		FROM verifications
		ORDER BY created_at DESC, id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Verification, 0, limit)
	for rows.Next() {
		var model converter.VerificationModel
		if err := rows.Scan(
			&model.ID,
			&model.QueryKey,
			&model.BestMatchID,
			&model.BestMatchKey,
			&model.Score,
			&model.IsMatch,
			&model.Threshold,
			&model.ModelVersion,
			&model.ReferenceCount,
			&model.CreatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, *r.conv.ToEntity(&model))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iterator error: %w", whereami.WhereAmI(), err)
	}

	return result, nil
}
