//go:build integration

package pgdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DRSN-tech/product-verifier/internal/cfg"
	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/DRSN-tech/product-verifier/pkg/postgres"
	"github.com/DRSN-tech/product-verifier/pkg/tr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Запуск: PG_TEST_DSN="host=localhost port=5432 user=... password=... dbname=... sslmode=disable" go test -tags integration ./internal/repository/pgdb/
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := postgres.NewPgDatabase(pool, &cfg.PGDBCfg{MigrationsPath: "file://../../../db/migrations"}, dsn)
	require.NoError(t, db.RunMigrations(logger.Nop{}))

	_, err = pool.Exec(ctx, "TRUNCATE outbox_events, verifications")
	require.NoError(t, err)

	return pool
}

func createInTx(t *testing.T, pool *pgxpool.Pool, repo *VerificationRepo, v *domain.Verification) {
	t.Helper()

	ctx := context.Background()
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, repo.Create(tr.WithTx(ctx, tx), v))
	require.NoError(t, tx.Commit(ctx))
}

func TestVerificationRepoListsNewestFirst(t *testing.T) {
	pool := newTestPool(t)
	repo := NewVerificationRepo(pool, converter.VerificationConverter{Bucket: "verification-images"})

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		v := &domain.Verification{
			ID:             uuid.NewString(),
			BestMatchID:    uuid.NewString(),
			BestMatchImage: domain.ImageHandle{ObjectKey: "references/a.png"},
			Score:          0.5 + float64(i)/10,
			IsMatch:        i == 2,
			Threshold:      0.8,
			ModelVersion:   "resnet50/caffe",
			ReferenceCount: i + 1,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if i > 0 {
			v.QueryImage = domain.ImageHandle{ObjectKey: "queries/q.png"}
		}
		createInTx(t, pool, repo, v)
		ids = append(ids, v.ID)
	}

	got, err := repo.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[1], got[1].ID)
	assert.True(t, got[0].IsMatch)
	assert.InDelta(t, 0.7, got[0].Score, 1e-9)
	assert.Equal(t, "verification-images", got[0].BestMatchImage.Bucket)
	assert.Equal(t, "queries/q.png", got[1].QueryImage.ObjectKey)
	assert.True(t, got[0].CreatedAt.Equal(base.Add(2*time.Minute)))

	all, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Empty(t, all[2].QueryImage.ObjectKey)
}

func TestVerificationRepoRejectsDuplicateID(t *testing.T) {
	pool := newTestPool(t)
	repo := NewVerificationRepo(pool, converter.VerificationConverter{})

	v := &domain.Verification{
		ID:           uuid.NewString(),
		BestMatchID:  uuid.NewString(),
		ModelVersion: "resnet50/caffe",
		CreatedAt:    time.Now().UTC(),
	}
	createInTx(t, pool, repo, v)

	ctx := context.Background()
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = repo.Create(tr.WithTx(ctx, tx), v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
