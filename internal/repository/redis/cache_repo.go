package redis

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/product-verifier/internal/cfg"
	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/internal/repository/redis/converter"
	"github.com/DRSN-tech/product-verifier/internal/usecase"
	"github.com/DRSN-tech/product-verifier/pkg/clients"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"github.com/jimlawless/whereami"
)

// CacheRepo кэширует векторы изображений по хэшу содержимого.
type CacheRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// GetEmbeddings возвращает закэшированные векторы по хэшам изображений, пропуская промахи.
// Повреждённые записи удаляются и считаются промахом.
func (r *CacheRepo) GetEmbeddings(ctx context.Context, modelVersion string, digests []string) (map[string]domain.EmbeddingVector, error) {
	if len(digests) == 0 {
		return map[string]domain.EmbeddingVector{}, nil
	}

	keys := r.buildEmbeddingKeys(modelVersion, digests)

	values, err := r.client.Client.MGet(ctx, keys...).Result()
	if err != nil {
		r.logger.Warnf("Redis MGET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make(map[string]domain.EmbeddingVector, len(values))
	for i, val := range values {
		data, err := redisValueToBytes(val, keys[i])
		if err != nil {
			r.logger.Warnf("%v", e.Wrap(whereami.WhereAmI(), err))
		}

		if data == nil {
			continue // cache miss
		}

		vec, err := converter.DecodeVector(data, modelVersion)
		if err != nil {
			r.logger.Warnf("Redis decode failed for %s: %v", keys[i], e.Wrap(whereami.WhereAmI(), err))
			if err := r.client.Client.Del(context.Background(), keys[i]).Err(); err != nil {
				r.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
			}
			continue // cache miss
		}
		result[digests[i]] = vec
	}

	return result, nil
}

// SetEmbeddings кэширует векторы одним пайплайном с заданным TTL.
// Ошибки записи логируются и не возвращаются.
func (r *CacheRepo) SetEmbeddings(ctx context.Context, entries []usecase.CachedEmbedding) error {
	if len(entries) == 0 {
		return nil
	}

	pipeline := r.client.Client.Pipeline()
	for _, entry := range entries {
		key := r.embeddingKey(entry.Vector.ModelVersion, entry.Digest)
		pipeline.Set(ctx, key, converter.EncodeVector(entry.Vector), r.cfg.EmbeddingTTL)
	}

	if _, err := pipeline.Exec(ctx); err != nil {
		r.logger.Warnf("Cache pipeline failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

// buildEmbeddingKeys формирует Redis-ключи из хэшей изображений
func (r *CacheRepo) buildEmbeddingKeys(modelVersion string, digests []string) []string {
	keys := make([]string, len(digests))
	for i, d := range digests {
		keys[i] = r.embeddingKey(modelVersion, d)
	}

	return keys
}

// embeddingKey возвращает Redis-ключ для одного вектора
func (r *CacheRepo) embeddingKey(modelVersion, digest string) string {
	return fmt.Sprintf("embedding:%s:%s", modelVersion, digest)
}

// redisValueToBytes конвертирует значение из Redis в []byte.
// Поддерживает string и []byte, возвращает ошибку для неизвестных типов.
func redisValueToBytes(val interface{}, key string) ([]byte, error) {
	switch v := val.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case nil:
		return nil, nil // cache miss
	default:
		return nil, fmt.Errorf("unexpected Redis value type for key %s: %T", key, val)
	}
}
