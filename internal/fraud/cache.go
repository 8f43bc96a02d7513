package fraud

import (
	"context"
	"encoding/json"
	"time"

	"github.com/richxcame/carbon-ledger/pkg/logger"
	"github.com/richxcame/carbon-ledger/pkg/redis"
	"go.uber.org/zap"
)

const statisticsCacheKey = "carbon_ledger:fraud:statistics"

// CachedRepository serves Statistics from Redis and drops the cached copy
// after every successful write. Cache failures never fail the call.
type CachedRepository struct {
	RepositoryInterface
	cache *redis.Client
	ttl   time.Duration
}

// NewCachedRepository wraps repo with a statistics cache
func NewCachedRepository(repo RepositoryInterface, cache *redis.Client, ttl time.Duration) *CachedRepository {
	return &CachedRepository{RepositoryInterface: repo, cache: cache, ttl: ttl}
}

// Statistics returns the cached counters when present, otherwise queries and caches them
func (r *CachedRepository) Statistics(ctx context.Context) (*FraudStatistics, error) {
	raw, err := r.cache.GetBytes(ctx, statisticsCacheKey)
	switch {
	case err == nil:
		var stats FraudStatistics
		if err := json.Unmarshal(raw, &stats); err == nil {
			return &stats, nil
		}
		r.cacheFailed(ctx, "decode", err)
	case !redis.IsMiss(err):
		r.cacheFailed(ctx, "get", err)
	}

	stats, err := r.RepositoryInterface.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(stats)
	if err != nil {
		r.cacheFailed(ctx, "encode", err)
		return stats, nil
	}
	if err := r.cache.SetWithExpiration(ctx, statisticsCacheKey, string(encoded), r.ttl); err != nil {
		r.cacheFailed(ctx, "set", err)
	}
	return stats, nil
}

func (r *CachedRepository) Save(ctx context.Context, result *FraudDetectionResult) error {
	if err := r.RepositoryInterface.Save(ctx, result); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedRepository) Update(ctx context.Context, result *FraudDetectionResult) error {
	if err := r.RepositoryInterface.Update(ctx, result); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedRepository) Delete(ctx context.Context, id int64) error {
	if err := r.RepositoryInterface.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedRepository) invalidate(ctx context.Context) {
	if err := r.cache.Delete(ctx, statisticsCacheKey); err != nil {
		r.cacheFailed(ctx, "delete", err)
	}
}

func (r *CachedRepository) cacheFailed(ctx context.Context, op string, err error) {
	cacheErrorsTotal.WithLabelValues(op).Inc()
	logger.WithContext(ctx).Warn("fraud statistics cache unavailable",
		zap.String("op", op),
		zap.Error(err),
	)
}
