package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/medscan/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
)

// RedisAdapter implements the CacheProvider interface using Redis
type RedisAdapter struct {
	client  *redisclient.Client
	name    string
	metrics *observability.Metrics
}

// NewRedisAdapter creates a new Redis cache adapter. name labels hit and
// miss metrics.
func NewRedisAdapter(client *redisclient.Client, name string) *RedisAdapter {
	return &RedisAdapter{
		client: client,
		name:   name,
	}
}

// SetMetrics enables hit and miss counters.
func (a *RedisAdapter) SetMetrics(metrics *observability.Metrics) {
	a.metrics = metrics
}

// Get retrieves a value from cache
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Client().Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.RecordCacheMiss(ctx, a.metrics, a.name)
		return nil, providers.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}
	observability.RecordCacheHit(ctx, a.metrics, a.name)
	return result, nil
}

// Set stores a value in cache with expiration
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := a.client.Client().Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// Delete removes a value from cache
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

var _ providers.CacheProvider = (*RedisAdapter)(nil)
