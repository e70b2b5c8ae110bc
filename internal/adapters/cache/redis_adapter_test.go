package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/medscan/backend/internal/infrastructure/clients/redis"
)

// unreachableAdapter points at a port nothing listens on, so every command
// fails fast at dial time.
func unreachableAdapter(t *testing.T) *RedisAdapter {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisAdapter(redisclient.NewClientWithRedis(rdb), "test")
}

func newTestAdapter(t *testing.T) (*RedisAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisAdapter(redisclient.NewClientWithRedis(rdb), "test"), mr
}

func TestRedisAdapter_SetGetDelete(t *testing.T) {
	adapter, mr := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "medscan:extraction:abc", []byte(`{"brand_name":"Advil"}`), time.Hour))

	got, err := adapter.Get(ctx, "medscan:extraction:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"brand_name":"Advil"}`, string(got))
	assert.Equal(t, time.Hour, mr.TTL("medscan:extraction:abc"))

	require.NoError(t, adapter.Delete(ctx, "medscan:extraction:abc"))
	assert.False(t, mr.Exists("medscan:extraction:abc"))
}

func TestRedisAdapter_MissingKeyIsCacheMiss(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	_, err := adapter.Get(context.Background(), "medscan:extraction:absent")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_EntriesExpire(t *testing.T) {
	adapter, mr := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := adapter.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_TransportErrorsAreNotMisses(t *testing.T) {
	adapter := unreachableAdapter(t)
	ctx := context.Background()

	_, err := adapter.Get(ctx, "medscan:extraction:abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrCacheMiss)

	assert.Error(t, adapter.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Error(t, adapter.Delete(ctx, "k"))
}
