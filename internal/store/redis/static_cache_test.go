package redis

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queue-keeper/internal/domain"
	"queue-keeper/internal/store/memory"
)

// countingRepo counts calls reaching the backing repository.
type countingRepo struct {
	*memory.StaticRepository
	lists int
	gets  int
}

func (r *countingRepo) ListByType(ctx context.Context, t domain.StaticType) ([]domain.StaticEntry, error) {
	r.lists++
	return r.StaticRepository.ListByType(ctx, t)
}

func (r *countingRepo) Get(ctx context.Context, key string) (*domain.StaticEntry, error) {
	r.gets++
	return r.StaticRepository.Get(ctx, key)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStaticCache_UnreachableRedisFallsThrough(t *testing.T) {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	backing := &countingRepo{StaticRepository: memory.NewStaticRepository()}
	cache := NewStaticCache(client, backing, time.Minute, discard())

	require.NoError(t, cache.Seed(ctx, domain.DefaultStaticEntries()))

	entries, err := cache.ListByType(ctx, domain.StaticTypeQueueType)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entry, err := cache.Get(ctx, domain.QueueStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, domain.StaticTypeQueueStatus, entry.Type)

	_, err = cache.Get(ctx, "Drive-Thru")
	assert.ErrorIs(t, err, domain.ErrStaticEntryNotFound)

	assert.Equal(t, 1, backing.lists)
	assert.Equal(t, 2, backing.gets)
}

// TestStaticCache_Live runs against the Redis at REDIS_ADDR.
func TestStaticCache_Live(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	keys := []string{
		typeKey(domain.StaticTypeQueueType), typeKey(domain.StaticTypeQueueStatus),
		entryKey(domain.QueueTypeVirtual), entryKey(domain.QueueStatusOpen),
	}
	require.NoError(t, client.Del(ctx, keys...).Err())
	t.Cleanup(func() { client.Del(context.Background(), keys...) })

	backing := &countingRepo{StaticRepository: memory.NewStaticRepository()}
	cache := NewStaticCache(client, backing, time.Minute, discard())

	// empty lists are not cached
	entries, err := cache.ListByType(ctx, domain.StaticTypeQueueType)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, cache.Seed(ctx, domain.DefaultStaticEntries()))

	for i := 0; i < 3; i++ {
		entries, err = cache.ListByType(ctx, domain.StaticTypeQueueType)
		require.NoError(t, err)
		assert.Equal(t, []domain.StaticEntry{
			{Key: domain.QueueTypePhysical, Value: domain.QueueTypePhysical, Type: domain.StaticTypeQueueType},
			{Key: domain.QueueTypeVirtual, Value: domain.QueueTypeVirtual, Type: domain.StaticTypeQueueType},
		}, entries)

		entry, err := cache.Get(ctx, domain.QueueTypeVirtual)
		require.NoError(t, err)
		assert.Equal(t, domain.QueueTypeVirtual, entry.Value)
	}

	// one miss before seeding, one after; the rest are hits
	assert.Equal(t, 2, backing.lists)
	assert.Equal(t, 1, backing.gets)
}
