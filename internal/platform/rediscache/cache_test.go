package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vintrack/vintrack/internal/domain"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute), mr
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	task, err := domain.NewTask(uuid.New(), "1hgcm82633a004352")
	require.NoError(t, err)
	task.ApplyCharUpdate(float64(1)/17*100, 0, "1")

	require.NoError(t, cache.Set(ctx, task))

	got, err := cache.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Progress, got.Progress)
	assert.Equal(t, 0, got.LastProcessedIndex)
	assert.Equal(t, "1", got.ProcessedChars[0])
}

func TestCache_GetMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := cache.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_EntryExpires(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	task, err := domain.NewTask(uuid.New(), "abc")
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, task))

	mr.FastForward(2 * time.Minute)

	_, err = cache.Get(ctx, task.ID)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	task, err := domain.NewTask(uuid.New(), "abc")
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, task))

	task.Complete("ABC", 3.0)
	require.NoError(t, cache.Set(ctx, task))

	got, err := cache.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, "ABC", got.Result)
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	task, err := domain.NewTask(uuid.New(), "abc")
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, task))

	require.NoError(t, cache.Delete(ctx, task.ID))

	_, err = cache.Get(ctx, task.ID)
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting an absent entry is a no-op.
	require.NoError(t, cache.Delete(ctx, uuid.New()))
}
