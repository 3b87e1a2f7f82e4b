package task

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to SPEAKUP_TEST_REDIS_URL, or skips the test.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("SPEAKUP_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SPEAKUP_TEST_REDIS_URL is not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisRegistry(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	r := NewRedisRegistry(client, time.Minute)

	created, err := r.Create(ctx, "ordering at a restaurant", 3)
	require.NoError(t, err)
	t.Cleanup(func() { client.Del(ctx, redisKey(created.ID)) })

	ttl, err := client.TTL(ctx, redisKey(created.ID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, r.Update(ctx, created.ID, StatusRunning, WithProgress(40)))
	require.NoError(t, r.Update(ctx, created.ID, StatusRunning, WithProgress(20)))
	assert.ErrorIs(t, r.Update(ctx, created.ID, StatusPending), ErrInvalidTransition)
	require.NoError(t, r.Update(ctx, created.ID, StatusCompleted, WithResult(&Result{Topic: "ordering at a restaurant"})))

	got, err := r.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.Result)
	assert.Equal(t, "ordering at a restaurant", got.Result.Topic)

	_, err = r.Get(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Update(ctx, "does-not-exist", StatusRunning), ErrNotFound)
}
