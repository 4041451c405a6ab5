package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})
	return client
}

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestRedis_RoundTrip(t *testing.T) {
	c := NewRedisFromClient(setupTestRedis(t), "test:")
	ctx := context.Background()

	var got []item
	ok, err := c.Get(ctx, "clients", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	want := []item{{ID: "1", Name: "A"}}
	require.NoError(t, c.Set(ctx, "clients", want, time.Minute))

	ok, err = c.Get(ctx, "clients", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, "clients"))
	ok, err = c.Get(ctx, "clients", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url", "x:")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	ok, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, "k"))
}
