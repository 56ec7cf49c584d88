package redis

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set, skipping redis store test")
	}
	if err := InitRedis(addr, os.Getenv("TEST_REDIS_USERNAME"), os.Getenv("TEST_REDIS_PASSWORD")); err != nil {
		t.Skipf("redis not available, skipping test: %v", err)
	}
	defer Rdb.Close()

	ctx := context.Background()
	s := NewStore(Rdb)
	key := "test:" + t.Name()
	t.Cleanup(func() { _ = s.Delete(ctx, key) })

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, `[{"id":1}]`))
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, v)

	require.NoError(t, s.Delete(ctx, key))
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
