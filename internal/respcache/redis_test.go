package respcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ziadkadry99/partsdesk/internal/stream"
)

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "", time.Minute, zaptest.NewLogger(t)), mr
}

func TestRedisStoreAndReplay(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)
	require.NoError(t, c.Ping(ctx))

	seq := sampleSequence()
	require.NoError(t, c.Store(ctx, "fp", seq))
	assert.True(t, mr.Exists(DefaultPrefix+"fp"))

	got, ok := c.Lookup(ctx, "fp")
	require.True(t, ok)
	require.Len(t, got, len(seq))

	for i := range seq {
		want, err := seq[i].MarshalJSON()
		require.NoError(t, err)
		have, err := got[i].MarshalJSON()
		require.NoError(t, err)
		assert.JSONEq(t, string(want), string(have))
	}
}

func TestRedisExpiryAndMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)

	_, ok := c.Lookup(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, c.Store(ctx, "fp", sampleSequence()))
	mr.FastForward(2 * time.Minute)
	_, ok = c.Lookup(ctx, "fp")
	assert.False(t, ok)

	assert.Equal(t, int64(2), c.Stats(ctx).Misses)
}

func TestRedisRejectsFailedSequence(t *testing.T) {
	c, _ := setupRedis(t)
	err := c.Store(context.Background(), "fp", []stream.Fragment{stream.Failed("timeout")})
	assert.ErrorIs(t, err, ErrNotCacheable)
}

func TestRedisInvalidateAllKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)
	require.NoError(t, mr.Set("other:key", "keep"))

	for _, fp := range []string{"a", "b", "c"} {
		require.NoError(t, c.Store(ctx, fp, sampleSequence()))
	}
	assert.Equal(t, 3, c.Stats(ctx).Entries)

	require.NoError(t, c.InvalidateAll(ctx))
	assert.Equal(t, 0, c.Stats(ctx).Entries)
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedis(t)
	require.NoError(t, mr.Set(DefaultPrefix+"bad", "{not json"))

	_, ok := c.Lookup(ctx, "bad")
	assert.False(t, ok)
}
