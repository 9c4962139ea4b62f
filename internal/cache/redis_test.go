package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBackend(t *testing.T) (*RedisBackend[*testPayload], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisBackend[*testPayload](rdb, "cc:"), mr
}

func TestRedisBackend_LoadMissing(t *testing.T) {
	b, _ := newRedisBackend(t)
	_, found, err := b.Load(context.Background(), "points:1,2:staff")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisBackend_CompareAndSwapRoundTrip(t *testing.T) {
	b, mr := newRedisBackend(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := t0.Add(5 * time.Minute)

	_, swapped, err := b.CompareAndSwap(ctx, "k", t0, Entry[*testPayload]{
		Stamp: t0, Valid: true, Payload: &testPayload{Value: 7}, SoftExpiry: &exp,
	})
	require.NoError(t, err)
	assert.True(t, swapped)
	assert.True(t, mr.Exists("cc:k"))

	e, found, err := b.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, e.Valid)
	assert.True(t, t0.Equal(e.Stamp))
	assert.Equal(t, 7, e.Payload.Value)
	require.NotNil(t, e.SoftExpiry)
	assert.True(t, exp.Equal(*e.SoftExpiry))
}

func TestRedisBackend_OlderGenerationLoses(t *testing.T) {
	b, _ := newRedisBackend(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := b.CompareAndSwap(ctx, "k", t0, Entry[*testPayload]{Stamp: t0, Valid: true, Payload: &testPayload{Value: 2}})
	require.NoError(t, err)

	cur, swapped, err := b.CompareAndSwap(ctx, "k", t0.Add(-time.Second), Entry[*testPayload]{Stamp: t0.Add(-time.Second), Valid: true, Payload: &testPayload{Value: 1}})
	require.NoError(t, err)
	assert.False(t, swapped)
	assert.Equal(t, 2, cur.Payload.Value)
	assert.True(t, t0.Equal(cur.Stamp))
}

func TestRedisBackend_InvalidationWinsTie(t *testing.T) {
	b, _ := newRedisBackend(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, b.Invalidate(ctx, "k", t0))
	cur, swapped, err := b.CompareAndSwap(ctx, "k", t0, Entry[*testPayload]{Stamp: t0, Valid: true, Payload: &testPayload{Value: 1}})
	require.NoError(t, err)
	assert.False(t, swapped)
	assert.False(t, cur.Valid)

	_, swapped, err = b.CompareAndSwap(ctx, "k", t0.Add(time.Second), Entry[*testPayload]{Stamp: t0.Add(time.Second), Valid: true, Payload: &testPayload{Value: 1}})
	require.NoError(t, err)
	assert.True(t, swapped)
}

func TestRedisBackend_InvalidateKeepsLaterStamp(t *testing.T) {
	b, _ := newRedisBackend(t)
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := b.CompareAndSwap(ctx, "k", t0, Entry[*testPayload]{Stamp: t0, Valid: true, Payload: &testPayload{Value: 1}})
	require.NoError(t, err)
	require.NoError(t, b.Invalidate(ctx, "k", t0.Add(-time.Hour)))

	e, found, err := b.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, e.Valid)
	assert.True(t, t0.Equal(e.Stamp))
}

func TestRedisBackend_BackingStore(t *testing.T) {
	b, mr := newRedisBackend(t)
	clock := newManualClock()
	store := NewStore[*testPayload]("test", b, WithClock(clock))
	ctx := context.Background()
	calls := 0

	_, err := store.GetOrGenerate(ctx, testKey, countingGen(&calls, 3), nil)
	require.NoError(t, err)
	got, err := store.GetOrGenerate(ctx, testKey, countingGen(&calls, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Value)
	assert.Equal(t, 1, calls)

	clock.Advance(time.Second)
	require.NoError(t, store.Invalidate(ctx, testKey))
	clock.Advance(time.Second)
	_, err = store.GetOrGenerate(ctx, testKey, countingGen(&calls, 3), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	mr.Close()
	got, err = store.GetOrGenerate(ctx, testKey, countingGen(&calls, 4), nil)
	require.NoError(t, err, "an unreachable backend only costs recomputation")
	assert.Equal(t, 4, got.Value)
}

func TestRedisBackend_SubMicrosecondStampsKeepOrder(t *testing.T) {
	b, _ := newRedisBackend(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later, earlier := base.Add(600*time.Nanosecond), base.Add(100*time.Nanosecond)

	_, swapped, err := b.CompareAndSwap(ctx, "k", later, Entry[*testPayload]{Stamp: later, Valid: true, Payload: &testPayload{Value: 2}})
	require.NoError(t, err)
	require.True(t, swapped)

	cur, swapped, err := b.CompareAndSwap(ctx, "k", earlier, Entry[*testPayload]{Stamp: earlier, Valid: true, Payload: &testPayload{Value: 1}})
	require.NoError(t, err)
	assert.False(t, swapped)
	assert.Equal(t, 2, cur.Payload.Value)
	assert.True(t, later.Equal(cur.Stamp))

	require.NoError(t, b.Invalidate(ctx, "k", earlier))
	e, _, err := b.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, e.Valid)
	assert.True(t, later.Equal(e.Stamp))
}
