package confirm

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebook/journal"
	"github.com/rustyeddy/tradebook/market"
)

func pendingFor(requester string, entry float64) Pending {
	return Pending{
		ID:        "01HX" + requester,
		Requester: requester,
		Trade: journal.TradeRecord{
			Symbol:    "ETH",
			Side:      market.Long,
			Entry:     entry,
			Exit:      3094.2,
			Qty:       0.64,
			CloseTime: time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC),
		},
		CreatedAt: time.Date(2024, 5, 1, 10, 21, 0, 0, time.UTC),
	}
}

func newTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, ttl), mr
}

// exercisePendingStore checks the contract every PendingStore honors.
func exercisePendingStore(t *testing.T, s PendingStore) {
	ctx := context.Background()

	_, ok, err := s.Peek(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, pendingFor("alice", 3090.4)))
	require.NoError(t, s.Put(ctx, pendingFor("alice", 3091.0)))
	require.NoError(t, s.Put(ctx, pendingFor("bob", 100)))

	p, ok, err := s.Peek(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 3091.0, p.Trade.Entry, 1e-9)

	p, ok, err = s.Take(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", p.Requester)
	assert.Equal(t, market.Long, p.Trade.Side)
	assert.True(t, p.Trade.CloseTime.Equal(time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)))

	_, ok, err = s.Take(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Peek(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exercisePendingStore(t, NewMemoryStore(0))
}

func TestRedisStore(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedis(t, time.Hour)
	exercisePendingStore(t, s)
}

func TestMemoryStoreExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(10 * time.Minute)
	p := pendingFor("alice", 3090.4)
	s.now = func() time.Time { return p.CreatedAt.Add(11 * time.Minute) }

	require.NoError(t, s.Put(ctx, p))
	_, ok, err := s.Take(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mr := newTestRedis(t, 10*time.Minute)

	require.NoError(t, s.Put(ctx, pendingFor("alice", 3090.4)))
	assert.True(t, mr.Exists("tradebook:pending:alice"))

	mr.FastForward(11 * time.Minute)
	_, ok, err := s.Peek(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, mr := newTestRedis(t, 0)
	require.NoError(t, mr.Set("tradebook:pending:alice", "{not json"))

	_, _, err := s.Take(ctx, "alice")
	assert.ErrorContains(t, err, "decode pending")
}
