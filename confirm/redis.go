package confirm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps pending confirmations in Redis so they survive a
// restart and can be shared by the CLI and the HTTP server.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

var _ PendingStore = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: "tradebook:pending:"}
}

func (s *RedisStore) Put(ctx context.Context, p Pending) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending: %w", err)
	}
	return s.rdb.Set(ctx, s.key(p.Requester), data, s.ttl).Err()
}

func (s *RedisStore) Take(ctx context.Context, requester string) (Pending, bool, error) {
	return s.decode(s.rdb.GetDel(ctx, s.key(requester)).Bytes())
}

func (s *RedisStore) Peek(ctx context.Context, requester string) (Pending, bool, error) {
	return s.decode(s.rdb.Get(ctx, s.key(requester)).Bytes())
}

func (s *RedisStore) decode(data []byte, err error) (Pending, bool, error) {
	if errors.Is(err, redis.Nil) {
		return Pending{}, false, nil
	}
	if err != nil {
		return Pending{}, false, err
	}
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return Pending{}, false, fmt.Errorf("decode pending: %w", err)
	}
	return p, true, nil
}

func (s *RedisStore) key(requester string) string {
	return s.prefix + requester
}
