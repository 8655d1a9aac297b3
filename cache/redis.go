package cache

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps the document under a single Redis key so several
// instances share one cache.
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore using key on client.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// Save implements Store. Expiry is handled by the cache, not by Redis.
func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	return s.client.Set(ctx, s.key, data, 0).Err()
}
