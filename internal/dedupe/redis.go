package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs dedupe marks with Redis, surviving process restarts and
// shared across replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) MarkIfFirst(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	first, err := s.client.SetNX(ctx, key(id), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe mark: %w", err)
	}
	return first, nil
}

func (s *RedisStore) Release(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("dedupe release: %w", err)
	}
	return nil
}

func key(id string) string {
	return fmt.Sprintf("seen:%s", id)
}
