package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "bondbridge:refresh:"

// RedisStore keeps one key per principal. SET is a single-key upsert, so
// concurrent writers cannot interleave a partial state.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store whose keys expire after ttl (0 keeps them forever).
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: defaultKeyPrefix, ttl: ttl}
}

func (s *RedisStore) key(principalID string) string {
	return s.prefix + principalID
}

func (s *RedisStore) Put(ctx context.Context, principalID, token string) error {
	if principalID == "" || token == "" {
		return ErrInvalidArgument
	}
	if err := s.rdb.Set(ctx, s.key(principalID), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set refresh token: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, principalID string) (string, bool, error) {
	if principalID == "" {
		return "", false, nil
	}
	v, err := s.rdb.Get(ctx, s.key(principalID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get refresh token: %w", err)
	}
	return v, true, nil
}

func (s *RedisStore) Clear(ctx context.Context, principalID string) error {
	if err := s.rdb.Del(ctx, s.key(principalID)).Err(); err != nil {
		return fmt.Errorf("redis del refresh token: %w", err)
	}
	return nil
}
