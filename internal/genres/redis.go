package genres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "moods:genres:"

// RedisStore persists lookups as JSON values that expire with the cache TTL.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

type redisEntry struct {
	Genres    []string  `json:"genres"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewRedisStore creates a store over rdb. Keys expire after ttl; zero keeps them forever.
func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) Get(ctx context.Context, key Key) (Cached, bool, error) {
	raw, err := s.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Cached{}, false, nil
	}
	if err != nil {
		return Cached{}, false, fmt.Errorf("redis get: %w", err)
	}

	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Cached{}, false, fmt.Errorf("decoding cached genres: %w", err)
	}
	if e.Genres == nil {
		e.Genres = []string{}
	}
	return Cached{Genres: e.Genres, FetchedAt: e.FetchedAt}, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key Key, c Cached) error {
	raw, err := json.Marshal(redisEntry{Genres: c.Genres, FetchedAt: c.FetchedAt})
	if err != nil {
		return fmt.Errorf("encoding genres: %w", err)
	}
	if err := s.rdb.Set(ctx, redisKey(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func redisKey(k Key) string {
	return redisKeyPrefix + k.String()
}
