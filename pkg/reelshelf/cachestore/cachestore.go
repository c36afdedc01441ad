// Package cachestore provides the page-cache backends used by the HTTP layer.
package cachestore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const opTimeout = 2 * time.Second

// RedisStore implements persist.CacheStore on top of go-redis. Values are
// gob encoded so any response type gin-cache stores round-trips.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client. Every key is prefixed with prefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

// Client returns the underlying Redis client
func (s *RedisStore) Client() *redis.Client {
	return s.rdb
}

func (s *RedisStore) Get(key string, value interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	payload, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return persist.ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(payload)).Decode(value)
}

func (s *RedisStore) Set(key string, value interface{}, expire time.Duration) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.rdb.Set(ctx, s.prefix+key, buf.Bytes(), expire).Err()
}

func (s *RedisStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return s.rdb.Del(ctx, s.prefix+key).Err()
}

// New returns the store for driver: "memory", "redis" or "none".
// A nil store with a nil error means caching is disabled. An unreachable
// Redis falls back to the in-process store.
func New(driver, redisURL string) (persist.CacheStore, error) {
	switch driver {
	case "none":
		return nil, nil
	case "memory":
		return persist.NewMemoryStore(time.Minute), nil
	case "redis":
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url, %w", err)
		}

		rdb := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := rdb.Ping(ctx).Err(); err != nil {
			zap.L().Warn("Redis unreachable, falling back to in-memory page cache", zap.Error(err))
			rdb.Close()
			return persist.NewMemoryStore(time.Minute), nil
		}

		zap.L().Info("Redis page cache enabled", zap.String("addr", opts.Addr))
		return NewRedisStore(rdb, "reelshelf:"), nil
	}
	return nil, fmt.Errorf("unknown cache driver %q", driver)
}
