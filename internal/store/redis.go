package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "folio:resp:"

	dialTimeout = 3 * time.Second
	opTimeout   = 2 * time.Second
	pingTimeout = 2 * time.Second
	defaultKeep = 10 * time.Minute
)

// OpenRedis parses a Redis URL and returns a connected client
func OpenRedis(ctx context.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	options.DialTimeout = dialTimeout
	options.ReadTimeout = opTimeout
	options.WriteTimeout = opTimeout

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}

	if logger != nil {
		logger.Info("redis cache connected", "addr", options.Addr)
	}
	return client, nil
}

// RedisCache implements domain.ResponseCache on a shared Redis instance,
// letting several folio processes reuse each other's responses.
//
// Freshness is still decided at Get time from the stored timestamp; the Redis
// expiry (keep) only bounds how long stale entries occupy memory.
type RedisCache struct {
	client *redis.Client
	keep   time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisCache wraps client. keep <= 0 uses a ten minute retention.
func NewRedisCache(client *redis.Client, keep time.Duration, logger *slog.Logger) *RedisCache {
	if keep <= 0 {
		keep = defaultKeep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, keep: keep, logger: logger, now: time.Now}
}

func redisKey(url string) string {
	return redisKeyPrefix + string(hashKey(url))
}

func (c *RedisCache) Get(key string, ttl time.Duration) (json.RawMessage, bool) {
	if ttl <= 0 {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache read failed", "error", err)
		}
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if !e.Fresh(c.now(), ttl) {
		return nil, false
	}
	return e.Payload, true
}

func (c *RedisCache) Set(key string, payload json.RawMessage, fetchedAt time.Time) error {
	data, err := json.Marshal(Entry{FetchedAt: fetchedAt.UnixMilli(), Payload: payload})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, redisKey(key), data, c.keep).Err(); err != nil {
		return fmt.Errorf("redis cache write failed: %w", err)
	}
	return nil
}

// Clear removes every folio response key
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis cache scan failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
