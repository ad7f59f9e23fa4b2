package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yyup/kindergarten-service/internal/utils"
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

const scanBatch = 100

// Key joins key parts with ':'. The first part is normally the tenant schema.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Namespace stores JSON values under a fixed prefix with a default TTL.
// Without a client every write is dropped and every read misses with ErrCacheNotAvailable.
type Namespace struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger utils.Logger
}

func NewNamespace(client *redis.Client, prefix string, ttl time.Duration, logger utils.Logger) *Namespace {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Namespace{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (n *Namespace) fullKey(key string) string {
	return n.prefix + key
}

func (n *Namespace) TTL() time.Duration {
	return n.ttl
}

// Load decodes the value stored at key into dest.
func (n *Namespace) Load(ctx context.Context, key string, dest interface{}) error {
	if n.client == nil {
		return ErrCacheNotAvailable
	}
	raw, err := n.client.Get(ctx, n.fullKey(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheNotFound
	case err != nil:
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// Store writes value at key for the namespace TTL.
func (n *Namespace) Store(ctx context.Context, key string, value interface{}) error {
	if n.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return n.client.Set(ctx, n.fullKey(key), raw, n.ttl).Err()
}

// Forget removes keys. Failures are logged, never returned.
func (n *Namespace) Forget(ctx context.Context, keys ...string) {
	if n.client == nil || len(keys) == 0 {
		return
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, n.fullKey(k))
	}
	if err := n.client.Del(ctx, full...).Err(); err != nil {
		n.logger.Error("Failed to delete cache keys", "error", err, "keys", full)
	}
}

// ForgetMatching removes every key matching pattern. Keys are collected with
// SCAN first and deleted only after the scan completes, so deletions never
// disturb the cursor.
func (n *Namespace) ForgetMatching(ctx context.Context, pattern string) {
	if n.client == nil {
		return
	}
	match := n.fullKey(pattern)

	var keys []string
	var cursor uint64
	for {
		batch, next, err := n.client.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			n.logger.Error("Failed to scan cache pattern", "error", err, "pattern", match)
			return
		}
		keys = append(keys, batch...)
		if next == 0 {
			break
		}
		cursor = next
	}
	if len(keys) == 0 {
		return
	}

	pipe := n.client.Pipeline()
	for start := 0; start < len(keys); start += scanBatch {
		pipe.Del(ctx, keys[start:min(start+scanBatch, len(keys))]...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		n.logger.Error("Failed to invalidate cache pattern", "error", err, "pattern", match, "keys", len(keys))
	}
}

// Remember returns the cached value at key, or calls fetch and caches its
// result. Cache trouble is logged and falls through to fetch.
func Remember[T any](ctx context.Context, n *Namespace, key string, fetch func() (T, error)) (T, error) {
	var cached T
	err := n.Load(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		n.logger.Warn("Cache read failed, loading from source", "error", err, "key", n.fullKey(key))
	}

	value, err := fetch()
	if err != nil {
		return value, err
	}
	if err := n.Store(ctx, key, value); err != nil {
		n.logger.Warn("Cache write failed", "error", err, "key", n.fullKey(key))
	}
	return value, nil
}
