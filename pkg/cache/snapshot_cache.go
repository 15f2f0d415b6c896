// Package cache exposes the engine's read-side caching boundary: order
// book snapshots published to Redis so a depth API or a
// dashboard can read current market state without hitting the matching
// core directly.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redis_wrapper "github.com/quantumflow/engine/pkg/infra/redis"
	"github.com/quantumflow/engine/pkg/orderbook"
)

// Config is the YAML-facing shape config.Load populates for the cache's
// Redis connection, layering a snapshot TTL on top of the teacher's own
// redis_wrapper.RedisConfig fields.
type Config struct {
	Redis      redis_wrapper.RedisConfig `yaml:"redis"`
	TTLSeconds int                       `yaml:"ttl_seconds"`
}

// SnapshotCache writes order book snapshots to Redis under a per-symbol
// key, wrapping the client that pkg/infra/redis's InitRedis hands back.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache dials Redis via the teacher's InitRedis and wraps the
// resulting client.
func NewSnapshotCache(cfg Config) (*SnapshotCache, error) {
	client, err := redis_wrapper.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("cache: init redis: %w", err)
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SnapshotCache{client: client, ttl: ttl}, nil
}

func snapshotKey(symbol string) string {
	return fmt.Sprintf("book:%s", symbol)
}

// Put serializes snap as JSON and writes it with the cache's configured
// TTL, so a stale snapshot left behind by a crashed writer expires rather
// than being served forever.
func (c *SnapshotCache) Put(ctx context.Context, snap orderbook.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot for %s: %w", snap.Symbol, err)
	}
	return c.client.Set(ctx, snapshotKey(snap.Symbol), payload, c.ttl).Err()
}

// Get returns the most recently cached snapshot for symbol, or false if
// none is present (either never written, or expired).
func (c *SnapshotCache) Get(ctx context.Context, symbol string) (orderbook.Snapshot, bool, error) {
	payload, err := c.client.Get(ctx, snapshotKey(symbol)).Bytes()
	if err == redis.Nil {
		return orderbook.Snapshot{}, false, nil
	}
	if err != nil {
		return orderbook.Snapshot{}, false, fmt.Errorf("cache: get snapshot for %s: %w", symbol, err)
	}
	var snap orderbook.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return orderbook.Snapshot{}, false, fmt.Errorf("cache: unmarshal snapshot for %s: %w", symbol, err)
	}
	return snap, true, nil
}

// Invalidate removes a symbol's cached snapshot, used when a symbol is
// delisted or its book is reset.
func (c *SnapshotCache) Invalidate(ctx context.Context, symbol string) error {
	return c.client.Del(ctx, snapshotKey(symbol)).Err()
}
