// Package cache keeps a short-lived Redis copy of the dashboard snapshot.
// A nil *Dashboard or one without a client is a valid no-op cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dashboardKey = "tero:dashboard:v1"

func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return rdb, nil
}

type Dashboard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDashboard(rdb *redis.Client, ttl time.Duration) *Dashboard {
	return &Dashboard{rdb: rdb, ttl: ttl}
}

func (d *Dashboard) enabled() bool {
	return d != nil && d.rdb != nil && d.ttl > 0
}

// Get decodes the cached snapshot into dst. hit is false on a miss.
func (d *Dashboard) Get(ctx context.Context, dst any) (hit bool, err error) {
	if !d.enabled() {
		return false, nil
	}
	raw, err := d.rdb.Get(ctx, dashboardKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("dashboard cacheado ilegible: %w", err)
	}
	return true, nil
}

func (d *Dashboard) Set(ctx context.Context, v any) error {
	if !d.enabled() {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return d.rdb.Set(ctx, dashboardKey, raw, d.ttl).Err()
}

// Invalidate drops the snapshot; called after any write that moves costs or margins.
func (d *Dashboard) Invalidate(ctx context.Context) error {
	if !d.enabled() {
		return nil
	}
	return d.rdb.Del(ctx, dashboardKey).Err()
}
