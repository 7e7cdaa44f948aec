package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDashboardTTL is how long a computed dashboard is served.
const DefaultDashboardTTL = 5 * time.Minute

// DashboardCache holds the last computed dashboard until it expires. There
// is no invalidation; writes elsewhere become visible once the entry ages out.
type DashboardCache interface {
	Get(ctx context.Context) (Dashboard, bool, error)
	Set(ctx context.Context, d Dashboard) error
}

// Memo is an in-process expiring memo: a value and the time it was stored.
type Memo struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	value    Dashboard
	storedAt time.Time
	valid    bool
}

// NewMemo returns an empty memo. A nil now uses time.Now.
func NewMemo(ttl time.Duration, now func() time.Time) *Memo {
	if ttl <= 0 {
		ttl = DefaultDashboardTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Memo{ttl: ttl, now: now}
}

// Get returns the stored dashboard while it is younger than the TTL.
func (m *Memo) Get(context.Context) (Dashboard, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid || m.now().Sub(m.storedAt) >= m.ttl {
		return Dashboard{}, false, nil
	}
	return m.value, true, nil
}

// Set stores d stamped with the current time.
func (m *Memo) Set(_ context.Context, d Dashboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = d
	m.storedAt = m.now()
	m.valid = true
	return nil
}

// RedisCache shares the dashboard between API replicas using a key with an
// expiry.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache returns a cache under key, expiring entries after ttl.
func NewRedisCache(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = "fellowship:dashboard"
	}
	if ttl <= 0 {
		ttl = DefaultDashboardTTL
	}
	return &RedisCache{client: client, key: key, ttl: ttl}
}

// Get reads the cached dashboard, if any.
func (c *RedisCache) Get(ctx context.Context) (Dashboard, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Dashboard{}, false, nil
	}
	if err != nil {
		return Dashboard{}, false, fmt.Errorf("read dashboard cache: %w", err)
	}
	var d Dashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		return Dashboard{}, false, fmt.Errorf("decode dashboard cache: %w", err)
	}
	return d, true, nil
}

// Set writes d with the cache's expiry.
func (c *RedisCache) Set(ctx context.Context, d Dashboard) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode dashboard cache: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write dashboard cache: %w", err)
	}
	return nil
}
