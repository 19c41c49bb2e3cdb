// Package memory is an in-process session cache for development and tests.
// It is not shared between replicas.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/bookly/internal/identity/cache"
	"github.com/aussiebroadwan/bookly/internal/identity/domain"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	keys    cache.Keys
	now     func() time.Time
}

type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) SetProfile(_ context.Context, p domain.Profile, ttl time.Duration) error {
	raw, err := cache.EncodeProfile(p)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(c.keys.Profile(p.ID), raw, ttl)
	return nil
}

func (c *Cache) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	c.mu.Lock()
	raw, ok := c.getLocked(c.keys.Profile(userID))
	c.mu.Unlock()
	if !ok {
		return domain.Profile{}, cache.ErrMiss
	}
	return cache.DecodeProfile(raw)
}

func (c *Cache) DeleteProfile(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, c.keys.Profile(userID))
	return nil
}

func (c *Cache) SetRefreshToken(_ context.Context, userID, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(c.keys.Refresh(userID), []byte(token), ttl)
	return nil
}

func (c *Cache) GetRefreshToken(_ context.Context, userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.getLocked(c.keys.Refresh(userID))
	if !ok {
		return "", cache.ErrMiss
	}
	return string(raw), nil
}

func (c *Cache) RotateRefreshToken(_ context.Context, userID, current, next string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.keys.Refresh(userID)
	raw, ok := c.getLocked(key)
	if !ok || string(raw) != current {
		return cache.ErrTokenMismatch
	}
	c.setLocked(key, []byte(next), ttl)
	return nil
}

func (c *Cache) DeleteRefreshToken(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, c.keys.Refresh(userID))
	return nil
}

func (c *Cache) Ping(context.Context) error { return nil }

func (c *Cache) Close() error { return nil }

func (c *Cache) setLocked(key string, value []byte, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = e
}

// getLocked lazily evicts expired entries.
func (c *Cache) getLocked(key string) ([]byte, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}
