package redis

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/bookly/internal/identity/cache"
	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/redis/go-redis/v9"
)

// rotateScript swaps the live refresh token only if it still equals the
// presented one. KEYS[1]=refresh key, ARGV=current, next, ttl ms.
var rotateScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

type Cache struct {
	client redis.UniversalClient
	keys   cache.Keys
}

// New wraps an existing client. prefix is prepended to every key.
func New(client redis.UniversalClient, prefix string) *Cache {
	return &Cache{client: client, keys: cache.Keys{Prefix: prefix}}
}

// Open parses a redis:// or rediss:// URL, connects and pings.
func Open(ctx context.Context, rawURL, prefix string) (*Cache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return New(client, prefix), nil
}

func (c *Cache) SetProfile(ctx context.Context, p domain.Profile, ttl time.Duration) error {
	raw, err := cache.EncodeProfile(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.keys.Profile(p.ID), raw, ttl).Err()
}

func (c *Cache) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	raw, err := c.client.Get(ctx, c.keys.Profile(userID)).Bytes()
	if err != nil {
		return domain.Profile{}, mapMiss(err)
	}
	return cache.DecodeProfile(raw)
}

func (c *Cache) DeleteProfile(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.keys.Profile(userID)).Err()
}

func (c *Cache) SetRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	return c.client.Set(ctx, c.keys.Refresh(userID), token, ttl).Err()
}

func (c *Cache) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	token, err := c.client.Get(ctx, c.keys.Refresh(userID)).Result()
	if err != nil {
		return "", mapMiss(err)
	}
	return token, nil
}

func (c *Cache) RotateRefreshToken(ctx context.Context, userID, current, next string, ttl time.Duration) error {
	swapped, err := rotateScript.Run(ctx, c.client,
		[]string{c.keys.Refresh(userID)},
		current, next, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return err
	}
	if swapped != 1 {
		return cache.ErrTokenMismatch
	}
	return nil
}

func (c *Cache) DeleteRefreshToken(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.keys.Refresh(userID)).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func mapMiss(err error) error {
	if errors.Is(err, redis.Nil) {
		return cache.ErrMiss
	}
	return err
}
