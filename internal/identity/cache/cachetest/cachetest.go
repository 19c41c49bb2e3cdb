// Package cachetest holds a behavioural suite every cache driver must pass.
package cachetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/bookly/internal/identity/cache"
	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/stretchr/testify/require"
)

// Harness is a fresh cache plus a way to move its clock forward.
type Harness struct {
	Cache   cache.Cache
	Advance func(d time.Duration)
}

type Factory func(t *testing.T) Harness

func Run(t *testing.T, newCache Factory) {
	t.Run("Profile", func(t *testing.T) { testProfile(t, newCache(t)) })
	t.Run("ProfileExpires", func(t *testing.T) { testProfileExpires(t, newCache(t)) })
	t.Run("RefreshToken", func(t *testing.T) { testRefreshToken(t, newCache(t)) })
	t.Run("Rotate", func(t *testing.T) { testRotate(t, newCache(t)) })
	t.Run("ConcurrentRotate", func(t *testing.T) { testConcurrentRotate(t, newCache(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newCache(t).Cache.Ping(context.Background())) })
}

func profile(id string) domain.Profile {
	return domain.Profile{
		ID:        id,
		Name:      "Reader",
		Email:     id + "@x.com",
		Username:  "reader_" + id,
		Gender:    domain.GenderOther,
		CreatedAt: time.Unix(1700000000, 0).UTC(),
		UpdatedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func testProfile(t *testing.T, h Harness) {
	ctx := context.Background()
	c := h.Cache

	_, err := c.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, cache.ErrMiss)

	p := profile("u1")
	require.NoError(t, c.SetProfile(ctx, p, time.Hour))

	got, err := c.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, p, got)

	p.Name = "Changed"
	require.NoError(t, c.SetProfile(ctx, p, time.Hour))
	got, err = c.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Changed", got.Name)

	require.NoError(t, c.DeleteProfile(ctx, "u1"))
	require.NoError(t, c.DeleteProfile(ctx, "u1"), "delete is idempotent")
	_, err = c.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, cache.ErrMiss)
}

func testProfileExpires(t *testing.T, h Harness) {
	ctx := context.Background()
	require.NoError(t, h.Cache.SetProfile(ctx, profile("u2"), time.Minute))

	h.Advance(2 * time.Minute)

	_, err := h.Cache.GetProfile(ctx, "u2")
	require.ErrorIs(t, err, cache.ErrMiss)
}

func testRefreshToken(t *testing.T, h Harness) {
	ctx := context.Background()
	c := h.Cache

	_, err := c.GetRefreshToken(ctx, "u3")
	require.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, c.SetRefreshToken(ctx, "u3", "token-a", time.Hour))
	got, err := c.GetRefreshToken(ctx, "u3")
	require.NoError(t, err)
	require.Equal(t, "token-a", got)

	// A second set overwrites: only one live token per user.
	require.NoError(t, c.SetRefreshToken(ctx, "u3", "token-b", time.Hour))
	got, err = c.GetRefreshToken(ctx, "u3")
	require.NoError(t, err)
	require.Equal(t, "token-b", got)

	h.Advance(2 * time.Hour)
	_, err = c.GetRefreshToken(ctx, "u3")
	require.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, c.SetRefreshToken(ctx, "u3", "token-c", time.Hour))
	require.NoError(t, c.DeleteRefreshToken(ctx, "u3"))
	require.NoError(t, c.DeleteRefreshToken(ctx, "u3"))
	_, err = c.GetRefreshToken(ctx, "u3")
	require.ErrorIs(t, err, cache.ErrMiss)
}

func testRotate(t *testing.T, h Harness) {
	ctx := context.Background()
	c := h.Cache

	require.ErrorIs(t, c.RotateRefreshToken(ctx, "u4", "old", "new", time.Hour), cache.ErrTokenMismatch,
		"rotating an absent token must fail")

	require.NoError(t, c.SetRefreshToken(ctx, "u4", "old", time.Hour))
	require.NoError(t, c.RotateRefreshToken(ctx, "u4", "old", "new", time.Hour))

	got, err := c.GetRefreshToken(ctx, "u4")
	require.NoError(t, err)
	require.Equal(t, "new", got)

	require.ErrorIs(t, c.RotateRefreshToken(ctx, "u4", "old", "newer", time.Hour), cache.ErrTokenMismatch)
}

func testConcurrentRotate(t *testing.T, h Harness) {
	ctx := context.Background()
	c := h.Cache
	require.NoError(t, c.SetRefreshToken(ctx, "u5", "seed", time.Hour))

	const racers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.RotateRefreshToken(ctx, "u5", "seed", string(rune('a'+i)), time.Hour)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, cache.ErrTokenMismatch) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
}
