package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aussiebroadwan/bookly/internal/identity/domain"
)

var (
	// ErrMiss is returned when a key is absent or expired.
	ErrMiss = errors.New("cache: miss")

	// ErrTokenMismatch is returned by RotateRefreshToken when the stored
	// refresh token is no longer the one being rotated.
	ErrTokenMismatch = errors.New("cache: refresh token mismatch")
)

// Cache is the session cache: a profile snapshot and the single live refresh
// token per user, both with a TTL. Drivers (redis, memory) implement it.
type Cache interface {
	SetProfile(ctx context.Context, p domain.Profile, ttl time.Duration) error
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	DeleteProfile(ctx context.Context, userID string) error

	SetRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, userID string) (string, error)

	// RotateRefreshToken replaces current with next atomically. It fails
	// with ErrTokenMismatch when current is not the stored value.
	RotateRefreshToken(ctx context.Context, userID, current, next string, ttl time.Duration) error

	// DeleteRefreshToken is idempotent.
	DeleteRefreshToken(ctx context.Context, userID string) error

	Ping(ctx context.Context) error
	Close() error
}

// Keys builds the key names shared by every driver.
type Keys struct {
	Prefix string
}

func (k Keys) Profile(userID string) string { return k.Prefix + "profile:" + userID }
func (k Keys) Refresh(userID string) string { return k.Prefix + "refresh:" + userID }

// EncodeProfile is the wire form of a cached profile.
func EncodeProfile(p domain.Profile) ([]byte, error) {
	return json.Marshal(p)
}

func DecodeProfile(b []byte) (domain.Profile, error) {
	var p domain.Profile
	err := json.Unmarshal(b, &p)
	return p, err
}
