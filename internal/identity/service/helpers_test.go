package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/bookly/internal/identity/cache"
	"github.com/aussiebroadwan/bookly/internal/identity/cache/drivers/memory"
	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/internal/identity/store"
	"github.com/aussiebroadwan/bookly/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/bookly/pkg/cryptox"
	"github.com/aussiebroadwan/bookly/pkg/idx"
	"github.com/aussiebroadwan/bookly/pkg/jwtx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errCacheDown = errors.New("cache down")

// faultyCache fails the named operations with errCacheDown.
type faultyCache struct {
	cache.Cache
	fail map[string]bool
}

func (f *faultyCache) SetProfile(ctx context.Context, p domain.Profile, ttl time.Duration) error {
	if f.fail["SetProfile"] {
		return errCacheDown
	}
	return f.Cache.SetProfile(ctx, p, ttl)
}

func (f *faultyCache) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if f.fail["GetProfile"] {
		return domain.Profile{}, errCacheDown
	}
	return f.Cache.GetProfile(ctx, userID)
}

func (f *faultyCache) SetRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	if f.fail["SetRefreshToken"] {
		return errCacheDown
	}
	return f.Cache.SetRefreshToken(ctx, userID, token, ttl)
}

func (f *faultyCache) RotateRefreshToken(ctx context.Context, userID, current, next string, ttl time.Duration) error {
	if f.fail["RotateRefreshToken"] {
		return errCacheDown
	}
	return f.Cache.RotateRefreshToken(ctx, userID, current, next, ttl)
}

func (f *faultyCache) DeleteRefreshToken(ctx context.Context, userID string) error {
	if f.fail["DeleteRefreshToken"] {
		return errCacheDown
	}
	return f.Cache.DeleteRefreshToken(ctx, userID)
}

type fixture struct {
	svc   *IdentityService
	store store.Store
	cache *faultyCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens, err := jwtx.NewCodec(jwtx.CodecConfig{
		Secret:    "service-test-secret",
		Algorithm: jwtx.AlgorithmHS256,
		Issuer:    "bookly",
	})
	require.NoError(t, err)

	hasher, err := cryptox.NewHasher(cryptox.HasherConfig{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		BcryptCost:  bcrypt.MinCost,
	})
	require.NoError(t, err)

	fc := &faultyCache{Cache: memory.New(), fail: map[string]bool{}}

	return &fixture{
		svc: &IdentityService{
			Store:                          st,
			Cache:                          fc,
			Tokens:                         tokens,
			Hasher:                         hasher,
			IDs:                            idx.NewGenerator(),
			ProfileTTL:                     time.Hour,
			RevokeSessionsOnPasswordChange: true,
		},
		store: st,
		cache: fc,
	}
}

func (f *fixture) signUp(t *testing.T, name, email, password string) domain.Profile {
	t.Helper()
	p, err := f.svc.SignUp(context.Background(), SignUpInput{Name: name, Email: email, Password: password})
	require.NoError(t, err)
	return p
}

// completeProfile signs up a user whose profile is already set up.
func (f *fixture) completeProfile(t *testing.T, email, username, password string) domain.Profile {
	t.Helper()
	p := f.signUp(t, "Reader", email, password)
	p2, err := f.svc.UpdateProfile(context.Background(), p.ID, ProfileUpdate{
		Name:     "Reader",
		Username: username,
		Gender:   "Other",
	})
	require.NoError(t, err)
	require.True(t, p2.Setup)
	return p2
}

func requireKind(t *testing.T, err error, kind domain.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, domain.KindOf(err), "err: %v", err)
}

// requireSameProfile compares profiles with instant equality for the
// timestamps, since drivers and codecs may hand back different locations.
func requireSameProfile(t *testing.T, want, got domain.Profile) {
	t.Helper()
	require.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at: want %v, got %v", want.CreatedAt, got.CreatedAt)
	require.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at: want %v, got %v", want.UpdatedAt, got.UpdatedAt)
	want.CreatedAt, got.CreatedAt = time.Time{}, time.Time{}
	want.UpdatedAt, got.UpdatedAt = time.Time{}, time.Time{}
	require.Equal(t, want, got)
}
