package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bookly/internal/identity/cache"
	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/internal/identity/store"
	"github.com/aussiebroadwan/bookly/pkg/cryptox"
	"github.com/aussiebroadwan/bookly/pkg/idx"
	"github.com/aussiebroadwan/bookly/pkg/jwtx"
)

const (
	DefaultOperationTimeout = 5 * time.Second
	DefaultProfileTTL       = 24 * time.Hour

	msgDatabase = "Database error occurred!"
	msgCache    = "Session cache error occurred!"
	msgToken    = "Unable to issue tokens!"
)

var (
	ErrEmailExists        = domain.Conflict("Email already exists!")
	ErrUsernameExists     = domain.Conflict("Username already exists!")
	ErrUserNotFound       = domain.NotFound("User not found!")
	ErrInvalidPassword    = domain.Unauthorized("Invalid password!")
	ErrSamePassword       = domain.BadRequest("New password must be different from the old password!")
	ErrWrongOldPassword   = domain.Unauthorized("Old password is incorrect!")
	ErrInvalidToken       = domain.Unauthorized("Token is invalid or expired!")
	ErrRevokedToken       = domain.Unauthorized("Token has been revoked!")
	ErrNotRefreshToken    = domain.Unauthorized("Please, provide a valid refresh token!")
	ErrIdentifierRequired = domain.BadRequest("Provide either email or username!")
	ErrInvalidGender      = domain.BadRequest("Gender must be one of Male, Female or Other!")
)

// IdentityService owns the account and session flows. The store is the
// source of truth; the cache holds the profile snapshot and the single live
// refresh token per user.
type IdentityService struct {
	Store  store.Store
	Cache  cache.Cache
	Tokens *jwtx.Codec
	Hasher *cryptox.Hasher
	IDs    idx.Generator

	// ProfileTTL bounds how long a cached profile lives.
	ProfileTTL time.Duration

	// OperationTimeout bounds the store and cache work of a single flow.
	OperationTimeout time.Duration

	// RevokeSessionsOnPasswordChange drops the live refresh token when the
	// password changes.
	RevokeSessionsOnPasswordChange bool

	// Now overrides time.Now, mainly for tests.
	Now func() time.Time

	// usernameSuffix overrides the random username suffix in tests.
	usernameSuffix func() (string, error)
}

// TokenSet is what a successful sign-in or refresh hands back. Refresh is
// empty for users who have not finished their profile.
type TokenSet struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type Session struct {
	User  domain.Profile `json:"user"`
	Token TokenSet       `json:"token"`
}

func (s *IdentityService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.OperationTimeout
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *IdentityService) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	// Millisecond precision survives every driver round trip unchanged.
	return now().UTC().Truncate(time.Millisecond)
}

func (s *IdentityService) profileTTL() time.Duration {
	if s.ProfileTTL > 0 {
		return s.ProfileTTL
	}
	return DefaultProfileTTL
}

// cacheProfile overwrites the snapshot. Failure is fatal to the flow.
func (s *IdentityService) cacheProfile(ctx context.Context, u domain.User) (domain.Profile, error) {
	p := u.Profile()
	if err := s.Cache.SetProfile(ctx, p, s.profileTTL()); err != nil {
		return domain.Profile{}, cacheError(err)
	}
	return p, nil
}

func dbError(err error) error    { return domain.Internal(msgDatabase, err) }
func cacheError(err error) error { return domain.Internal(msgCache, err) }
func tokenError(err error) error { return domain.Internal(msgToken, err) }
