package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/bookly/internal/identity/cache"
	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/internal/identity/store"
	"github.com/aussiebroadwan/bookly/pkg/jwtx"
	"github.com/aussiebroadwan/bookly/pkg/slogx"
)

// Refresh rotates a refresh token. The presented token must verify, be of
// type refresh and still be the live one for its subject. The user is
// reloaded from the store, and the new refresh token replaces the old one
// only if nobody rotated it first.
func (s *IdentityService) Refresh(ctx context.Context, raw string) (Session, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Tokens.Verify(raw)
	if err != nil {
		if jwtx.IsExpired(err) {
			l.Info("refresh token expired")
		} else {
			l.Warn("refresh token rejected", "err", err)
		}
		return Session{}, ErrInvalidToken.Wrap(err)
	}
	if err := claims.ValidateType(jwtx.TypeRefresh); err != nil {
		return Session{}, ErrNotRefreshToken.Wrap(err)
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	userID := claims.Subject
	live, err := s.IsLiveRefreshToken(ctx, userID, raw)
	if err != nil {
		return Session{}, err
	}
	if !live {
		l.Warn("revoked refresh token presented", "user_id", userID)
		return Session{}, ErrRevokedToken
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrUserNotFound
	}
	if err != nil {
		return Session{}, dbError(err)
	}

	access, err := s.Tokens.Issue(user.ID, jwtx.TypeAccess)
	if err != nil {
		return Session{}, tokenError(err)
	}
	refresh, err := s.Tokens.Issue(user.ID, jwtx.TypeRefresh)
	if err != nil {
		return Session{}, tokenError(err)
	}

	ttl := s.Tokens.TTL(jwtx.TypeRefresh)
	err = s.Cache.RotateRefreshToken(ctx, user.ID, raw, refresh.Token, ttl)
	if errors.Is(err, cache.ErrTokenMismatch) {
		l.Warn("refresh token rotated concurrently", "user_id", userID)
		return Session{}, ErrRevokedToken
	}
	if err != nil {
		return Session{}, cacheError(err)
	}

	profile, err := s.cacheProfile(ctx, user)
	if err != nil {
		return Session{}, err
	}

	l.Info("refresh token rotated", "user_id", userID)
	return Session{
		User:  profile,
		Token: TokenSet{Access: access.Token, Refresh: refresh.Token},
	}, nil
}

// IsLiveRefreshToken reports whether raw is the refresh token currently
// recorded for userID. An absent record is simply not live.
func (s *IdentityService) IsLiveRefreshToken(ctx context.Context, userID, raw string) (bool, error) {
	stored, err := s.Cache.GetRefreshToken(ctx, userID)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, cacheError(err)
	}
	return stored == raw, nil
}

// SignOut forgets the cached profile and the live refresh token. It is
// idempotent. Access tokens stay valid until they expire.
func (s *IdentityService) SignOut(ctx context.Context, userID string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.Cache.DeleteRefreshToken(ctx, userID); err != nil {
		return cacheError(err)
	}
	if err := s.Cache.DeleteProfile(ctx, userID); err != nil {
		return cacheError(err)
	}

	slogx.FromContext(ctx).Info("user signed out", "user_id", userID)
	return nil
}

// CurrentUser reads the profile through the cache, repopulating it from the
// store on a miss.
func (s *IdentityService) CurrentUser(ctx context.Context, userID string) (domain.Profile, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	p, err := s.Cache.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		return domain.Profile{}, cacheError(err)
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Profile{}, ErrUserNotFound
	}
	if err != nil {
		return domain.Profile{}, dbError(err)
	}

	slogx.FromContext(ctx).Debug("profile cache miss, repopulated", "user_id", userID)
	return s.cacheProfile(ctx, user)
}
