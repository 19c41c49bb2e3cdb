package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/internal/identity/store"
	"github.com/aussiebroadwan/bookly/pkg/jwtx"
	"github.com/aussiebroadwan/bookly/pkg/slogx"
)

// SignInInput carries exactly one of Email or Username.
type SignInInput struct {
	Email    string
	Username string
	Password string
}

// SignIn verifies credentials, caches the profile and issues tokens. A
// refresh token is only issued, and recorded as live, once the profile is
// set up.
func (s *IdentityService) SignIn(ctx context.Context, in SignInInput) (Session, error) {
	l := slogx.FromContext(ctx)

	if (in.Email == "") == (in.Username == "") {
		return Session{}, ErrIdentifierRequired
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		user domain.User
		err  error
	)
	if in.Email != "" {
		user, err = s.Store.Users().GetUserByEmail(ctx, in.Email)
	} else {
		user, err = s.Store.Users().GetUserByUsername(ctx, in.Username)
	}
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrUserNotFound
	}
	if err != nil {
		return Session{}, dbError(err)
	}

	if !s.Hasher.Verify(in.Password, user.PasswordHash) {
		l.Warn("sign in rejected: bad password", "user_id", user.ID)
		return Session{}, ErrInvalidPassword
	}

	s.upgradeHash(ctx, user, in.Password)

	profile, err := s.cacheProfile(ctx, user)
	if err != nil {
		return Session{}, err
	}

	access, err := s.Tokens.Issue(user.ID, jwtx.TypeAccess)
	if err != nil {
		return Session{}, tokenError(err)
	}
	session := Session{User: profile, Token: TokenSet{Access: access.Token}}

	if user.Setup {
		refresh, err := s.Tokens.Issue(user.ID, jwtx.TypeRefresh)
		if err != nil {
			return Session{}, tokenError(err)
		}
		ttl := s.Tokens.TTL(jwtx.TypeRefresh)
		if err := s.Cache.SetRefreshToken(ctx, user.ID, refresh.Token, ttl); err != nil {
			return Session{}, cacheError(err)
		}
		session.Token.Refresh = refresh.Token
	}

	l.Info("user signed in", "user_id", user.ID, "refresh_issued", user.Setup)
	return session, nil
}

// upgradeHash re-hashes the password when the stored digest uses weaker
// parameters than the current Hasher. Failures only cost the upgrade.
func (s *IdentityService) upgradeHash(ctx context.Context, user domain.User, password string) {
	if !s.Hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	l := slogx.FromContext(ctx)

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		l.Warn("password rehash failed", "user_id", user.ID, "err", err)
		return
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, user.UpdatedAt); err != nil {
		l.Warn("storing rehashed password failed", "user_id", user.ID, "err", err)
		return
	}
	l.Info("password hash upgraded", "user_id", user.ID)
}
