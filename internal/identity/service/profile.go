package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/internal/identity/store"
	"github.com/aussiebroadwan/bookly/pkg/slogx"
)

// ProfileUpdate replaces the editable profile fields. A nil Bio leaves the
// stored bio untouched; an empty Gender clears it.
type ProfileUpdate struct {
	Name     string
	Username string
	Gender   string
	Bio      *string
}

// UpdateProfile writes the new fields, recomputes Setup and refreshes the
// cached snapshot. Tokens are not touched.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (domain.Profile, error) {
	var gender domain.Gender
	if in.Gender != "" {
		g, ok := domain.ParseGender(in.Gender)
		if !ok {
			return domain.Profile{}, ErrInvalidGender
		}
		gender = g
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		users := tx.Users()

		var err error
		user, err = users.GetUserByID(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return dbError(err)
		}

		if in.Username != "" && in.Username != user.Username {
			taken, err := users.UsernameExists(ctx, in.Username)
			if err != nil {
				return dbError(err)
			}
			if taken {
				return ErrUsernameExists
			}
		}

		user.Name = in.Name
		user.Username = in.Username
		user.Gender = gender
		if in.Bio != nil {
			user.Bio = *in.Bio
		}
		user.Setup = user.IsComplete()
		user.UpdatedAt = s.now()

		err = users.UpdateProfile(ctx, user)
		switch {
		case errors.Is(err, store.ErrUsernameTaken):
			return ErrUsernameExists.Wrap(err)
		case errors.Is(err, store.ErrNotFound):
			return ErrUserNotFound
		case err != nil:
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		var de *domain.Error
		if !errors.As(err, &de) {
			err = dbError(err) // begin or commit failed
		}
		return domain.Profile{}, err
	}

	slogx.FromContext(ctx).Info("profile updated", "user_id", userID, "setup", user.Setup)
	return s.cacheProfile(ctx, user)
}

// ChangePassword swaps the password hash after re-verifying the old one and
// refreshes the cached snapshot. With RevokeSessionsOnPasswordChange the
// live refresh token is dropped too.
func (s *IdentityService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) (domain.Profile, error) {
	l := slogx.FromContext(ctx)

	if oldPassword == newPassword {
		return domain.Profile{}, ErrSamePassword
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Profile{}, ErrUserNotFound
	}
	if err != nil {
		return domain.Profile{}, dbError(err)
	}

	if !s.Hasher.Verify(oldPassword, user.PasswordHash) {
		l.Warn("password change rejected: wrong old password", "user_id", userID)
		return domain.Profile{}, ErrWrongOldPassword
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return domain.Profile{}, domain.Internal("Unable to secure password!", err)
	}

	user.PasswordHash = hash
	user.UpdatedAt = s.now()
	err = s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, user.UpdatedAt)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Profile{}, ErrUserNotFound
	}
	if err != nil {
		return domain.Profile{}, dbError(err)
	}

	profile, err := s.cacheProfile(ctx, user)
	if err != nil {
		return domain.Profile{}, err
	}

	if s.RevokeSessionsOnPasswordChange {
		if err := s.Cache.DeleteRefreshToken(ctx, user.ID); err != nil {
			return domain.Profile{}, cacheError(err)
		}
	}

	l.Info("password changed", "user_id", userID, "sessions_revoked", s.RevokeSessionsOnPasswordChange)
	return profile, nil
}
