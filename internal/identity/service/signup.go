package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/internal/identity/store"
	"github.com/aussiebroadwan/bookly/pkg/cryptox"
	"github.com/aussiebroadwan/bookly/pkg/slogx"
)

const (
	usernameSuffixLength = 6
	maxUsernameAttempts  = 10
	fallbackUsername     = "user"
)

var errUsernameExhausted = errors.New("no free username after retries")

type SignUpInput struct {
	Name     string
	Email    string
	Password string

	// Username is optional; one is derived from the email when empty.
	Username string
}

// SignUp creates an account. No tokens are issued; the caller signs in
// separately.
func (s *IdentityService) SignUp(ctx context.Context, in SignUpInput) (domain.Profile, error) {
	l := slogx.FromContext(ctx)
	ctx, cancel := s.bound(ctx)
	defer cancel()

	users := s.Store.Users()

	exists, err := users.EmailExists(ctx, in.Email)
	if err != nil {
		return domain.Profile{}, dbError(err)
	}
	if exists {
		return domain.Profile{}, ErrEmailExists
	}

	if in.Username != "" {
		taken, err := users.UsernameExists(ctx, in.Username)
		if err != nil {
			return domain.Profile{}, dbError(err)
		}
		if taken {
			return domain.Profile{}, ErrUsernameExists
		}
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.Profile{}, domain.Internal("Unable to secure password!", err)
	}

	now := s.now()
	user := domain.User{
		ID:           s.IDs.Next().String(),
		Name:         in.Name,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		Gender:       domain.GenderOther,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	generated := in.Username == ""
	for attempt := 1; ; attempt++ {
		if generated {
			user.Username, err = s.generateUsername(ctx, users, in.Email)
			if errors.Is(err, errUsernameExhausted) {
				return domain.Profile{}, domain.Internal("Unable to assign a username!", err)
			}
			if err != nil {
				return domain.Profile{}, dbError(err)
			}
		}

		err = users.CreateUser(ctx, user)
		if err == nil {
			break
		}

		switch {
		case errors.Is(err, store.ErrEmailTaken):
			return domain.Profile{}, ErrEmailExists.Wrap(err)
		case errors.Is(err, store.ErrUsernameTaken) && generated && attempt < maxUsernameAttempts:
			l.Debug("generated username collided on insert, retrying", "username", user.Username)
			continue
		case errors.Is(err, store.ErrUsernameTaken):
			return domain.Profile{}, ErrUsernameExists.Wrap(err)
		default:
			return domain.Profile{}, dbError(err)
		}
	}

	l.Info("user signed up", "user_id", user.ID, "username", user.Username)
	return user.Profile(), nil
}

// generateUsername picks "<local part>_<suffix>" and retries until the
// candidate is free.
func (s *IdentityService) generateUsername(ctx context.Context, users store.Users, email string) (string, error) {
	base := UsernameBase(email)
	for range maxUsernameAttempts {
		suffix, err := s.nextUsernameSuffix()
		if err != nil {
			return "", err
		}
		candidate := base + "_" + suffix

		taken, err := users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: base %q", errUsernameExhausted, base)
}

func (s *IdentityService) nextUsernameSuffix() (string, error) {
	if s.usernameSuffix != nil {
		return s.usernameSuffix()
	}
	return cryptox.RandomString(usernameSuffixLength, cryptox.LowerAlphanumeric)
}

// UsernameBase is the part of email before '@' and then before the first
// '.', cut so that base + "_" + suffix fits the username column.
func UsernameBase(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local, _, _ = strings.Cut(local, ".")
	local = strings.TrimSpace(local)
	if local == "" {
		return fallbackUsername
	}

	limit := domain.MaxUsernameLength - 1 - usernameSuffixLength
	if r := []rune(local); len(r) > limit {
		local = string(r[:limit])
	}
	return local
}
