// Package storetest holds a behavioural suite every store driver must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/bookly/internal/identity/domain"
	"github.com/aussiebroadwan/bookly/internal/identity/store"
	"github.com/aussiebroadwan/bookly/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a migrated, empty store. It should register cleanup.
type Factory func(t *testing.T) store.Store

// Run exercises the Users repository and transaction semantics.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("UniqueEmail", func(t *testing.T) { testUniqueEmail(t, newStore(t)) })
	t.Run("UniqueUsername", func(t *testing.T) { testUniqueUsername(t, newStore(t)) })
	t.Run("NullUsernamesDoNotCollide", func(t *testing.T) { testNullUsernames(t, newStore(t)) })
	t.Run("Exists", func(t *testing.T) { testExists(t, newStore(t)) })
	t.Run("UpdateProfile", func(t *testing.T) { testUpdateProfile(t, newStore(t)) })
	t.Run("UpdatePasswordHash", func(t *testing.T) { testUpdatePasswordHash(t, newStore(t)) })
	t.Run("WithTxRollback", func(t *testing.T) { testWithTxRollback(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
}

var gen = idx.NewGenerator()

// NewUser returns a valid user with a fresh id.
func NewUser(email, username string) domain.User {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.User{
		ID:           gen.Next().String(),
		Name:         "Reader",
		Email:        email,
		Username:     username,
		PasswordHash: "$argon2id$v=19$m=8,t=1,p=1$c2FsdA$aGFzaA",
		Gender:       domain.GenderOther,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("a@x.com", "a_abc123")
	u.Bio = "likes books"
	require.NoError(t, s.Users().CreateUser(ctx, u))

	byID, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)
	require.Equal(t, u.Username, byID.Username)
	require.Equal(t, u.PasswordHash, byID.PasswordHash)
	require.Equal(t, domain.GenderOther, byID.Gender)
	require.Equal(t, "likes books", byID.Bio)
	require.False(t, byID.Setup)
	require.WithinDuration(t, u.CreatedAt, byID.CreatedAt, time.Millisecond)

	byEmail, err := s.Users().GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	byUsername, err := s.Users().GetUserByUsername(ctx, "a_abc123")
	require.NoError(t, err)
	require.Equal(t, u.ID, byUsername.ID)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Email lookups are exact.
	_, err = s.Users().GetUserByEmail(ctx, "A@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testUniqueEmail(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Users().CreateUser(ctx, NewUser("dup@x.com", "one")))

	err := s.Users().CreateUser(ctx, NewUser("dup@x.com", "two"))
	require.ErrorIs(t, err, store.ErrEmailTaken)
}

func testUniqueUsername(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Users().CreateUser(ctx, NewUser("one@x.com", "same")))

	err := s.Users().CreateUser(ctx, NewUser("two@x.com", "same"))
	require.ErrorIs(t, err, store.ErrUsernameTaken)

	other := NewUser("three@x.com", "other")
	require.NoError(t, s.Users().CreateUser(ctx, other))
	other.Username = "same"
	require.ErrorIs(t, s.Users().UpdateProfile(ctx, other), store.ErrUsernameTaken)
}

func testNullUsernames(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Users().CreateUser(ctx, NewUser("n1@x.com", "")))
	require.NoError(t, s.Users().CreateUser(ctx, NewUser("n2@x.com", "")))

	exists, err := s.Users().UsernameExists(ctx, "")
	require.NoError(t, err)
	require.False(t, exists)
}

func testExists(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Users().CreateUser(ctx, NewUser("e@x.com", "e_user")))

	ok, err := s.Users().EmailExists(ctx, "e@x.com")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Users().EmailExists(ctx, "nobody@x.com")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.Users().UsernameExists(ctx, "e_user")
	require.NoError(t, err)
	require.True(t, ok)
}

func testUpdateProfile(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("p@x.com", "p_user")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	u.Name = "Renamed"
	u.Username = "renamed"
	u.Gender = domain.GenderFemale
	u.Bio = "new bio"
	u.Setup = true
	u.UpdatedAt = u.UpdatedAt.Add(time.Minute)
	require.NoError(t, s.Users().UpdateProfile(ctx, u))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)
	require.Equal(t, "renamed", got.Username)
	require.Equal(t, domain.GenderFemale, got.Gender)
	require.Equal(t, "new bio", got.Bio)
	require.True(t, got.Setup)
	require.WithinDuration(t, u.UpdatedAt, got.UpdatedAt, time.Millisecond)

	// Clearing optional columns stores NULL and reads back empty.
	u.Gender = ""
	u.Setup = false
	require.NoError(t, s.Users().UpdateProfile(ctx, u))
	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, got.Gender)
	require.False(t, got.Setup)

	missing := NewUser("ghost@x.com", "ghost")
	require.ErrorIs(t, s.Users().UpdateProfile(ctx, missing), store.ErrNotFound)
}

func testUpdatePasswordHash(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("pw@x.com", "pw_user")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, "new-hash", time.Now()))

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)

	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", "x", time.Now()), store.ErrNotFound)
}

func testWithTxRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser("tx@x.com", "tx_user")
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, u)
	}))
	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
}
