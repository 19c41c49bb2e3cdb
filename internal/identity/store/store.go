package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/bookly/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrEmailTaken    = errors.New("store: email already taken")
	ErrUsernameTaken = errors.New("store: username already taken")
)

// Store is the root data access interface. Concrete drivers (postgres,
// sqlite) implement it. Sub-repositories hang off it so a Tx can hand out
// the same repos bound to the transaction.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction. The transaction is committed
	// when fn returns nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Nested transactions are not supported.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches the email exactly.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	// CreateUser inserts a new user. The id and timestamps come from the
	// caller. Returns ErrEmailTaken or ErrUsernameTaken on a unique violation.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile writes name, username, gender, bio, setup and
	// updated_at for u.ID. Returns ErrNotFound when no row matched.
	UpdateProfile(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets password_hash and updated_at.
	UpdatePasswordHash(ctx context.Context, userID, hash string, updatedAt time.Time) error
}
