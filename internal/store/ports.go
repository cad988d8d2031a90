// Package store defines the persistence ports for ledgers, goals,
// preferences and identity records. Backends live in subpackages and in
// internal/storage.
package store

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

type (
	// TransactionStore owns the ordered transaction collection of each
	// identity. Implementations assign fresh monotonic IDs on Add and
	// treat Remove of an unknown ID as a silent no-op.
	TransactionStore interface {
		// Add persists tx for owner with a freshly assigned ID and
		// returns the stored record.
		Add(ctx context.Context, owner string, tx core.Transaction) (core.Transaction, error)

		// Remove deletes the transaction with the given ID. Missing IDs
		// are not an error.
		Remove(ctx context.Context, owner string, id int64) error

		// List returns all transactions sorted descending by date;
		// insertion order is stable for equal dates.
		List(ctx context.Context, owner string) ([]core.Transaction, error)

		// Clear empties the owner's collection.
		Clear(ctx context.Context, owner string) error
	}

	// GoalStore keeps the single savings target per identity.
	// A stored value of 0 means "no goal set".
	GoalStore interface {
		SetGoal(ctx context.Context, owner string, cents int64) error
		Goal(ctx context.Context, owner string) (int64, error)
	}

	// PrefStore keeps UI preferences, currently only the theme.
	PrefStore interface {
		SetTheme(ctx context.Context, owner string, theme string) error
		Theme(ctx context.Context, owner string) (string, error)
	}

	// UserStore keeps identity records keyed by email.
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		UserByEmail(ctx context.Context, email string) (core.User, error)

		// UpdateUser overwrites the record matching u.Email. The email
		// itself and the joined date never change after signup.
		UpdateUser(ctx context.Context, u core.User) error
	}
)
