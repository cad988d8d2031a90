package backend

import "fintrack/internal/store"

// Store is the unified persistence surface a backend must provide.
type Store interface {
	store.TransactionStore
	store.GoalStore
	store.PrefStore
	store.UserStore
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result holds the created backend and its optional cleanup.
type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Config holds the knobs for backend creation.
type Config struct {
	Type Type

	// kvfile specific
	DataDir string

	// sqlite specific
	SQLiteDBPath string
}

// Type selects the persistence backend.
type Type string

const (
	KVBackend     Type = "kv"
	SQLiteBackend Type = "sqlite"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case KVBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
