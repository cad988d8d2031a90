// Package memory is an in-process JournalWriter used in tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

var _ ports.JournalWriter = (*Journal)(nil)

type Entry struct {
	Owner string
	Tx    core.Transaction
}

// Journal records appended entries in memory.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
}

func New() *Journal {
	return &Journal{}
}

func (j *Journal) AppendEntry(_ context.Context, owner string, tx core.Transaction) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, Entry{Owner: owner, Tx: tx})
	return fmt.Sprintf("row %d", len(j.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}
