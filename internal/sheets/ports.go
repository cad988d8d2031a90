// Package sheets defines the outbound port for exporting ledger entries to
// a spreadsheet journal. The Google adapter lives in the google subpackage;
// the memory adapter backs tests.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// JournalWriter appends ledger entries to an external journal.
type JournalWriter interface {
	// AppendEntry writes one transaction row and returns a reference to
	// the written row.
	AppendEntry(ctx context.Context, owner string, tx core.Transaction) (rowRef string, err error)
}
