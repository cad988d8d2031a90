// Package worker exports ledger entries from SQLite to the spreadsheet
// journal, driven by AMQP events with a polling backup path.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// ExportWorker moves not-yet-exported transactions into the journal.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	journal   sheets.JournalWriter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, journal sheets.JournalWriter, batchSize int) *ExportWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &ExportWorker{
		storage:   storage,
		journal:   journal,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single ledger event from the broker. Remove and
// reset events need no journal write; the journal is append-only.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	if msg.Action != amqp.ActionAdd {
		slog.InfoContext(ctx, "Skipping non-add ledger event",
			"owner", msg.Owner, "id", msg.ID, "action", msg.Action)
		return nil
	}

	return w.exportOne(ctx, msg.Owner, msg.ID)
}

// ProcessPending exports transactions the event path missed. Returns how
// many were exported.
func (w *ExportWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.storage.PendingExports(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending exports: %w", err)
	}

	exported := 0
	for _, p := range pending {
		if err := w.exportOne(ctx, p.Owner, p.ID); err != nil {
			slog.ErrorContext(ctx, "Pending export failed",
				"owner", p.Owner, "id", p.ID, "error", err)
			continue
		}
		exported++
	}
	return exported, nil
}

func (w *ExportWorker) exportOne(ctx context.Context, owner string, id int64) error {
	tx, err := w.storage.Transaction(ctx, owner, id)
	if errors.Is(err, sql.ErrNoRows) {
		// Removed before we got to it; nothing to journal.
		slog.InfoContext(ctx, "Transaction gone before export",
			"owner", owner, "id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	ref, err := w.journal.AppendEntry(ctx, owner, tx)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}

	if err := w.storage.MarkExported(ctx, owner, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}

	slog.InfoContext(ctx, "Exported transaction to journal",
		"owner", owner, "id", id, "ref", ref)
	return nil
}
