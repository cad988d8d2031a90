package worker

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
)

func newTestWorker(t *testing.T) (*ExportWorker, *storage.SQLiteRepository, *memory.Journal) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	journal := memory.New()
	return NewExportWorker(repo, journal, 10), repo, journal
}

func addTx(t *testing.T, repo *storage.SQLiteRepository, owner string) core.Transaction {
	t.Helper()
	stored, err := repo.Add(context.Background(), owner, core.Transaction{
		Type:        core.Income,
		Description: "Salary",
		Amount:      core.Money{Cents: 10000},
		Date:        core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	return stored
}

func TestHandleEventExportsAdd(t *testing.T) {
	w, repo, journal := newTestWorker(t)
	ctx := context.Background()

	stored := addTx(t, repo, "u@example.com")

	msg := amqp.NewLedgerEventMessage("u@example.com", stored.ID, amqp.ActionAdd)
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	entries := journal.Entries()
	if len(entries) != 1 || entries[0].Owner != "u@example.com" || entries[0].Tx.ID != stored.ID {
		t.Fatalf("unexpected journal: %+v", entries)
	}

	// Marked exported: nothing pending anymore.
	pending, err := repo.PendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("PendingExports: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending exports, got %+v", pending)
	}
}

func TestHandleEventSkipsNonAdd(t *testing.T) {
	w, _, journal := newTestWorker(t)

	for _, action := range []string{amqp.ActionRemove, amqp.ActionReset} {
		msg := amqp.NewLedgerEventMessage("u@example.com", 1, action)
		if err := w.HandleEvent(context.Background(), msg); err != nil {
			t.Fatalf("HandleEvent(%s): %v", action, err)
		}
	}
	if len(journal.Entries()) != 0 {
		t.Fatal("non-add events must not write journal rows")
	}
}

func TestHandleEventMissingTransaction(t *testing.T) {
	w, _, journal := newTestWorker(t)

	msg := amqp.NewLedgerEventMessage("u@example.com", 404, amqp.ActionAdd)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("missing transaction should not error: %v", err)
	}
	if len(journal.Entries()) != 0 {
		t.Fatal("missing transaction must not write journal rows")
	}
}

func TestProcessPending(t *testing.T) {
	w, repo, journal := newTestWorker(t)
	ctx := context.Background()

	addTx(t, repo, "a@example.com")
	addTx(t, repo, "b@example.com")

	exported, err := w.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if exported != 2 || len(journal.Entries()) != 2 {
		t.Fatalf("exported = %d, journal = %d; want 2 and 2", exported, len(journal.Entries()))
	}

	// Second sweep finds nothing.
	exported, err = w.ProcessPending(ctx)
	if err != nil || exported != 0 {
		t.Fatalf("second sweep = %d, %v; want 0, nil", exported, err)
	}
}
