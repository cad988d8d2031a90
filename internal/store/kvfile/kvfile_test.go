package kvfile

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mustAdd(t *testing.T, s *Store, owner string, typ core.TransactionType, cents int64, date string) core.Transaction {
	t.Helper()
	d, err := core.ParseDate(date)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", date, err)
	}
	tx, err := s.Add(context.Background(), owner, core.Transaction{
		Type:        typ,
		Description: "test",
		Amount:      core.Money{Cents: cents},
		Date:        d,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return tx
}

func TestAddAssignsUniqueMonotonicIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustAdd(t, s, "u@example.com", core.Income, 100, "2024-01-01")
	b := mustAdd(t, s, "u@example.com", core.Expense, 50, "2024-01-02")
	if a.ID == 0 || b.ID <= a.ID {
		t.Fatalf("IDs not monotonic: %d then %d", a.ID, b.ID)
	}

	txs, err := s.List(ctx, "u@example.com")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(context.Background(), "u@example.com", core.Transaction{
		Type:        "transfer",
		Description: "bad",
		Amount:      core.Money{Cents: 1},
		Date:        core.NewDate(2024, 1, 1),
	})
	if !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestListSortedDescendingByDate(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "u@example.com", core.Income, 100, "2024-01-10")
	mustAdd(t, s, "u@example.com", core.Income, 200, "2024-03-05")
	first := mustAdd(t, s, "u@example.com", core.Income, 300, "2024-02-01")
	second := mustAdd(t, s, "u@example.com", core.Income, 400, "2024-02-01")

	txs, err := s.List(context.Background(), "u@example.com")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	dates := []string{"2024-03-05", "2024-02-01", "2024-02-01", "2024-01-10"}
	for i, want := range dates {
		if txs[i].Date.String() != want {
			t.Fatalf("position %d: got %s, want %s", i, txs[i].Date, want)
		}
	}
	// Equal dates keep insertion order.
	if txs[1].ID != first.ID || txs[2].ID != second.ID {
		t.Fatalf("equal-date ordering not stable: %d, %d", txs[1].ID, txs[2].ID)
	}
}

func TestRemoveMissingIsNoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	kept := mustAdd(t, s, "u@example.com", core.Income, 100, "2024-01-01")

	if err := s.Remove(ctx, "u@example.com", 99999); err != nil {
		t.Fatalf("Remove of missing id should be a no-op, got %v", err)
	}
	txs, _ := s.List(ctx, "u@example.com")
	if len(txs) != 1 || txs[0].ID != kept.ID {
		t.Fatalf("unexpected transactions after no-op remove: %+v", txs)
	}

	if err := s.Remove(ctx, "u@example.com", kept.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	txs, _ = s.List(ctx, "u@example.com")
	if len(txs) != 0 {
		t.Fatalf("expected empty ledger, got %d", len(txs))
	}
}

func TestPersistenceSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	added := mustAdd(t, s1, "u@example.com", core.Expense, 4000, "2024-01-20")
	if err := s1.SetGoal(ctx, "u@example.com", 10000); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	if err := s1.SetTheme(ctx, "u@example.com", "dark"); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}

	s2, err := New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	txs, err := s2.List(ctx, "u@example.com")
	if err != nil {
		t.Fatalf("List after reopen: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != added.ID || txs[0].Amount.Cents != 4000 {
		t.Fatalf("ledger not persisted: %+v", txs)
	}
	if goal, _ := s2.Goal(ctx, "u@example.com"); goal != 10000 {
		t.Fatalf("goal not persisted: %d", goal)
	}
	if theme, _ := s2.Theme(ctx, "u@example.com"); theme != "dark" {
		t.Fatalf("theme not persisted: %q", theme)
	}
}

func TestClearAndGoalClamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, "u@example.com", core.Income, 100, "2024-01-01")
	mustAdd(t, s, "u@example.com", core.Expense, 50, "2024-01-02")

	if err := s.Clear(ctx, "u@example.com"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	txs, _ := s.List(ctx, "u@example.com")
	if len(txs) != 0 {
		t.Fatalf("expected empty ledger after clear, got %d", len(txs))
	}

	if err := s.SetGoal(ctx, "u@example.com", -500); err != nil {
		t.Fatalf("SetGoal: %v", err)
	}
	if goal, _ := s.Goal(ctx, "u@example.com"); goal != 0 {
		t.Fatalf("negative goal should clamp to 0, got %d", goal)
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, "a@example.com", core.Income, 100, "2024-01-01")
	mustAdd(t, s, "b@example.com", core.Income, 200, "2024-01-01")

	a, _ := s.List(ctx, "a@example.com")
	b, _ := s.List(ctx, "b@example.com")
	if len(a) != 1 || len(b) != 1 || a[0].Amount.Cents != 100 || b[0].Amount.Cents != 200 {
		t.Fatalf("owner ledgers not isolated: a=%+v b=%+v", a, b)
	}
}

func TestUserStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := core.User{
		Name:         "Test User",
		Email:        "user@example.com",
		PasswordHash: "$2a$10$fakehash",
		JoinedDate:   core.NewDate(2024, 1, 1),
	}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, u); !errors.Is(err, store.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	got, err := s.UserByEmail(ctx, "USER@example.com")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if got.Name != u.Name || got.PasswordHash != u.PasswordHash {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := s.UserByEmail(ctx, "missing@example.com"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	got.Name = "Renamed"
	got.Phone = "+91 11111 22222"
	got.Avatar = "avatar.png"
	if err := s.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	updated, err := s.UserByEmail(ctx, u.Email)
	if err != nil {
		t.Fatalf("UserByEmail after update: %v", err)
	}
	if updated.Name != "Renamed" || updated.Phone != "+91 11111 22222" || updated.Avatar != "avatar.png" {
		t.Fatalf("update not persisted: %+v", updated)
	}
	if updated.JoinedDate.String() != u.JoinedDate.String() {
		t.Fatalf("joined date must not change: %s", updated.JoinedDate)
	}

	missing := got
	missing.Email = "missing@example.com"
	if err := s.UpdateUser(ctx, missing); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on update, got %v", err)
	}
}
