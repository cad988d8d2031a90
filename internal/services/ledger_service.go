// Package services orchestrates the ledger across storage, the event
// broker and the in-process cache.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/core"
)

// EventPublisher pushes ledger change notifications to the broker.
// *amqp.Client satisfies it; a nil publisher disables eventing.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, owner string, id int64, action string) error
}

// LedgerService owns the transaction collection, the savings goal and the
// derived figures for each identity. Writes go to storage first; event
// publishing is best-effort and never fails a request.
type LedgerService struct {
	store     backend.Store
	publisher EventPublisher
	txCache   cache.Cache[[]core.Transaction]
}

func NewLedgerService(store backend.Store, publisher EventPublisher, txCache cache.Cache[[]core.Transaction]) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		txCache:   txCache,
	}
}

// AddTransaction validates and persists a transaction, returning the stored
// record with its assigned ID.
func (s *LedgerService) AddTransaction(ctx context.Context, owner string, tx core.Transaction) (core.Transaction, error) {
	stored, err := s.store.Add(ctx, owner, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	s.invalidate(owner)
	s.publish(ctx, owner, stored.ID, amqp.ActionAdd)
	return stored, nil
}

// RemoveTransaction deletes a transaction by ID. Unknown IDs are a no-op.
func (s *LedgerService) RemoveTransaction(ctx context.Context, owner string, id int64) error {
	if err := s.store.Remove(ctx, owner, id); err != nil {
		return fmt.Errorf("remove transaction: %w", err)
	}

	s.invalidate(owner)
	s.publish(ctx, owner, id, amqp.ActionRemove)
	return nil
}

// Transactions returns the owner's ledger, newest first.
func (s *LedgerService) Transactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	if s.txCache != nil {
		if txs, ok := s.txCache.Get(owner); ok {
			return txs, nil
		}
	}

	txs, err := s.store.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if s.txCache != nil {
		s.txCache.Set(owner, txs)
	}
	return txs, nil
}

// Reset wipes the owner's ledger and clears the savings goal.
func (s *LedgerService) Reset(ctx context.Context, owner string) error {
	if err := s.store.Clear(ctx, owner); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if err := s.store.SetGoal(ctx, owner, 0); err != nil {
		return fmt.Errorf("clear goal: %w", err)
	}

	s.invalidate(owner)
	s.publish(ctx, owner, 0, amqp.ActionReset)
	return nil
}

// SetGoal stores the savings target in cents.
func (s *LedgerService) SetGoal(ctx context.Context, owner string, cents int64) error {
	if err := s.store.SetGoal(ctx, owner, cents); err != nil {
		return fmt.Errorf("set goal: %w", err)
	}
	return nil
}

// Goal returns the savings target in cents, 0 when unset.
func (s *LedgerService) Goal(ctx context.Context, owner string) (int64, error) {
	cents, err := s.store.Goal(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("read goal: %w", err)
	}
	return cents, nil
}

// SetTheme stores the UI theme preference.
func (s *LedgerService) SetTheme(ctx context.Context, owner, theme string) error {
	if err := s.store.SetTheme(ctx, owner, theme); err != nil {
		return fmt.Errorf("set theme: %w", err)
	}
	return nil
}

// Theme returns the stored UI theme, defaulting to light.
func (s *LedgerService) Theme(ctx context.Context, owner string) (string, error) {
	theme, err := s.store.Theme(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("read theme: %w", err)
	}
	return theme, nil
}

// Summary computes income, expense and balance totals over the ledger.
func (s *LedgerService) Summary(ctx context.Context, owner string) (core.Summary, error) {
	txs, err := s.Transactions(ctx, owner)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(txs), nil
}

func (s *LedgerService) invalidate(owner string) {
	if s.txCache != nil {
		s.txCache.Delete(owner)
	}
}

func (s *LedgerService) publish(ctx context.Context, owner string, id int64, action string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, owner, id, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"owner", owner, "id", id, "action", action, "error", err)
	}
}
