// Package storage implements the store ports on SQLite, the durable
// alternative to the kvfile backend. Also exposes the export bookkeeping
// the worker uses for the off-site Sheets journal.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"fintrack/internal/core"
	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ store.TransactionStore = (*SQLiteRepository)(nil)
	_ store.GoalStore        = (*SQLiteRepository)(nil)
	_ store.PrefStore        = (*SQLiteRepository)(nil)
	_ store.UserStore        = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// migrateSchema brings the ledger schema up to date from the embedded SQL
// files. It opens its own connection; the repository pool stays untouched.
func migrateSchema(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open schema connection: %w", err)
	}
	defer db.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("wrap sqlite connection: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Add stores the transaction with a millisecond-timestamp ID, bumping past
// collisions so the (owner, id) key stays unique.
func (r *SQLiteRepository) Add(ctx context.Context, owner string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id := time.Now().UnixMilli()
	for attempt := 0; attempt < 5; attempt++ {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO transactions (owner, id, type, description, amount_cents, tx_date)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			owner, id, string(tx.Type), tx.Description, tx.Amount.Cents, tx.Date.String())
		if err == nil {
			tx.ID = id
			slog.InfoContext(ctx, "Transaction saved",
				"owner", owner,
				"id", id,
				"type", tx.Type,
				"amount_cents", tx.Amount.Cents,
				"date", tx.Date.String())
			return tx, nil
		}
		if isUniqueViolation(err) {
			id++
			continue
		}
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return core.Transaction{}, errors.New("could not allocate transaction id")
}

// Remove deletes by ID. A missing ID deletes zero rows and is not an error.
func (r *SQLiteRepository) Remove(ctx context.Context, owner string, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, description, amount_cents, tx_date
		 FROM transactions
		 WHERE owner = ?
		 ORDER BY tx_date DESC, rowid ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Clear(ctx context.Context, owner string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE owner = ?`, owner)
	if err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	return nil
}

// Transaction fetches a single record by ID, for the export worker.
func (r *SQLiteRepository) Transaction(ctx context.Context, owner string, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, type, description, amount_cents, tx_date
		 FROM transactions WHERE owner = ? AND id = ?`, owner, id)
	return scanTransaction(row)
}

func (r *SQLiteRepository) SetGoal(ctx context.Context, owner string, cents int64) error {
	if cents < 0 {
		cents = 0
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (owner, amount_cents) VALUES (?, ?)
		 ON CONFLICT (owner) DO UPDATE SET amount_cents = excluded.amount_cents`,
		owner, cents)
	if err != nil {
		return fmt.Errorf("set goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Goal(ctx context.Context, owner string) (int64, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents FROM goals WHERE owner = ?`, owner).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get goal: %w", err)
	}
	if cents < 0 {
		return 0, nil
	}
	return cents, nil
}

func (r *SQLiteRepository) SetTheme(ctx context.Context, owner string, theme string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO prefs (owner, theme) VALUES (?, ?)
		 ON CONFLICT (owner) DO UPDATE SET theme = excluded.theme`,
		owner, theme)
	if err != nil {
		return fmt.Errorf("set theme: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Theme(ctx context.Context, owner string) (string, error) {
	var theme string
	err := r.db.QueryRowContext(ctx,
		`SELECT theme FROM prefs WHERE owner = ?`, owner).Scan(&theme)
	if errors.Is(err, sql.ErrNoRows) {
		return "light", nil
	}
	if err != nil {
		return "", fmt.Errorf("get theme: %w", err)
	}
	return theme, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, phone, joined_date, avatar)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(u.Email)), u.Name, u.PasswordHash,
		u.Phone, u.JoinedDate.String(), u.Avatar)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, password_hash = ?, phone = ?, avatar = ?
		 WHERE email = ?`,
		u.Name, u.PasswordHash, u.Phone, u.Avatar,
		strings.ToLower(strings.TrimSpace(u.Email)))
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	var joined string
	err := r.db.QueryRowContext(ctx,
		`SELECT email, name, password_hash, phone, joined_date, avatar
		 FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.Email, &u.Name, &u.PasswordHash, &u.Phone, &joined, &u.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	if d, err := core.ParseDate(joined); err == nil {
		u.JoinedDate = d
	}
	return u, nil
}

// PendingExport holds the key of a transaction not yet written to the
// off-site journal.
type PendingExport struct {
	Owner string
	ID    int64
}

// PendingExports returns up to limit transactions awaiting export. A backup
// path for events lost between service and worker.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner, id FROM transactions WHERE exported = 0
		 ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending exports: %w", err)
	}
	defer rows.Close()

	var out []PendingExport
	for rows.Next() {
		var p PendingExport
		if err := rows.Scan(&p.Owner, &p.ID); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkExported flags a transaction as written to the journal.
func (r *SQLiteRepository) MarkExported(ctx context.Context, owner string, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET exported = 1 WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx      core.Transaction
		typ     string
		dateStr string
	)
	err := row.Scan(&tx.ID, &typ, &tx.Description, &tx.Amount.Cents, &dateStr)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, err
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TransactionType(typ)
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	tx.Date = date
	return tx, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
