// Package kvfile implements the store ports on top of per-owner JSON
// documents. Every mutation rewrites the owner's document as one unit, the
// same full-collection-overwrite semantics a browser localStorage client has:
// no merging, last writer wins.
package kvfile

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type document struct {
	Transactions []record `json:"transactions"`
	GoalCents    int64    `json:"goal_cents"`
	Theme        string   `json:"theme,omitempty"`
}

type record struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"`
}

type userRecord struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Phone        string `json:"phone,omitempty"`
	JoinedDate   string `json:"joined_date"`
	Avatar       string `json:"avatar,omitempty"`
}

// Store persists ledgers under dir, one JSON file per owner plus a shared
// users file. A single mutex serializes all access; two processes pointing
// at the same directory can still clobber each other, which mirrors the
// accepted two-tabs limitation of the storage model.
type Store struct {
	mu     sync.Mutex
	dir    string
	lastID int64
}

var (
	_ store.TransactionStore = (*Store)(nil)
	_ store.GoalStore        = (*Store)(nil)
	_ store.PrefStore        = (*Store)(nil)
	_ store.UserStore        = (*Store)(nil)
)

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// nextID returns the current time in milliseconds, bumped past the previous
// ID when two adds land in the same tick so IDs stay unique and monotonic.
func (s *Store) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Store) Add(_ context.Context, owner string, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(owner)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = s.nextID()
	doc.Transactions = append(doc.Transactions, toRecord(tx))
	if err := s.persist(owner, doc); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) Remove(_ context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(owner)
	if err != nil {
		return err
	}
	kept := doc.Transactions[:0]
	for _, r := range doc.Transactions {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	doc.Transactions = kept
	return s.persist(owner, doc)
}

func (s *Store) List(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(owner)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(doc.Transactions))
	for _, r := range doc.Transactions {
		tx, err := fromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("corrupt record %d for %s: %w", r.ID, owner, err)
		}
		out = append(out, tx)
	}
	// Descending by date; SliceStable keeps insertion order for equal dates.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out, nil
}

func (s *Store) Clear(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(owner)
	if err != nil {
		return err
	}
	doc.Transactions = nil
	return s.persist(owner, doc)
}

func (s *Store) SetGoal(_ context.Context, owner string, cents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(owner)
	if err != nil {
		return err
	}
	if cents < 0 {
		cents = 0
	}
	doc.GoalCents = cents
	return s.persist(owner, doc)
}

func (s *Store) Goal(_ context.Context, owner string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(owner)
	if err != nil {
		return 0, err
	}
	if doc.GoalCents < 0 {
		return 0, nil
	}
	return doc.GoalCents, nil
}

func (s *Store) SetTheme(_ context.Context, owner string, theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(owner)
	if err != nil {
		return err
	}
	doc.Theme = theme
	return s.persist(owner, doc)
}

func (s *Store) Theme(_ context.Context, owner string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(owner)
	if err != nil {
		return "", err
	}
	if doc.Theme == "" {
		return "light", nil
	}
	return doc.Theme, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	key := strings.ToLower(strings.TrimSpace(u.Email))
	if _, exists := users[key]; exists {
		return store.ErrUserExists
	}
	users[key] = userRecord{
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Phone:        u.Phone,
		JoinedDate:   u.JoinedDate.String(),
		Avatar:       u.Avatar,
	}
	return s.persistUsers(users)
}

func (s *Store) UpdateUser(_ context.Context, u core.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	key := strings.ToLower(strings.TrimSpace(u.Email))
	existing, ok := users[key]
	if !ok {
		return store.ErrUserNotFound
	}
	existing.Name = u.Name
	existing.PasswordHash = u.PasswordHash
	existing.Phone = u.Phone
	existing.Avatar = u.Avatar
	users[key] = existing
	return s.persistUsers(users)
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return core.User{}, err
	}
	r, ok := users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return core.User{}, store.ErrUserNotFound
	}
	joined, err := core.ParseDate(r.JoinedDate)
	if err != nil {
		joined = core.Date{}
	}
	return core.User{
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Phone:        r.Phone,
		JoinedDate:   joined,
		Avatar:       r.Avatar,
	}, nil
}

func (s *Store) load(owner string) (*document, error) {
	data, err := os.ReadFile(s.ownerPath(owner))
	if os.IsNotExist(err) {
		return &document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger document: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode ledger document: %w", err)
	}
	for _, r := range doc.Transactions {
		if r.ID > s.lastID {
			s.lastID = r.ID
		}
	}
	return &doc, nil
}

// persist rewrites the owner's whole document. Write-to-temp plus rename
// keeps a crash from leaving a half-written file behind.
func (s *Store) persist(owner string, doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger document: %w", err)
	}
	path := s.ownerPath(owner)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write ledger document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace ledger document: %w", err)
	}
	return nil
}

func (s *Store) loadUsers() (map[string]userRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, "users.json"))
	if os.IsNotExist(err) {
		return map[string]userRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	users := map[string]userRecord{}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode users file: %w", err)
	}
	return users, nil
}

func (s *Store) persistUsers(users map[string]userRecord) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users file: %w", err)
	}
	path := filepath.Join(s.dir, "users.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write users file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *Store) ownerPath(owner string) string {
	return filepath.Join(s.dir, ownerFileName(owner))
}

// ownerFileName turns an owner key (usually an email) into a safe file name.
// Unsafe runes become underscores; a short hash suffix keeps distinct owners
// from colliding after sanitization.
func ownerFileName(owner string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, owner)
	h := fnv.New32a()
	h.Write([]byte(owner))
	return fmt.Sprintf("%s-%08x.json", safe, h.Sum32())
}

func toRecord(tx core.Transaction) record {
	return record{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Description: tx.Description,
		AmountCents: tx.Amount.Cents,
		Date:        tx.Date.String(),
	}
}

func fromRecord(r record) (core.Transaction, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          r.ID,
		Type:        core.TransactionType(r.Type),
		Description: r.Description,
		Amount:      core.Money{Cents: r.AmountCents},
		Date:        date,
	}, nil
}
