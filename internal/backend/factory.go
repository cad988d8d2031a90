// Package backend wires a persistence backend from configuration: either
// the kvfile document store or the SQLite repository.
package backend

import (
	"fmt"
	"log/slog"

	"fintrack/internal/storage"
	"fintrack/internal/store/kvfile"
)

type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

func (f *Factory) Create(cfg Config) (*Result, error) {
	if !cfg.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}

	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: repo, Cleanup: repo.Close}, nil

	case KVBackend:
		dir := cfg.DataDir
		if dir == "" {
			dir = "data"
		}
		kv, err := kvfile.New(dir)
		if err != nil {
			return nil, fmt.Errorf("initialize kvfile store: %w", err)
		}
		f.logger.Info("Initialized kvfile backend", "data_dir", dir)
		return &Result{Store: kv}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
