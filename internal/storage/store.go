// internal/storage/store.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"basin-gateway/internal/config"
	"basin-gateway/internal/data"
)

// ErrBackendUnavailable marks a storage engine that cannot be reached
// or is missing required credentials at init time.
var ErrBackendUnavailable = errors.New("storage backend unavailable")

// Info describes a backend for the diagnostics endpoint. Reachability
// problems are reported through OK, never as an error.
type Info struct {
	Backend string `json:"backend"`
	Engine  string `json:"engine"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Note    string `json:"note,omitempty"`
}

// Store is the uniform contract for metric history persistence.
type Store interface {
	// Init is idempotent: it creates schema/files if absent and seeds
	// the initial history only when the engine reports zero rows.
	Init(ctx context.Context) error
	// GetHistory returns up to limit most recent samples in ascending
	// timestamp order. limit <= 0 means the backend's default limit.
	GetHistory(ctx context.Context, limit int) ([]data.Sample, error)
	// GetLatest returns the most recent sample, or nil when the
	// history is empty.
	GetLatest(ctx context.Context) (*data.Sample, error)
	// AddMetric upserts a sample keyed by timestamp and applies the
	// backend's history-trimming policy.
	AddMetric(ctx context.Context, sample data.Sample) error
	Info(ctx context.Context) Info
}

// SeedFunc supplies the history written into an empty backend.
type SeedFunc func() []data.Sample

// Open selects and initializes the configured backend. When init fails
// and strict mode is off, it falls back to the flat-file backend and
// annotates the handle so the diagnostics endpoint can surface the
// downgrade. In strict mode the failure is returned as-is.
func Open(ctx context.Context, cfg *config.Config, seed SeedFunc) (Store, error) {
	store := build(cfg.Storage.Backend, cfg, seed)
	if err := store.Init(ctx); err != nil {
		if cfg.Storage.Strict {
			return nil, err
		}
		log.Printf("Backend %q unavailable, falling back to file store: %v", cfg.Storage.Backend, err)
		fallback := newFileStore(filepath.Join(cfg.Storage.Dir, "metrics.json"), cfg.Metrics.HistoryLimit, seed)
		if ferr := fallback.Init(ctx); ferr != nil {
			return nil, ferr
		}
		return &notedStore{Store: fallback, note: fmt.Sprintf("Fallback to file: %v", err)}, nil
	}
	return store, nil
}

func build(backend string, cfg *config.Config, seed SeedFunc) Store {
	limit := cfg.Metrics.HistoryLimit
	switch backend {
	case "sqlite":
		path := cfg.Sqlite.Path
		if path == "" {
			path = filepath.Join(cfg.Storage.Dir, "metrics.sqlite")
		}
		return newSqliteStore(path, limit, seed)
	case "postgres":
		return newPostgresStore(cfg, limit, seed)
	case "influx":
		return newInfluxStore(cfg, limit)
	default:
		return newFileStore(filepath.Join(cfg.Storage.Dir, "metrics.json"), limit, seed)
	}
}

// notedStore carries the human-readable fallback note on top of the
// wrapped store's own diagnostics.
type notedStore struct {
	Store
	note string
}

func (s *notedStore) Info(ctx context.Context) Info {
	info := s.Store.Info(ctx)
	info.Note = s.note
	return info
}

func defaultLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}
