// internal/storage/file.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"basin-gateway/internal/data"
)

// fileStore keeps the history in a bounded in-memory buffer and writes
// it through to a JSON file on every mutation. It is the zero-service
// fallback backend: no external engine, no credentials.
type fileStore struct {
	mu           sync.RWMutex
	path         string
	buffer       []data.Sample
	historyLimit int
	seed         SeedFunc
}

func newFileStore(path string, historyLimit int, seed SeedFunc) *fileStore {
	return &fileStore{
		path:         path,
		historyLimit: historyLimit,
		seed:         seed,
	}
}

func (s *fileStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	raw, err := os.ReadFile(s.path)
	if err == nil {
		var history []data.Sample
		if jerr := json.Unmarshal(raw, &history); jerr == nil {
			s.buffer = history
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if len(s.buffer) == 0 && s.seed != nil {
		s.buffer = s.seed()
	}
	return s.flushLocked()
}

func (s *fileStore) GetHistory(ctx context.Context, limit int) ([]data.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit = defaultLimit(limit, s.historyLimit)
	if limit <= 0 || limit > len(s.buffer) {
		limit = len(s.buffer)
	}
	result := make([]data.Sample, limit)
	copy(result, s.buffer[len(s.buffer)-limit:])
	return result, nil
}

func (s *fileStore) GetLatest(ctx context.Context) (*data.Sample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.buffer) == 0 {
		return nil, nil
	}
	latest := s.buffer[len(s.buffer)-1]
	return &latest, nil
}

func (s *fileStore) AddMetric(ctx context.Context, sample data.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.buffer {
		if s.buffer[i].Timestamp.Equal(sample.Timestamp) {
			s.buffer[i] = sample
			replaced = true
			break
		}
	}
	if !replaced {
		s.buffer = append(s.buffer, sample)
	}
	if s.historyLimit > 0 && len(s.buffer) > s.historyLimit {
		s.buffer = s.buffer[len(s.buffer)-s.historyLimit:]
	}
	return s.flushLocked()
}

func (s *fileStore) Info(ctx context.Context) Info {
	return Info{
		Backend: "file",
		Engine:  "Local JSON",
		OK:      true,
		Message: fmt.Sprintf("Storage file: %s", s.path),
	}
}

func (s *fileStore) flushLocked() error {
	payload, err := json.MarshalIndent(s.buffer, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, append(payload, '\n'), 0o644)
}
