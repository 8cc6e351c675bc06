// internal/state/state.go
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// File is a mutex-guarded JSON document on disk. Every read-modify-
// write sequence against thresholds, alerts and actuator state goes
// through one of these, which is the serialization boundary between
// the HTTP handlers, the MQTT feed and the sampler loop.
type File[T any] struct {
	mu   sync.RWMutex
	path string
}

func NewFile[T any](path string) *File[T] {
	return &File[T]{path: path}
}

// Load reads the document, returning fallback when the file is absent
// or unreadable.
func (f *File[T]) Load(fallback T) T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loadLocked(fallback)
}

// Save replaces the document.
func (f *File[T]) Save(value T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked(value)
}

// Update applies fn to the current document under the write lock and
// persists the result.
func (f *File[T]) Update(fallback T, fn func(T) T) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value := fn(f.loadLocked(fallback))
	return value, f.saveLocked(value)
}

// SeedIfAbsent writes value only when no file exists yet.
func (f *File[T]) SeedIfAbsent(value T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(f.path); err == nil {
		return nil
	}
	return f.saveLocked(value)
}

func (f *File[T]) loadLocked(fallback T) T {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fallback
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return fallback
	}
	return value
}

func (f *File[T]) saveLocked(value T) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, append(payload, '\n'), 0o644)
}
