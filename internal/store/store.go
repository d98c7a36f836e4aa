// Package store provides crash-safe persistence for the engine's JSON
// documents. Every write goes to a temporary file that is flushed and then
// atomically renamed over the previous document, so readers observe either
// the old or the new complete document, never a partial one.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists one JSON document of type D with serialized
// read-modify-write semantics. The zero value of D is what a missing file
// reads as.
type Store[D any] struct {
	mu   sync.Mutex
	path string
}

// New creates a store backed by the given file path
func New[D any](path string) *Store[D] {
	return &Store[D]{path: path}
}

// Path returns the backing file path
func (s *Store[D]) Path() string {
	return s.path
}

// Read returns the current document. A missing file yields the zero document.
func (s *Store[D]) Read() (*D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *Store[D]) readLocked() (*D, error) {
	var doc D
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &doc, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return &doc, nil
}

// Update applies fn to the current document and persists the result
// atomically. Concurrent Update calls are serialized internally; fn must
// not block on anything that could call back into this store.
func (s *Store[D]) Update(fn func(doc *D) error) (*D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := s.writeLocked(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store[D]) writeLocked(doc *D) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to flush %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
