package memory

import (
	"context"
	"os"
	"sync"

	"cattlevalue/internal/core"
	"cattlevalue/internal/herd"
)

// Store keeps the herd blob in process memory, the way a browser keeps it
// under one local storage key.
type Store struct {
	mu   sync.Mutex
	blob []byte
}

var _ herd.Repository = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewFromFile seeds the store with a blob read from path. A missing or
// unreadable file leaves the store empty.
func NewFromFile(path string) *Store {
	s := New()
	if path == "" {
		return s
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if _, err := herd.Decode(data); err != nil {
		return s
	}
	s.blob = data
	return s
}

func (s *Store) Load(_ context.Context) (core.Herd, error) {
	s.mu.Lock()
	blob := s.blob
	s.mu.Unlock()
	if blob == nil {
		return core.Herd{}, nil
	}
	return herd.Decode(blob)
}

func (s *Store) Save(_ context.Context, h core.Herd) error {
	b, err := herd.Encode(h)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = b
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = nil
	return nil
}

// Saved reports whether a blob is currently stored.
func (s *Store) Saved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blob != nil
}
