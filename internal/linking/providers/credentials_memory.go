package providers

import (
	"context"
	"sync"

	"dojotrack/pkg/platform/sentinel"
)

// InMemoryCredentialStore keeps email credential hashes in process memory.
type InMemoryCredentialStore struct {
	mu     sync.RWMutex
	hashes map[string]string
}

func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{hashes: make(map[string]string)}
}

func (s *InMemoryCredentialStore) Save(_ context.Context, email, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.hashes[email]; exists {
		return sentinel.ErrConflict
	}
	s.hashes[email] = passwordHash
	return nil
}

func (s *InMemoryCredentialStore) Hash(_ context.Context, email string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if hash, ok := s.hashes[email]; ok {
		return hash, nil
	}
	return "", sentinel.ErrNotFound
}

var _ CredentialStore = (*InMemoryCredentialStore)(nil)
