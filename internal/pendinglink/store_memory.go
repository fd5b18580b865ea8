package pendinglink

import (
	"context"
	"sync"

	"dojotrack/pkg/platform/sentinel"
)

// InMemoryStore keeps pending links in process memory for tests and local
// runs. Take deletes under the lock, so single use holds.
type InMemoryStore struct {
	mu    sync.Mutex
	links map[string]PendingLink
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{links: make(map[string]PendingLink)}
}

func (s *InMemoryStore) Put(_ context.Context, link PendingLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[link.Code] = link
	return nil
}

func (s *InMemoryStore) Take(_ context.Context, code string) (PendingLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[code]
	if !ok {
		return PendingLink{}, sentinel.ErrNotFound
	}
	delete(s.links, code)
	return link, nil
}

var _ Store = (*InMemoryStore)(nil)
