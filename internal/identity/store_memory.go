package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	id "dojotrack/pkg/domain"
)

// InMemoryStore keeps identity rows in process memory. It mirrors the
// postgres store's semantics, including the uniqueness constraint on
// (provider, providerUserID), so services behave identically in tests.
type InMemoryStore struct {
	mu sync.RWMutex
	// keyed by provider + "\x00" + providerUserID, the logical unique index
	rows map[string]Identity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{rows: make(map[string]Identity)}
}

func pairKey(provider Provider, providerUserID string) string {
	return string(provider) + "\x00" + providerUserID
}

func (s *InMemoryStore) FindOwner(_ context.Context, provider Provider, providerUserID string) (id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row, ok := s.rows[pairKey(provider, providerUserID)]; ok {
		return row.UserID, nil
	}
	return id.UserID{}, ErrNotFound
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Identity
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out, nil
}

func (s *InMemoryStore) ListProviders(ctx context.Context, userID id.UserID) ([]Provider, error) {
	rows, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	providers := make([]Provider, 0, len(rows))
	for _, row := range rows {
		// rows are sorted by provider, so duplicates are adjacent
		if n := len(providers); n > 0 && providers[n-1] == row.Provider {
			continue
		}
		providers = append(providers, row.Provider)
	}
	return providers, nil
}

func (s *InMemoryStore) Attach(_ context.Context, ident Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(ident.Provider, ident.ProviderUserID)
	if existing, ok := s.rows[key]; ok {
		if existing.UserID == ident.UserID {
			return nil
		}
		return ErrAlreadyLinkedElsewhere
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now()
	}
	ident.UpdatedAt = ident.CreatedAt
	s.rows[key] = ident
	return nil
}

func (s *InMemoryStore) Detach(_ context.Context, userID id.UserID, provider Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target string
	owned := 0
	for key, row := range s.rows {
		if row.UserID != userID {
			continue
		}
		owned++
		if row.Provider == provider {
			target = key
		}
	}
	if target == "" {
		return ErrNotFound
	}
	if owned <= 1 {
		return ErrLastIdentity
	}
	delete(s.rows, target)
	return nil
}

func (s *InMemoryStore) ReassignAll(_ context.Context, source, target id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	targetPairs := make(map[string]bool)
	for key, row := range s.rows {
		if row.UserID == target {
			targetPairs[key] = true
		}
	}

	moved := 0
	for key, row := range s.rows {
		if row.UserID != source {
			continue
		}
		if targetPairs[key] {
			// target's existing identity wins; the source duplicate is dropped
			delete(s.rows, key)
			continue
		}
		row.UserID = target
		row.UpdatedAt = time.Now()
		s.rows[key] = row
		moved++
	}
	return moved, nil
}

var _ Store = (*InMemoryStore)(nil)
