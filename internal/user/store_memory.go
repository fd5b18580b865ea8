package user

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	id "dojotrack/pkg/domain"
)

// InMemoryStore keeps user rows in process memory for tests and local runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[id.UserID]User
	settings map[id.UserID]Settings
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    make(map[id.UserID]User),
		settings: make(map[id.UserID]Settings),
	}
}

func (s *InMemoryStore) Create(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.ID] = u
	s.settings[u.ID] = Settings{
		UserID:       u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		ImageURL:     u.ImageURL,
		SettingsJSON: json.RawMessage(`{}`),
		UpdatedAt:    now,
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return User{}, ErrNotFound
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *InMemoryStore) SetRole(_ context.Context, userID id.UserID, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	s.users[userID] = u
	return nil
}

func (s *InMemoryStore) UpdateProfile(_ context.Context, userID id.UserID, displayName, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.DisplayName = displayName
	u.ImageURL = imageURL
	u.UpdatedAt = time.Now()
	s.users[userID] = u

	if st, ok := s.settings[userID]; ok {
		st.DisplayName = displayName
		st.ImageURL = imageURL
		st.UpdatedAt = u.UpdatedAt
		s.settings[userID] = st
	}
	return nil
}

func (s *InMemoryStore) Settings(_ context.Context, userID id.UserID) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.settings[userID]; ok {
		return st, nil
	}
	return Settings{}, ErrNotFound
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	delete(s.settings, userID)
	return nil
}

var _ Store = (*InMemoryStore)(nil)
