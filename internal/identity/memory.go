package identity

import (
	"context"
	"fmt"
	"sync"

	"taskhive.org/internal/apperr"
)

// InMemory implements Store with in-process concurrency safety. Used in
// tests and for running the API without a database.
type InMemory struct {
	mu       sync.RWMutex
	users    map[string]User
	byEmail  map[string]string
	profiles map[string]Profile
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		users:    make(map[string]User),
		byEmail:  make(map[string]string),
		profiles: make(map[string]Profile),
	}
}

func (s *InMemory) CreateUser(ctx context.Context, u *User, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[u.Email]; exists {
		return fmt.Errorf("%w: email already registered", apperr.ErrConflict)
	}
	s.users[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	s.profiles[u.ID] = *p
	return nil
}

func (s *InMemory) GetUser(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: user %s", apperr.ErrNotFound, id)
	}
	return u, nil
}

func (s *InMemory) FindUserByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return User{}, fmt.Errorf("%w: no user for email", apperr.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *InMemory) MarkEmailVerified(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%w: user %s", apperr.ErrNotFound, userID)
	}
	u.EmailVerified = true
	s.users[userID] = u
	return nil
}

func (s *InMemory) GetProfile(ctx context.Context, userID string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return Profile{}, fmt.Errorf("%w: profile %s", apperr.ErrNotFound, userID)
	}
	return p, nil
}

func (s *InMemory) UpdateProfile(ctx context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.UserID]; !ok {
		return fmt.Errorf("%w: profile %s", apperr.ErrNotFound, p.UserID)
	}
	s.profiles[p.UserID] = p
	return nil
}

func (s *InMemory) GetProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
