package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"taskhive.org/internal/apperr"
)

// InMemory implements Store with in-process concurrency safety. The mutex is
// held across the organization+membership pair in CreateOrganization, which
// gives the same atomicity the Postgres store gets from a transaction.
type InMemory struct {
	mu          sync.RWMutex
	orgs        map[string]Organization
	memberships map[string]Membership // key: orgID + "/" + userID
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		orgs:        make(map[string]Organization),
		memberships: make(map[string]Membership),
	}
}

func memberKey(orgID, userID string) string { return orgID + "/" + userID }

func (s *InMemory) CreateOrganization(ctx context.Context, org *Organization, creator *Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orgs[org.ID]; exists {
		return fmt.Errorf("%w: organization %s", apperr.ErrConflict, org.ID)
	}
	s.orgs[org.ID] = *org
	s.memberships[memberKey(creator.OrganizationID, creator.UserID)] = *creator
	return nil
}

func (s *InMemory) GetOrganization(ctx context.Context, id string) (Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return Organization{}, fmt.Errorf("%w: organization %s", apperr.ErrNotFound, id)
	}
	return org, nil
}

func (s *InMemory) FindOrganizationsByName(ctx context.Context, name string) ([]Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Organization
	for _, org := range s.orgs {
		if org.Name == name {
			res = append(res, org)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (s *InMemory) UpdateOrganization(ctx context.Context, org Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; !ok {
		return fmt.Errorf("%w: organization %s", apperr.ErrNotFound, org.ID)
	}
	s.orgs[org.ID] = org
	return nil
}

func (s *InMemory) CreateMembership(ctx context.Context, m *Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[m.OrganizationID]; !ok {
		return fmt.Errorf("%w: organization %s", apperr.ErrNotFound, m.OrganizationID)
	}
	key := memberKey(m.OrganizationID, m.UserID)
	if _, exists := s.memberships[key]; exists {
		return fmt.Errorf("%w: membership already exists", apperr.ErrConflict)
	}
	s.memberships[key] = *m
	return nil
}

func (s *InMemory) GetMembership(ctx context.Context, orgID, userID string) (Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[memberKey(orgID, userID)]
	if !ok {
		return Membership{}, fmt.Errorf("%w: membership", apperr.ErrNotFound)
	}
	return m, nil
}

func (s *InMemory) DeleteMembership(ctx context.Context, orgID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey(orgID, userID)
	if _, ok := s.memberships[key]; !ok {
		return fmt.Errorf("%w: membership", apperr.ErrNotFound)
	}
	delete(s.memberships, key)
	return nil
}

func (s *InMemory) ListMemberships(ctx context.Context, orgID string) ([]Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Membership
	for _, m := range s.memberships {
		if m.OrganizationID == orgID {
			res = append(res, m)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].JoinedAt.Equal(res[j].JoinedAt) {
			return res[i].JoinedAt.Before(res[j].JoinedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}
