package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskhive.org/internal/access"
	"taskhive.org/internal/apperr"
	"taskhive.org/internal/events"
	"taskhive.org/internal/ids"
)

// ProfileLookup resolves user ids to display names for member listings.
// Implemented by the identity service.
type ProfileLookup interface {
	DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Service manages organization and membership lifecycle. Every mutation is
// gated by an access decision before the store is touched.
type Service struct {
	store    Store
	profiles ProfileLookup
	bus      *events.Bus
	now      func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithEvents publishes membership mutations to the bus.
func WithEvents(bus *events.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// NewService constructs the directory service.
func NewService(store Store, profiles ProfileLookup, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("directory store is required")
	}
	s := &Service{store: store, profiles: profiles, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateOrganization creates the organization and the creator's admin
// membership atomically. The join secret is stored only as a bcrypt hash.
func (s *Service) CreateOrganization(ctx context.Context, creatorID, name, description, joinSecret string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", apperr.ErrInvalid)
	}
	if strings.TrimSpace(joinSecret) == "" {
		return Organization{}, fmt.Errorf("%w: join secret is required", apperr.ErrInvalid)
	}
	if creatorID == "" {
		return Organization{}, fmt.Errorf("%w: creator is required", apperr.ErrUnauthenticated)
	}

	hash, err := access.HashJoinSecret(joinSecret)
	if err != nil {
		return Organization{}, err
	}

	now := s.now().UTC()
	org := Organization{
		ID:             ids.New(),
		Name:           name,
		Description:    strings.TrimSpace(description),
		JoinSecretHash: hash,
		CreatorID:      creatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	creator := Membership{
		ID:             ids.New(),
		OrganizationID: org.ID,
		UserID:         creatorID,
		Role:           RoleAdmin,
		JoinedAt:       now,
	}
	if err := s.store.CreateOrganization(ctx, &org, &creator); err != nil {
		return Organization{}, err
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.MemberJoined, OrganizationID: org.ID, UserID: creatorID})
	}
	return org, nil
}

// JoinOrganization resolves candidate organizations by exact name (names are
// not unique; candidates come back in deterministic creation order) and
// admits the actor into the first match as a plain member. The membership
// insert relies on the store's unique constraint to stay race-proof.
func (s *Service) JoinOrganization(ctx context.Context, actorID, name, suppliedSecret string) (Membership, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Membership{}, fmt.Errorf("%w: organization name is required", apperr.ErrInvalid)
	}
	candidates, err := s.store.FindOrganizationsByName(ctx, name)
	if err != nil {
		return Membership{}, err
	}
	if len(candidates) == 0 {
		return Membership{}, fmt.Errorf("%w: no organization named %q", apperr.ErrNotFound, name)
	}
	org := candidates[0]

	alreadyMember := true
	if _, err := s.store.GetMembership(ctx, org.ID, actorID); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return Membership{}, err
		}
		alreadyMember = false
	}
	if err := access.CanJoin(orgFacts(org), suppliedSecret, alreadyMember); err != nil {
		return Membership{}, err
	}

	m := Membership{
		ID:             ids.New(),
		OrganizationID: org.ID,
		UserID:         actorID,
		Role:           RoleMember,
		JoinedAt:       s.now().UTC(),
	}
	// A racing join by the same user lands here too; the unique constraint
	// turns the loser into ErrConflict.
	if err := s.store.CreateMembership(ctx, &m); err != nil {
		return Membership{}, err
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.MemberJoined, OrganizationID: org.ID, UserID: actorID})
	}
	return m, nil
}

// RemoveMember deletes the target's membership. Only the creator may remove
// members, and never themself.
func (s *Service) RemoveMember(ctx context.Context, actorID, orgID, targetUserID string) error {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return err
	}
	if !access.CanRemoveMember(actorID, orgFacts(org), targetUserID) {
		return fmt.Errorf("%w: only the organization creator may remove other members", apperr.ErrForbidden)
	}
	if err := s.store.DeleteMembership(ctx, orgID, targetUserID); err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.MemberRemoved, OrganizationID: orgID, UserID: targetUserID})
	}
	return nil
}

// UpdateOrganization patches name, description or join secret. Creator only.
func (s *Service) UpdateOrganization(ctx context.Context, actorID, orgID string, patch OrganizationPatch) (Organization, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return Organization{}, err
	}
	if !access.CanEditOrganization(actorID, orgFacts(org)) {
		return Organization{}, fmt.Errorf("%w: only the organization creator may edit it", apperr.ErrForbidden)
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" {
			return Organization{}, fmt.Errorf("%w: organization name is required", apperr.ErrInvalid)
		}
		org.Name = trimmed
	}
	if patch.Description != nil {
		org.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.JoinSecret != nil {
		hash, err := access.HashJoinSecret(*patch.JoinSecret)
		if err != nil {
			return Organization{}, err
		}
		org.JoinSecretHash = hash
	}
	org.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateOrganization(ctx, org); err != nil {
		return Organization{}, err
	}
	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.OrganizationUpdated, OrganizationID: org.ID, UserID: actorID})
	}
	return org, nil
}

// GetOrganization returns the organization by id.
func (s *Service) GetOrganization(ctx context.Context, orgID string) (Organization, error) {
	return s.store.GetOrganization(ctx, orgID)
}

// ListMembers returns memberships ordered by joinedAt ascending, joined with
// profile display names. The membership read gate sits at the HTTP boundary.
func (s *Service) ListMembers(ctx context.Context, orgID string) ([]Member, error) {
	if _, err := s.store.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	memberships, err := s.store.ListMemberships(ctx, orgID)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	if s.profiles != nil && len(memberships) > 0 {
		userIDs := make([]string, 0, len(memberships))
		for _, m := range memberships {
			userIDs = append(userIDs, m.UserID)
		}
		names, err = s.profiles.DisplayNames(ctx, userIDs)
		if err != nil {
			return nil, err
		}
	}
	members := make([]Member, 0, len(memberships))
	for _, m := range memberships {
		members = append(members, Member{Membership: m, DisplayName: names[m.UserID]})
	}
	return members, nil
}

// IsMember reports whether the user holds a membership in the organization.
func (s *Service) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	_, err := s.store.GetMembership(ctx, orgID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// OrganizationCreator returns the creator id for an organization.
func (s *Service) OrganizationCreator(ctx context.Context, orgID string) (string, error) {
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return "", err
	}
	return org.CreatorID, nil
}

func orgFacts(org Organization) access.Organization {
	return access.Organization{CreatorID: org.CreatorID, JoinSecretHash: org.JoinSecretHash}
}
