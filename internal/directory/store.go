package directory

import "context"

// Store describes persistence for organizations and memberships.
// Implementations surface apperr kinds: ErrNotFound for missing records,
// ErrConflict for a duplicate (organization, user) membership.
type Store interface {
	// CreateOrganization persists the organization and the creator's admin
	// membership as one atomic unit. A partial failure must leave no
	// visible organization.
	CreateOrganization(ctx context.Context, org *Organization, creator *Membership) error
	GetOrganization(ctx context.Context, id string) (Organization, error)
	// FindOrganizationsByName returns all organizations with the exact name,
	// ordered by createdAt ascending with id as tiebreak. Names are not
	// unique; callers decide how to disambiguate.
	FindOrganizationsByName(ctx context.Context, name string) ([]Organization, error)
	UpdateOrganization(ctx context.Context, org Organization) error

	// CreateMembership relies on the store's unique constraint over
	// (organization_id, user_id) and reports ErrConflict on violation. This
	// is the race-proof guard; any prior existence check is advisory only.
	CreateMembership(ctx context.Context, m *Membership) error
	GetMembership(ctx context.Context, orgID, userID string) (Membership, error)
	DeleteMembership(ctx context.Context, orgID, userID string) error
	ListMemberships(ctx context.Context, orgID string) ([]Membership, error)
}
