package directory

import "time"

// Organization is a shared workspace. The creator holds permissions no later
// role change can revoke. JoinSecretHash is the bcrypt hash of the shared
// join credential; the plaintext is never stored or serialized.
type Organization struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	JoinSecretHash string    `json:"-"`
	CreatorID      string    `json:"creator_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Role of a member inside an organization.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Membership binds a user to an organization. At most one active membership
// exists per (organization, user) pair.
type Membership struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id"`
	Role           Role      `json:"role"`
	JoinedAt       time.Time `json:"joined_at"`
}

// Member is a membership joined with the user's profile display name, as
// returned by member listings.
type Member struct {
	Membership
	DisplayName string `json:"display_name"`
}

// OrganizationPatch updates an organization. Nil fields are left unchanged;
// a non-nil JoinSecret is re-hashed before storage.
type OrganizationPatch struct {
	Name        *string
	Description *string
	JoinSecret  *string
}
