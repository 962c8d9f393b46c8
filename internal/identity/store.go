package identity

import "context"

// Store describes persistence operations required by the identity service.
// Implementations surface apperr kinds: ErrNotFound for missing records and
// ErrConflict for a duplicate email.
type Store interface {
	CreateUser(ctx context.Context, u *User, p *Profile) error
	GetUser(ctx context.Context, id string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	MarkEmailVerified(ctx context.Context, userID string) error

	GetProfile(ctx context.Context, userID string) (Profile, error)
	UpdateProfile(ctx context.Context, p Profile) error
	GetProfiles(ctx context.Context, userIDs []string) (map[string]Profile, error)
}
