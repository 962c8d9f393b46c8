package identity

import "time"

// User is an authenticated account. Users are created at registration and
// never deleted by this service.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Profile is the user-mutable presentation data attached to a User.
type Profile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Identity is what the rest of the system learns about a caller after
// authentication: a stable user id and a verified email.
type Identity struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// ProfilePatch updates a profile. Nil fields are left unchanged.
type ProfilePatch struct {
	DisplayName *string
	AvatarURL   *string
}
