package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"taskhive.org/internal/apperr"
	"taskhive.org/internal/events"
	"taskhive.org/internal/ids"
	"taskhive.org/internal/obs"
)

const (
	defaultAccessTTL = 24 * time.Hour
	verifyTTL        = 48 * time.Hour
	minPasswordLen   = 8
)

// Notifier delivers the verification mail. Failures are logged and never
// block registration.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, callbackURL string) error
}

// Service authenticates callers and manages users and profiles.
type Service struct {
	store    Store
	secret   []byte
	issuer   string
	ttl      time.Duration
	now      func() time.Time
	notifier Notifier
	bus      *events.Bus

	// verifyBaseURL is the prefix of the link mailed to new users; the
	// verification token is appended as a query parameter.
	verifyBaseURL string
}

// Option configures Service behavior.
type Option func(*Service)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithNotifier enables verification mail delivery.
func WithNotifier(n Notifier, verifyBaseURL string) Option {
	return func(s *Service) {
		s.notifier = n
		s.verifyBaseURL = verifyBaseURL
	}
}

// WithEvents publishes profile mutations to the bus.
func WithEvents(bus *events.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

// NewService constructs a Service signing tokens with the given secret.
func NewService(store Store, secret, issuer string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	s := &Service{
		store:  store,
		secret: []byte(secret),
		issuer: issuer,
		ttl:    defaultAccessTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a user with a hashed password and an initial profile,
// then hands the verification mail to the notifier without waiting for it.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return User{}, fmt.Errorf("%w: malformed email address", apperr.ErrInvalid)
	}
	// ParseAddress accepts the name-addr form; only the addr-spec is the
	// account email.
	email = addr.Address
	if len(password) < minPasswordLen {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", apperr.ErrInvalid, minPasswordLen)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = email[:strings.IndexByte(email, '@')]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	now := s.now().UTC()
	user := User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	profile := Profile{UserID: user.ID, DisplayName: displayName, UpdatedAt: now}
	if err := s.store.CreateUser(ctx, &user, &profile); err != nil {
		return User{}, err
	}

	s.sendVerification(user)
	return user, nil
}

func (s *Service) sendVerification(user User) {
	if s.notifier == nil {
		return
	}
	token, _, err := s.signToken(user.ID, tokenTypeVerify, verifyTTL)
	if err != nil {
		obs.Log(map[string]any{"level": "error", "msg": "sign verification token", "error": err.Error()})
		return
	}
	callback := s.verifyBaseURL + "?token=" + token
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.SendVerificationEmail(ctx, user.Email, callback); err != nil {
			obs.Log(map[string]any{
				"level": "warn",
				"msg":   "verification mail failed",
				"email": user.Email,
				"error": err.Error(),
			})
		}
	}()
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", time.Time{}, User{}, fmt.Errorf("%w: missing credentials", apperr.ErrUnauthenticated)
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the address is registered.
		return "", time.Time{}, User{}, fmt.Errorf("%w: bad credentials", apperr.ErrUnauthenticated)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", time.Time{}, User{}, fmt.Errorf("%w: bad credentials", apperr.ErrUnauthenticated)
	}
	token, exp, err := s.signToken(user.ID, tokenTypeAccess, s.ttl)
	if err != nil {
		return "", time.Time{}, User{}, err
	}
	return token, exp, user, nil
}

// Authenticate resolves a bearer token into the caller's identity.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := s.parseToken(token, tokenTypeAccess)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %s", apperr.ErrUnauthenticated, "invalid token")
	}
	user, err := s.store.GetUser(ctx, claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: unknown subject", apperr.ErrUnauthenticated)
	}
	return Identity{UserID: user.ID, Email: user.Email, EmailVerified: user.EmailVerified}, nil
}

// VerifyEmail consumes a verification token from the mailed callback link.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.parseToken(token, tokenTypeVerify)
	if err != nil {
		return fmt.Errorf("%w: invalid verification token", apperr.ErrUnauthenticated)
	}
	return s.store.MarkEmailVerified(ctx, claims.Subject)
}

// GetProfile returns the profile for the given user.
func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	return s.store.GetProfile(ctx, userID)
}

// UpdateProfile applies the patch to the actor's own profile and publishes
// a ProfileUpdated event.
func (s *Service) UpdateProfile(ctx context.Context, actorID string, patch ProfilePatch) (Profile, error) {
	profile, err := s.store.GetProfile(ctx, actorID)
	if err != nil {
		return Profile{}, err
	}
	if patch.DisplayName != nil {
		trimmed := strings.TrimSpace(*patch.DisplayName)
		if trimmed == "" {
			return Profile{}, fmt.Errorf("%w: display name is required", apperr.ErrInvalid)
		}
		profile.DisplayName = trimmed
	}
	if patch.AvatarURL != nil {
		profile.AvatarURL = strings.TrimSpace(*patch.AvatarURL)
	}
	profile.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProfile(ctx, profile); err != nil {
		return Profile{}, err
	}
	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: events.ProfileUpdated, UserID: actorID})
	}
	return profile, nil
}

// DisplayNames resolves user ids to display names for membership listings.
func (s *Service) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	profiles, err := s.store.GetProfiles(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(profiles))
	for id, p := range profiles {
		out[id] = p.DisplayName
	}
	return out, nil
}
