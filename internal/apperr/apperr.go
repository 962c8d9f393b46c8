// Package apperr defines the error kinds shared by every service in the
// module. Handlers map each kind to exactly one HTTP status; services wrap
// a kind with detail via fmt.Errorf("%w: ...", apperr.ErrNotFound).
package apperr

import "errors"

var (
	// ErrUnauthenticated means no valid actor identity was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the actor is known but lacks the specific permission.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness or state invariant would be violated.
	ErrConflict = errors.New("conflict")
	// ErrInvalid means malformed input: empty required field, unknown enum value.
	ErrInvalid = errors.New("invalid input")
	// ErrUnavailable marks transient store failures. This is the only kind a
	// caller may retry; all other kinds are terminal for the request.
	ErrUnavailable = errors.New("temporarily unavailable")
)

// IsRetryable reports whether the caller may retry the operation with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
