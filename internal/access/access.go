// Package access is the single authorization choke point. Every mutating or
// listing operation in the directory and task services consults one of these
// decision functions before touching storage; no other component re-derives
// permission on its own.
//
// The functions are pure: they take the actor and the already-loaded resource
// facts, and never read or write state themselves.
package access

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"taskhive.org/internal/apperr"
)

// Organization carries the facts a decision needs about an organization.
type Organization struct {
	CreatorID      string
	JoinSecretHash string
}

// Task carries the facts a decision needs about a task.
type Task struct {
	OwnerID        string
	OrganizationID string
}

// CanEditOrganization reports whether the actor may update the organization's
// name, description or join secret. Only the creator may, regardless of any
// later role changes.
func CanEditOrganization(actorID string, org Organization) bool {
	return actorID != "" && actorID == org.CreatorID
}

// CanJoin decides whether the actor may join the organization with the
// supplied secret. The stored credential is a bcrypt hash; the secret is
// never compared verbatim. Returns ErrConflict when the actor already holds
// a membership and ErrForbidden when the secret does not match.
func CanJoin(org Organization, suppliedSecret string, alreadyMember bool) error {
	if alreadyMember {
		return fmt.Errorf("%w: already a member of this organization", apperr.ErrConflict)
	}
	if bcrypt.CompareHashAndPassword([]byte(org.JoinSecretHash), []byte(suppliedSecret)) != nil {
		return fmt.Errorf("%w: join secret mismatch", apperr.ErrForbidden)
	}
	return nil
}

// CanRemoveMember reports whether the actor may remove targetUserID from the
// organization. Only the creator may, and never themself through this path:
// an organization must always retain its creator's membership.
func CanRemoveMember(actorID string, org Organization, targetUserID string) bool {
	if actorID == "" || actorID != org.CreatorID {
		return false
	}
	return targetUserID != actorID
}

// CanMutateTask reports whether the actor may update, delete or toggle the
// task. Ownership is exclusive: organization role never grants mutation.
func CanMutateTask(actorID string, t Task) bool {
	return actorID != "" && actorID == t.OwnerID
}

// CanManageTemplate reports whether the actor may create, update or delete
// templates in the organization. Reserved for the creator, not for admins.
func CanManageTemplate(actorID string, org Organization) bool {
	return actorID != "" && actorID == org.CreatorID
}

// CanViewTask reports whether the actor may read the task. The owner always
// may; members of the task's organization may as well.
func CanViewTask(actorID string, t Task, isMember bool) bool {
	if actorID == "" {
		return false
	}
	if actorID == t.OwnerID {
		return true
	}
	return t.OrganizationID != "" && isMember
}

// HashJoinSecret derives the stored form of an organization join secret.
// The plaintext is discarded after hashing; only the hash is persisted.
func HashJoinSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: join secret is required", apperr.ErrInvalid)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
