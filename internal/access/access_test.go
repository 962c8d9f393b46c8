package access

import (
	"errors"
	"testing"

	"taskhive.org/internal/apperr"
)

func TestCanMutateTaskOwnerOnly(t *testing.T) {
	task := Task{OwnerID: "u1", OrganizationID: "org1"}
	if !CanMutateTask("u1", task) {
		t.Fatal("owner must be allowed to mutate")
	}
	// Org role is irrelevant: admins and members alike are rejected.
	for _, actor := range []string{"u2", "admin-user", ""} {
		if CanMutateTask(actor, task) {
			t.Fatalf("actor %q must not mutate a task owned by u1", actor)
		}
	}
}

func TestCanJoin(t *testing.T) {
	hash, err := HashJoinSecret("s3cr3t")
	if err != nil {
		t.Fatalf("HashJoinSecret: %v", err)
	}
	org := Organization{CreatorID: "u1", JoinSecretHash: hash}

	if err := CanJoin(org, "s3cr3t", false); err != nil {
		t.Fatalf("correct secret rejected: %v", err)
	}
	if err := CanJoin(org, "wrong", false); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for wrong secret, got %v", err)
	}
	if err := CanJoin(org, "s3cr3t", true); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict for existing member, got %v", err)
	}
}

func TestCanRemoveMember(t *testing.T) {
	org := Organization{CreatorID: "u1"}
	if !CanRemoveMember("u1", org, "u2") {
		t.Fatal("creator must be allowed to remove another member")
	}
	if CanRemoveMember("u1", org, "u1") {
		t.Fatal("creator must not remove themself")
	}
	if CanRemoveMember("u2", org, "u3") {
		t.Fatal("non-creator must not remove members")
	}
}

func TestCanViewTask(t *testing.T) {
	personal := Task{OwnerID: "u1"}
	if !CanViewTask("u1", personal, false) {
		t.Fatal("owner must view own personal task")
	}
	if CanViewTask("u2", personal, false) {
		t.Fatal("personal task must be invisible to others")
	}

	scoped := Task{OwnerID: "u1", OrganizationID: "org1"}
	if !CanViewTask("u2", scoped, true) {
		t.Fatal("org member must view org-scoped task")
	}
	if CanViewTask("u2", scoped, false) {
		t.Fatal("non-member must not view org-scoped task")
	}
}

func TestCreatorPrivileges(t *testing.T) {
	org := Organization{CreatorID: "u1"}
	if !CanEditOrganization("u1", org) || !CanManageTemplate("u1", org) {
		t.Fatal("creator must edit org and manage templates")
	}
	if CanEditOrganization("u2", org) || CanManageTemplate("u2", org) {
		t.Fatal("non-creator must not edit org or manage templates")
	}
	if CanEditOrganization("", Organization{}) {
		t.Fatal("empty actor must never match an empty creator")
	}
}
