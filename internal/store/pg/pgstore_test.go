package pg

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"taskhive.org/internal/apperr"
	"taskhive.org/internal/directory"
	"taskhive.org/internal/identity"
	"taskhive.org/internal/task"
)

func userFixture(now time.Time) identity.User {
	return identity.User{ID: "user-1", Email: "a@example.com", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}
}

func profileFixture(now time.Time) identity.Profile {
	return identity.Profile{UserID: "user-1", DisplayName: "Alice", UpdatedAt: now}
}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestCreateOrganizationAtomic(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("insert into organizations").
		WithArgs("org-1", "Acme", "", "hash", "user-1", now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into memberships").
		WithArgs("mem-1", "org-1", "user-1", "admin", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	org := directory.Organization{ID: "org-1", Name: "Acme", JoinSecretHash: "hash", CreatorID: "user-1", CreatedAt: now, UpdatedAt: now}
	m := directory.Membership{ID: "mem-1", OrganizationID: "org-1", UserID: "user-1", Role: directory.RoleAdmin, JoinedAt: now}
	if err := store.Directory().CreateOrganization(context.Background(), &org, &m); err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateOrganizationRollsBackOnMembershipFailure(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("insert into organizations").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into memberships").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	org := directory.Organization{ID: "org-1", Name: "Acme", CreatorID: "user-1", CreatedAt: now, UpdatedAt: now}
	m := directory.Membership{ID: "mem-1", OrganizationID: "org-1", UserID: "user-1", Role: directory.RoleAdmin, JoinedAt: now}
	if err := store.Directory().CreateOrganization(context.Background(), &org, &m); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateMembershipUniqueViolation(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("insert into memberships").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "memberships_org_user_key"})

	m := directory.Membership{ID: "mem-2", OrganizationID: "org-1", UserID: "user-2", Role: directory.RoleMember, JoinedAt: time.Now()}
	err := store.Directory().CreateMembership(context.Background(), &m)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOrganizationNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("select id, name, description, join_secret_hash").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "join_secret_hash", "creator_id", "created_at", "updated_at"}))

	_, err := store.Directory().GetOrganization(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTasksBuildsFilters(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()
	cols := []string{"id", "title", "description", "is_complete", "due_date", "priority", "tags", "owner_id", "organization_id", "created_at", "updated_at"}

	mock.ExpectQuery("select (.+) from tasks where owner_id = \\$1 and organization_id is null and is_complete = \\$2 order by created_at desc").
		WithArgs("user-1", false).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("task-1", "write report", "", false, nil, "high", []byte(`["work"]`), "user-1", "", now, now))

	done := false
	got, err := store.Tasks().ListTasks(context.Background(), task.Query{
		OwnerID:      "user-1",
		PersonalOnly: true,
		Complete:     &done,
	})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(got) != 1 || got[0].ID != "task-1" || got[0].Priority != task.PriorityHigh {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(got[0].Tags) != 1 || got[0].Tags[0] != "work" {
		t.Fatalf("tags not decoded: %v", got[0].Tags)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteTaskNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("delete from tasks").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Tasks().DeleteTask(context.Background(), "gone")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransientFailureIsRetryable(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("select id, name, description, join_secret_hash").
		WithArgs("org-1").
		WillReturnError(syscall.ECONNRESET)
	_, err := store.Directory().GetOrganization(context.Background(), "org-1")
	if !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for reset connection, got %v", err)
	}
	if !apperr.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}

	mock.ExpectExec("delete from tasks").
		WithArgs("task-1").
		WillReturnError(context.DeadlineExceeded)
	if err := store.Tasks().DeleteTask(context.Background(), "task-1"); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for timeout, got %v", err)
	}

	mock.ExpectExec("insert into memberships").
		WillReturnError(&pgconn.PgError{Code: "57P01", Message: "terminating connection due to administrator command"})
	m := directory.Membership{ID: "mem-1", OrganizationID: "org-1", UserID: "user-1", Role: directory.RoleMember, JoinedAt: time.Now()}
	if err := store.Directory().CreateMembership(context.Background(), &m); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for server shutdown, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTerminalFailureStaysTerminal(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("delete from tasks").
		WithArgs("task-1").
		WillReturnError(errors.New("syntax error at or near"))
	err := store.Tasks().DeleteTask(context.Background(), "task-1")
	if err == nil || apperr.IsRetryable(err) {
		t.Fatalf("plain failures must not be marked retryable, got %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	mock.ExpectRollback()

	u := userFixture(now)
	p := profileFixture(now)
	err := store.Identity().CreateUser(context.Background(), &u, &p)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
