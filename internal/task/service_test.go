package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"taskhive.org/internal/apperr"
)

// fakeDirectory answers membership and creator questions from fixed maps.
type fakeDirectory struct {
	members  map[string]bool // orgID + "/" + userID
	creators map[string]string
}

func (d *fakeDirectory) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	if _, ok := d.creators[orgID]; !ok {
		return false, fmt.Errorf("%w: organization %s", apperr.ErrNotFound, orgID)
	}
	return d.members[orgID+"/"+userID], nil
}

func (d *fakeDirectory) OrganizationCreator(ctx context.Context, orgID string) (string, error) {
	creator, ok := d.creators[orgID]
	if !ok {
		return "", fmt.Errorf("%w: organization %s", apperr.ErrNotFound, orgID)
	}
	return creator, nil
}

func newTestService(t *testing.T, opts ...Option) (*Service, *fakeDirectory) {
	t.Helper()
	dir := &fakeDirectory{
		members: map[string]bool{
			"org1/U1": true,
			"org1/U2": true,
		},
		creators: map[string]string{"org1": "U1"},
	}
	svc, err := NewService(NewInMemory(), dir, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, dir
}

func TestUpdateTaskOwnerOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, "U1", Input{Title: "A"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	title := "B"
	if _, err := svc.UpdateTask(ctx, "U2", created.ID, Patch{Title: &title}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
	updated, err := svc.UpdateTask(ctx, "U1", created.ID, Patch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Title != "B" {
		t.Fatalf("title not updated: %s", updated.Title)
	}
}

func TestCreateTaskRequiresMembershipForOrgScope(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateTask(ctx, "U3", Input{Title: "A", OrganizationID: "org1"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-member, got %v", err)
	}
	if _, err := svc.CreateTask(ctx, "U2", Input{Title: "A", OrganizationID: "org1"}); err != nil {
		t.Fatalf("member create failed: %v", err)
	}
	if _, err := svc.CreateTask(ctx, "U1", Input{Title: "A", OrganizationID: "missing"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown org, got %v", err)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateTask(ctx, "U1", Input{Title: "  "}); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for empty title, got %v", err)
	}
	if _, err := svc.CreateTask(ctx, "U1", Input{Title: "A", Priority: "urgent"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown priority, got %v", err)
	}
}

func TestListTasksScopesAndFilters(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	svc, _ := newTestService(t, WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}))
	ctx := context.Background()
	tick := func() {
		mu.Lock()
		current = current.Add(time.Minute)
		mu.Unlock()
	}

	personal, err := svc.CreateTask(ctx, "U1", Input{Title: "personal", Priority: PriorityHigh, Tags: []string{"home"}})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	tick()
	org1, err := svc.CreateTask(ctx, "U1", Input{Title: "org a", OrganizationID: "org1", Tags: []string{"work"}})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	tick()
	org2, err := svc.CreateTask(ctx, "U2", Input{Title: "org b", OrganizationID: "org1", Priority: PriorityLow})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := svc.ToggleComplete(ctx, "U2", org2.ID); err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}

	got, err := svc.ListTasks(ctx, "U1", ScopePersonal, Filters{})
	if err != nil {
		t.Fatalf("ListTasks personal: %v", err)
	}
	if len(got) != 1 || got[0].ID != personal.ID {
		t.Fatalf("personal scope wrong: %+v", got)
	}

	got, err = svc.ListTasks(ctx, "U2", "org1", Filters{})
	if err != nil {
		t.Fatalf("ListTasks org: %v", err)
	}
	// All members see all org tasks, newest first.
	if len(got) != 2 || got[0].ID != org2.ID || got[1].ID != org1.ID {
		t.Fatalf("org scope wrong order: %+v", got)
	}

	if _, err := svc.ListTasks(ctx, "U3", "org1", Filters{}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-member listing, got %v", err)
	}

	done := true
	got, err = svc.ListTasks(ctx, "U1", "org1", Filters{Status: &done})
	if err != nil {
		t.Fatalf("ListTasks status filter: %v", err)
	}
	if len(got) != 1 || got[0].ID != org2.ID {
		t.Fatalf("status filter wrong: %+v", got)
	}

	got, err = svc.ListTasks(ctx, "U1", "org1", Filters{Tag: "work"})
	if err != nil {
		t.Fatalf("ListTasks tag filter: %v", err)
	}
	if len(got) != 1 || got[0].ID != org1.ID {
		t.Fatalf("tag filter wrong: %+v", got)
	}

	got, err = svc.ListTasks(ctx, "U1", ScopePersonal, Filters{Priority: PriorityHigh})
	if err != nil {
		t.Fatalf("ListTasks priority filter: %v", err)
	}
	if len(got) != 1 || got[0].ID != personal.ID {
		t.Fatalf("priority filter wrong: %+v", got)
	}
}

func TestToggleCompleteFlipsAndStamps(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	svc, _ := newTestService(t, WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}))
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, "U1", Input{Title: "A"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	mu.Lock()
	current = current.Add(time.Hour)
	mu.Unlock()

	toggled, err := svc.ToggleComplete(ctx, "U1", created.ID)
	if err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	if !toggled.Complete {
		t.Fatal("expected task complete after toggle")
	}
	if !toggled.UpdatedAt.After(created.UpdatedAt) {
		t.Fatal("expected UpdatedAt to advance")
	}

	back, err := svc.ToggleComplete(ctx, "U1", created.ID)
	if err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	if back.Complete {
		t.Fatal("expected task pending after second toggle")
	}

	if _, err := svc.ToggleComplete(ctx, "U2", created.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner toggle, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, "U1", Input{Title: "A"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if err := svc.DeleteTask(ctx, "U2", created.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteTask(ctx, "U1", created.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := svc.DeleteTask(ctx, "U1", created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
}

func TestGetTaskVisibility(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	personal, err := svc.CreateTask(ctx, "U1", Input{Title: "mine"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	scoped, err := svc.CreateTask(ctx, "U1", Input{Title: "shared", OrganizationID: "org1"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if _, err := svc.GetTask(ctx, "U2", personal.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("personal task leaked: %v", err)
	}
	if _, err := svc.GetTask(ctx, "U2", scoped.ID); err != nil {
		t.Fatalf("member blocked from org task: %v", err)
	}
}

func TestTemplateManagementCreatorOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// U2 is a member but not the creator.
	if _, err := svc.CreateTemplate(ctx, "U2", "org1", TemplateInput{Title: "standup"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for member, got %v", err)
	}

	tpl, err := svc.CreateTemplate(ctx, "U1", "org1", TemplateInput{
		Title:    "standup",
		Priority: PriorityMedium,
		Tags:     []string{"meeting", "daily"},
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	title := "weekly sync"
	if _, err := svc.UpdateTemplate(ctx, "U2", tpl.ID, TemplatePatch{Title: &title}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for member update, got %v", err)
	}
	updated, err := svc.UpdateTemplate(ctx, "U1", tpl.ID, TemplatePatch{Title: &title})
	if err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("template not updated: %+v", updated)
	}

	if err := svc.DeleteTemplate(ctx, "U2", tpl.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for member delete, got %v", err)
	}
	if err := svc.DeleteTemplate(ctx, "U1", tpl.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
}

func TestInstantiate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tpl, err := svc.CreateTemplate(ctx, "U1", "org1", TemplateInput{
		Title:       "onboarding",
		Description: "welcome a new teammate",
		Priority:    PriorityHigh,
		Tags:        []string{"hr", "checklist"},
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	// Any member may instantiate, not only the template's creator.
	created, err := svc.Instantiate(ctx, "U2", tpl.ID)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if created.Title != tpl.Title || created.Description != tpl.Description || created.Priority != tpl.Priority {
		t.Fatalf("template fields not copied: %+v", created)
	}
	if len(created.Tags) != 2 || created.Tags[0] != "hr" || created.Tags[1] != "checklist" {
		t.Fatalf("tags not copied: %v", created.Tags)
	}
	if created.OwnerID != "U2" || created.OrganizationID != "org1" {
		t.Fatalf("wrong ownership or scope: %+v", created)
	}
	if created.Complete || created.DueDate != nil {
		t.Fatalf("instantiated task must start incomplete without due date: %+v", created)
	}

	if _, err := svc.Instantiate(ctx, "U3", tpl.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-member, got %v", err)
	}
	if _, err := svc.Instantiate(ctx, "U2", "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing template, got %v", err)
	}
}
