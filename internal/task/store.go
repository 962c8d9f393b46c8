package task

import "context"

// Query is the typed shape the store filters by; services build it, stores
// never see raw caller input.
type Query struct {
	// OwnerID restricts to one owner's tasks when set.
	OwnerID string
	// OrganizationID restricts to one organization's tasks when set.
	OrganizationID string
	// PersonalOnly keeps only tasks without an organization.
	PersonalOnly bool
	// Complete filters by completion state when non-nil.
	Complete *bool
	// Priority filters by exact priority when non-empty.
	Priority Priority
	// Tag keeps tasks whose tag set contains the value when non-empty.
	Tag string
}

// Store describes persistence for tasks and templates. Implementations
// surface apperr.ErrNotFound for missing records. ListTasks returns tasks
// ordered by createdAt descending.
type Store interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	UpdateTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, q Query) ([]Task, error)

	CreateTemplate(ctx context.Context, t *Template) error
	GetTemplate(ctx context.Context, id string) (Template, error)
	UpdateTemplate(ctx context.Context, t Template) error
	DeleteTemplate(ctx context.Context, id string) error
	ListTemplates(ctx context.Context, orgID string) ([]Template, error)
}
