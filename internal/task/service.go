package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskhive.org/internal/access"
	"taskhive.org/internal/apperr"
	"taskhive.org/internal/ids"
)

// Directory is the slice of the organization directory the task service
// needs: membership facts for scope checks and the creator for template
// management.
type Directory interface {
	IsMember(ctx context.Context, orgID, userID string) (bool, error)
	OrganizationCreator(ctx context.Context, orgID string) (string, error)
}

// Service manages task and template lifecycle. Every mutation is gated by an
// access decision before the store is touched.
type Service struct {
	store Store
	dir   Directory
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the task service.
func NewService(store Store, dir Directory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("task store is required")
	}
	if dir == nil {
		return nil, errors.New("directory is required")
	}
	s := &Service{store: store, dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateTask persists a task owned by ownerID. An organization-scoped task
// requires the owner to be a member of that organization.
func (s *Service) CreateTask(ctx context.Context, ownerID string, in Input) (Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Task{}, fmt.Errorf("%w: task title is required", apperr.ErrInvalid)
	}
	if err := in.Priority.validate(); err != nil {
		return Task{}, err
	}
	if in.OrganizationID != "" {
		member, err := s.dir.IsMember(ctx, in.OrganizationID, ownerID)
		if err != nil {
			return Task{}, err
		}
		if !member {
			return Task{}, fmt.Errorf("%w: not a member of the target organization", apperr.ErrForbidden)
		}
	}

	now := s.now().UTC()
	t := Task{
		ID:             ids.New(),
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		DueDate:        in.DueDate,
		Priority:       in.Priority,
		Tags:           normalizeTags(in.Tags),
		OwnerID:        ownerID,
		OrganizationID: in.OrganizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateTask(ctx, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// UpdateTask applies the patch. Owner only.
func (s *Service) UpdateTask(ctx context.Context, actorID, taskID string, patch Patch) (Task, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !access.CanMutateTask(actorID, taskFacts(t)) {
		return Task{}, fmt.Errorf("%w: only the task owner may modify it", apperr.ErrForbidden)
	}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return Task{}, fmt.Errorf("%w: task title is required", apperr.ErrInvalid)
		}
		t.Title = trimmed
	}
	if patch.Description != nil {
		t.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.ClearDueDate {
		t.DueDate = nil
	} else if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	if patch.Priority != nil {
		if err := patch.Priority.validate(); err != nil {
			return Task{}, err
		}
		t.Priority = *patch.Priority
	}
	if patch.Tags != nil {
		t.Tags = normalizeTags(*patch.Tags)
	}
	t.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// DeleteTask removes the task. Owner only; repeating reports NotFound.
func (s *Service) DeleteTask(ctx context.Context, actorID, taskID string) error {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !access.CanMutateTask(actorID, taskFacts(t)) {
		return fmt.Errorf("%w: only the task owner may delete it", apperr.ErrForbidden)
	}
	return s.store.DeleteTask(ctx, taskID)
}

// ToggleComplete flips the completion state. Owner only.
func (s *Service) ToggleComplete(ctx context.Context, actorID, taskID string) (Task, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if !access.CanMutateTask(actorID, taskFacts(t)) {
		return Task{}, fmt.Errorf("%w: only the task owner may modify it", apperr.ErrForbidden)
	}
	t.Complete = !t.Complete
	t.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// ListTasks returns the actor-visible tasks for a scope, newest first.
// Scope "personal" lists the actor's non-organization tasks; any other value
// is an organization id and requires membership.
func (s *Service) ListTasks(ctx context.Context, actorID, scope string, f Filters) ([]Task, error) {
	if err := f.Priority.validate(); err != nil {
		return nil, err
	}
	q := Query{Complete: f.Status, Priority: f.Priority, Tag: f.Tag}
	switch scope {
	case "":
		return nil, fmt.Errorf("%w: scope is required", apperr.ErrInvalid)
	case ScopePersonal:
		q.OwnerID = actorID
		q.PersonalOnly = true
	default:
		member, err := s.dir.IsMember(ctx, scope, actorID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, fmt.Errorf("%w: not a member of this organization", apperr.ErrForbidden)
		}
		q.OrganizationID = scope
	}
	return s.store.ListTasks(ctx, q)
}

// GetTask returns a single task the actor may view.
func (s *Service) GetTask(ctx context.Context, actorID, taskID string) (Task, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	isMember := false
	if t.OrganizationID != "" {
		isMember, err = s.dir.IsMember(ctx, t.OrganizationID, actorID)
		if err != nil {
			return Task{}, err
		}
	}
	if !access.CanViewTask(actorID, taskFacts(t), isMember) {
		return Task{}, fmt.Errorf("%w: no access to this task", apperr.ErrForbidden)
	}
	return t, nil
}

func taskFacts(t Task) access.Task {
	return access.Task{OwnerID: t.OwnerID, OrganizationID: t.OrganizationID}
}

// normalizeTags trims, drops empties and deduplicates while preserving first
// occurrence order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
