package task

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"taskhive.org/internal/apperr"
)

// InMemory implements Store with in-process concurrency safety. Used in
// tests and for running the API without a database.
type InMemory struct {
	mu        sync.RWMutex
	tasks     map[string]Task
	templates map[string]Template
}

var _ Store = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		tasks:     make(map[string]Task),
		templates: make(map[string]Template),
	}
}

func (s *InMemory) CreateTask(ctx context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[t.ID]; exists {
		return fmt.Errorf("%w: task %s", apperr.ErrConflict, t.ID)
	}
	s.tasks[t.ID] = cloneTask(*t)
	return nil
}

func (s *InMemory) GetTask(ctx context.Context, id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: task %s", apperr.ErrNotFound, id)
	}
	return cloneTask(t), nil
}

func (s *InMemory) UpdateTask(ctx context.Context, t Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return fmt.Errorf("%w: task %s", apperr.ErrNotFound, t.ID)
	}
	s.tasks[t.ID] = cloneTask(t)
	return nil
}

func (s *InMemory) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: task %s", apperr.ErrNotFound, id)
	}
	delete(s.tasks, id)
	return nil
}

func (s *InMemory) ListTasks(ctx context.Context, q Query) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Task
	for _, t := range s.tasks {
		if !matches(t, q) {
			continue
		}
		res = append(res, cloneTask(t))
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}

func matches(t Task, q Query) bool {
	if q.OwnerID != "" && t.OwnerID != q.OwnerID {
		return false
	}
	if q.PersonalOnly && t.OrganizationID != "" {
		return false
	}
	if q.OrganizationID != "" && t.OrganizationID != q.OrganizationID {
		return false
	}
	if q.Complete != nil && t.Complete != *q.Complete {
		return false
	}
	if q.Priority != PriorityNone && t.Priority != q.Priority {
		return false
	}
	if q.Tag != "" {
		found := false
		for _, tag := range t.Tags {
			if tag == q.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *InMemory) CreateTemplate(ctx context.Context, t *Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.templates[t.ID]; exists {
		return fmt.Errorf("%w: template %s", apperr.ErrConflict, t.ID)
	}
	s.templates[t.ID] = cloneTemplate(*t)
	return nil
}

func (s *InMemory) GetTemplate(ctx context.Context, id string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: template %s", apperr.ErrNotFound, id)
	}
	return cloneTemplate(t), nil
}

func (s *InMemory) UpdateTemplate(ctx context.Context, t Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[t.ID]; !ok {
		return fmt.Errorf("%w: template %s", apperr.ErrNotFound, t.ID)
	}
	s.templates[t.ID] = cloneTemplate(t)
	return nil
}

func (s *InMemory) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return fmt.Errorf("%w: template %s", apperr.ErrNotFound, id)
	}
	delete(s.templates, id)
	return nil
}

func (s *InMemory) ListTemplates(ctx context.Context, orgID string) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Template
	for _, t := range s.templates {
		if t.OrganizationID == orgID {
			res = append(res, cloneTemplate(t))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}

func cloneTask(t Task) Task {
	t.Tags = append([]string(nil), t.Tags...)
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}

func cloneTemplate(t Template) Template {
	t.Tags = append([]string(nil), t.Tags...)
	return t
}
