package task

import (
	"fmt"
	"time"

	"taskhive.org/internal/apperr"
)

// Priority of a task. Empty means unset.
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) validate() error {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return nil
	default:
		return fmt.Errorf("%w: unknown priority %q", apperr.ErrInvalid, string(p))
	}
}

// Task is a unit of work. OrganizationID == "" means a personal task visible
// only to its owner. Tasks are mutable exclusively by their owner, whatever
// the owner's organization role is.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Complete       bool       `json:"is_complete"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Priority       Priority   `json:"priority,omitempty"`
	Tags           []string   `json:"tags"`
	OwnerID        string     `json:"owner_id"`
	OrganizationID string     `json:"organization_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Template is an organization-scoped blueprint for tasks. Managed only by
// the organization's creator; instantiable by any member.
type Template struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Priority       Priority  `json:"priority,omitempty"`
	Tags           []string  `json:"tags"`
	OrganizationID string    `json:"organization_id"`
	CreatorID      string    `json:"creator_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Input creates a task.
type Input struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *time.Time `json:"due_date"`
	Priority       Priority   `json:"priority"`
	Tags           []string   `json:"tags"`
	OrganizationID string     `json:"organization_id"`
}

// Patch updates a task. Nil fields are left unchanged. ClearDueDate resets
// the due date to none.
type Patch struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
	Priority     *Priority  `json:"priority"`
	Tags         *[]string  `json:"tags"`
}

// TemplateInput creates a template.
type TemplateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Tags        []string `json:"tags"`
}

// TemplatePatch updates a template. Nil fields are left unchanged.
type TemplatePatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *Priority `json:"priority"`
	Tags        *[]string `json:"tags"`
}

// Filters narrows a task listing. Nil/empty fields impose no restriction.
type Filters struct {
	Status   *bool
	Priority Priority
	Tag      string
}

// ScopePersonal lists the actor's own non-organization tasks; any other
// scope value is an organization id.
const ScopePersonal = "personal"
