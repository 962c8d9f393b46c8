package task

import (
	"context"
	"fmt"
	"strings"

	"taskhive.org/internal/access"
	"taskhive.org/internal/apperr"
	"taskhive.org/internal/ids"
)

// CreateTemplate persists an organization-scoped template. Only the
// organization's creator may manage templates.
func (s *Service) CreateTemplate(ctx context.Context, actorID, orgID string, in TemplateInput) (Template, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Template{}, fmt.Errorf("%w: template title is required", apperr.ErrInvalid)
	}
	if err := in.Priority.validate(); err != nil {
		return Template{}, err
	}
	if err := s.requireTemplateManager(ctx, actorID, orgID); err != nil {
		return Template{}, err
	}

	now := s.now().UTC()
	tpl := Template{
		ID:             ids.New(),
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Priority:       in.Priority,
		Tags:           normalizeTags(in.Tags),
		OrganizationID: orgID,
		CreatorID:      actorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateTemplate(ctx, &tpl); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

// UpdateTemplate applies the patch. Organization creator only.
func (s *Service) UpdateTemplate(ctx context.Context, actorID, templateID string, patch TemplatePatch) (Template, error) {
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return Template{}, err
	}
	if err := s.requireTemplateManager(ctx, actorID, tpl.OrganizationID); err != nil {
		return Template{}, err
	}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return Template{}, fmt.Errorf("%w: template title is required", apperr.ErrInvalid)
		}
		tpl.Title = trimmed
	}
	if patch.Description != nil {
		tpl.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Priority != nil {
		if err := patch.Priority.validate(); err != nil {
			return Template{}, err
		}
		tpl.Priority = *patch.Priority
	}
	if patch.Tags != nil {
		tpl.Tags = normalizeTags(*patch.Tags)
	}
	tpl.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateTemplate(ctx, tpl); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

// DeleteTemplate removes the template. Organization creator only.
func (s *Service) DeleteTemplate(ctx context.Context, actorID, templateID string) error {
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if err := s.requireTemplateManager(ctx, actorID, tpl.OrganizationID); err != nil {
		return err
	}
	return s.store.DeleteTemplate(ctx, templateID)
}

// ListTemplates returns the organization's templates. Members only.
func (s *Service) ListTemplates(ctx context.Context, actorID, orgID string) ([]Template, error) {
	member, err := s.dir.IsMember(ctx, orgID, actorID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: not a member of this organization", apperr.ErrForbidden)
	}
	return s.store.ListTemplates(ctx, orgID)
}

// Instantiate materializes a new task from the template: title, description,
// priority and tags are copied verbatim, the task lands in the template's
// organization, owned by the actor, incomplete and without a due date. Any
// member of the template's organization may instantiate it; creating the
// template is not required.
func (s *Service) Instantiate(ctx context.Context, actorID, templateID string) (Task, error) {
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return Task{}, err
	}
	member, err := s.dir.IsMember(ctx, tpl.OrganizationID, actorID)
	if err != nil {
		return Task{}, err
	}
	if !member {
		return Task{}, fmt.Errorf("%w: not a member of the template's organization", apperr.ErrForbidden)
	}

	now := s.now().UTC()
	t := Task{
		ID:             ids.New(),
		Title:          tpl.Title,
		Description:    tpl.Description,
		Priority:       tpl.Priority,
		Tags:           append([]string(nil), tpl.Tags...),
		OwnerID:        actorID,
		OrganizationID: tpl.OrganizationID,
		Complete:       false,
		DueDate:        nil,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateTask(ctx, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (s *Service) requireTemplateManager(ctx context.Context, actorID, orgID string) error {
	creatorID, err := s.dir.OrganizationCreator(ctx, orgID)
	if err != nil {
		return err
	}
	if !access.CanManageTemplate(actorID, access.Organization{CreatorID: creatorID}) {
		return fmt.Errorf("%w: only the organization creator may manage templates", apperr.ErrForbidden)
	}
	return nil
}
