package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskhive.org/internal/apperr"
	"taskhive.org/internal/task"
)

var _ task.Store = (*taskStore)(nil)

// taskStore keeps tags as a jsonb column; filtering by tag uses the jsonb
// containment operator so the element match stays in the database.
type taskStore struct{ db *sql.DB }

func (s *taskStore) CreateTask(ctx context.Context, t *task.Task) error {
	tags, err := json.Marshal(normalizedTags(t.Tags))
	if err != nil {
		return storeErr(err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into tasks(id, title, description, is_complete, due_date, priority, tags, owner_id, organization_id, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,nullif($9,''),$10,$11)
	`, t.ID, t.Title, t.Description, t.Complete, t.DueDate, string(t.Priority), tags, t.OwnerID, t.OrganizationID, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: task %s", apperr.ErrConflict, t.ID)
	}
	return storeErr(err)
}

func (s *taskStore) GetTask(ctx context.Context, id string) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, title, description, is_complete, due_date, priority, tags, owner_id, coalesce(organization_id,''), created_at, updated_at
		from tasks where id=$1
	`, id)
	t, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("%w: task %s", apperr.ErrNotFound, id)
	}
	return t, storeErr(err)
}

func (s *taskStore) UpdateTask(ctx context.Context, t task.Task) error {
	tags, err := json.Marshal(normalizedTags(t.Tags))
	if err != nil {
		return storeErr(err)
	}
	res, err := s.db.ExecContext(ctx, `
		update tasks set title=$2, description=$3, is_complete=$4, due_date=$5, priority=$6, tags=$7, updated_at=$8
		where id=$1
	`, t.ID, t.Title, t.Description, t.Complete, t.DueDate, string(t.Priority), tags, t.UpdatedAt)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: task %s", apperr.ErrNotFound, t.ID)
	}
	return nil
}

func (s *taskStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from tasks where id=$1`, id)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: task %s", apperr.ErrNotFound, id)
	}
	return nil
}

func (s *taskStore) ListTasks(ctx context.Context, q task.Query) ([]task.Task, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if q.OwnerID != "" {
		add("owner_id = ?", q.OwnerID)
	}
	if q.PersonalOnly {
		conds = append(conds, "organization_id is null")
	}
	if q.OrganizationID != "" {
		add("organization_id = ?", q.OrganizationID)
	}
	if q.Complete != nil {
		add("is_complete = ?", *q.Complete)
	}
	if q.Priority != task.PriorityNone {
		add("priority = ?", string(q.Priority))
	}
	if q.Tag != "" {
		tag, err := json.Marshal([]string{q.Tag})
		if err != nil {
			return nil, storeErr(err)
		}
		add("tags @> ?", tag)
	}

	query := `
		select id, title, description, is_complete, due_date, priority, tags, owner_id, coalesce(organization_id,''), created_at, updated_at
		from tasks`
	if len(conds) > 0 {
		query += " where " + strings.Join(conds, " and ")
	}
	query += " order by created_at desc, id desc"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var res []task.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, storeErr(err)
		}
		res = append(res, t)
	}
	return res, storeErr(rows.Err())
}

func (s *taskStore) CreateTemplate(ctx context.Context, t *task.Template) error {
	tags, err := json.Marshal(normalizedTags(t.Tags))
	if err != nil {
		return storeErr(err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into templates(id, title, description, priority, tags, organization_id, creator_id, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, t.ID, t.Title, t.Description, string(t.Priority), tags, t.OrganizationID, t.CreatorID, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: template %s", apperr.ErrConflict, t.ID)
	}
	return storeErr(err)
}

func (s *taskStore) GetTemplate(ctx context.Context, id string) (task.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, title, description, priority, tags, organization_id, creator_id, created_at, updated_at
		from templates where id=$1
	`, id)
	t, err := scanTemplate(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Template{}, fmt.Errorf("%w: template %s", apperr.ErrNotFound, id)
	}
	return t, storeErr(err)
}

func (s *taskStore) UpdateTemplate(ctx context.Context, t task.Template) error {
	tags, err := json.Marshal(normalizedTags(t.Tags))
	if err != nil {
		return storeErr(err)
	}
	res, err := s.db.ExecContext(ctx, `
		update templates set title=$2, description=$3, priority=$4, tags=$5, updated_at=$6
		where id=$1
	`, t.ID, t.Title, t.Description, string(t.Priority), tags, t.UpdatedAt)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: template %s", apperr.ErrNotFound, t.ID)
	}
	return nil
}

func (s *taskStore) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from templates where id=$1`, id)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: template %s", apperr.ErrNotFound, id)
	}
	return nil
}

func (s *taskStore) ListTemplates(ctx context.Context, orgID string) ([]task.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, title, description, priority, tags, organization_id, creator_id, created_at, updated_at
		from templates where organization_id=$1
		order by created_at desc, id desc
	`, orgID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var res []task.Template
	for rows.Next() {
		t, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, storeErr(err)
		}
		res = append(res, t)
	}
	return res, storeErr(rows.Err())
}

func scanTask(scan func(dest ...any) error) (task.Task, error) {
	var (
		t        task.Task
		priority string
		tags     []byte
	)
	if err := scan(&t.ID, &t.Title, &t.Description, &t.Complete, &t.DueDate, &priority, &tags, &t.OwnerID, &t.OrganizationID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return task.Task{}, err
	}
	t.Priority = task.Priority(priority)
	if err := json.Unmarshal(tags, &t.Tags); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func scanTemplate(scan func(dest ...any) error) (task.Template, error) {
	var (
		t        task.Template
		priority string
		tags     []byte
	)
	if err := scan(&t.ID, &t.Title, &t.Description, &priority, &tags, &t.OrganizationID, &t.CreatorID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return task.Template{}, err
	}
	t.Priority = task.Priority(priority)
	if err := json.Unmarshal(tags, &t.Tags); err != nil {
		return task.Template{}, err
	}
	return t, nil
}

// normalizedTags keeps the stored jsonb an array, never null.
func normalizedTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
