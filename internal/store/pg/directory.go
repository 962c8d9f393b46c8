package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskhive.org/internal/apperr"
	"taskhive.org/internal/directory"
)

var _ directory.Store = (*directoryStore)(nil)

type directoryStore struct{ db *sql.DB }

func (s *directoryStore) CreateOrganization(ctx context.Context, org *directory.Organization, creator *directory.Membership) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		insert into organizations(id, name, description, join_secret_hash, creator_id, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, org.ID, org.Name, org.Description, org.JoinSecretHash, org.CreatorID, org.CreatedAt, org.UpdatedAt); err != nil {
		return storeErr(err)
	}
	if _, err := tx.ExecContext(ctx, `
		insert into memberships(id, organization_id, user_id, role, joined_at)
		values ($1,$2,$3,$4,$5)
	`, creator.ID, creator.OrganizationID, creator.UserID, creator.Role, creator.JoinedAt); err != nil {
		return storeErr(err)
	}
	return storeErr(tx.Commit())
}

func (s *directoryStore) GetOrganization(ctx context.Context, id string) (directory.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, name, description, join_secret_hash, creator_id, created_at, updated_at
		from organizations where id=$1
	`, id)
	var org directory.Organization
	err := row.Scan(&org.ID, &org.Name, &org.Description, &org.JoinSecretHash, &org.CreatorID, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Organization{}, fmt.Errorf("%w: organization %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return directory.Organization{}, storeErr(err)
	}
	return org, nil
}

func (s *directoryStore) FindOrganizationsByName(ctx context.Context, name string) ([]directory.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, description, join_secret_hash, creator_id, created_at, updated_at
		from organizations where name=$1
		order by created_at asc, id asc
	`, name)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var res []directory.Organization
	for rows.Next() {
		var org directory.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Description, &org.JoinSecretHash, &org.CreatorID, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, storeErr(err)
		}
		res = append(res, org)
	}
	return res, storeErr(rows.Err())
}

func (s *directoryStore) UpdateOrganization(ctx context.Context, org directory.Organization) error {
	res, err := s.db.ExecContext(ctx, `
		update organizations set name=$2, description=$3, join_secret_hash=$4, updated_at=$5
		where id=$1
	`, org.ID, org.Name, org.Description, org.JoinSecretHash, org.UpdatedAt)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: organization %s", apperr.ErrNotFound, org.ID)
	}
	return nil
}

func (s *directoryStore) CreateMembership(ctx context.Context, m *directory.Membership) error {
	_, err := s.db.ExecContext(ctx, `
		insert into memberships(id, organization_id, user_id, role, joined_at)
		values ($1,$2,$3,$4,$5)
	`, m.ID, m.OrganizationID, m.UserID, m.Role, m.JoinedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: already a member", apperr.ErrConflict)
	}
	return storeErr(err)
}

func (s *directoryStore) GetMembership(ctx context.Context, orgID, userID string) (directory.Membership, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, organization_id, user_id, role, joined_at
		from memberships where organization_id=$1 and user_id=$2
	`, orgID, userID)
	var m directory.Membership
	err := row.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return directory.Membership{}, fmt.Errorf("%w: membership", apperr.ErrNotFound)
	}
	if err != nil {
		return directory.Membership{}, storeErr(err)
	}
	return m, nil
}

func (s *directoryStore) DeleteMembership(ctx context.Context, orgID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from memberships where organization_id=$1 and user_id=$2
	`, orgID, userID)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: membership", apperr.ErrNotFound)
	}
	return nil
}

func (s *directoryStore) ListMemberships(ctx context.Context, orgID string) ([]directory.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, user_id, role, joined_at
		from memberships where organization_id=$1
		order by joined_at asc, id asc
	`, orgID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var res []directory.Membership
	for rows.Next() {
		var m directory.Membership
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, storeErr(err)
		}
		res = append(res, m)
	}
	return res, storeErr(rows.Err())
}
