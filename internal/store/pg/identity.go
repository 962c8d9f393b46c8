package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskhive.org/internal/apperr"
	"taskhive.org/internal/identity"
)

var _ identity.Store = (*identityStore)(nil)

type identityStore struct{ db *sql.DB }

func (s *identityStore) CreateUser(ctx context.Context, u *identity.User, p *identity.Profile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		insert into users(id, email, password_hash, email_verified, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6)
	`, u.ID, u.Email, u.PasswordHash, u.EmailVerified, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: email already registered", apperr.ErrConflict)
	}
	if err != nil {
		return storeErr(err)
	}
	if _, err := tx.ExecContext(ctx, `
		insert into profiles(user_id, display_name, avatar_url, updated_at)
		values ($1,$2,$3,$4)
	`, p.UserID, p.DisplayName, p.AvatarURL, p.UpdatedAt); err != nil {
		return storeErr(err)
	}
	return storeErr(tx.Commit())
}

func (s *identityStore) GetUser(ctx context.Context, id string) (identity.User, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, email_verified, created_at, updated_at
		from users where id=$1
	`, id)
	return scanUser(row, id)
}

func (s *identityStore) FindUserByEmail(ctx context.Context, email string) (identity.User, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, email, password_hash, email_verified, created_at, updated_at
		from users where email=$1
	`, email)
	return scanUser(row, email)
}

func scanUser(row *sql.Row, key string) (identity.User, error) {
	var u identity.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, fmt.Errorf("%w: user %s", apperr.ErrNotFound, key)
	}
	if err != nil {
		return identity.User{}, storeErr(err)
	}
	return u, nil
}

func (s *identityStore) MarkEmailVerified(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		update users set email_verified=true, updated_at=now() where id=$1
	`, userID)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s", apperr.ErrNotFound, userID)
	}
	return nil
}

func (s *identityStore) GetProfile(ctx context.Context, userID string) (identity.Profile, error) {
	var p identity.Profile
	err := s.db.QueryRowContext(ctx, `
		select user_id, display_name, avatar_url, updated_at from profiles where user_id=$1
	`, userID).Scan(&p.UserID, &p.DisplayName, &p.AvatarURL, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Profile{}, fmt.Errorf("%w: profile %s", apperr.ErrNotFound, userID)
	}
	if err != nil {
		return identity.Profile{}, storeErr(err)
	}
	return p, nil
}

func (s *identityStore) UpdateProfile(ctx context.Context, p identity.Profile) error {
	res, err := s.db.ExecContext(ctx, `
		update profiles set display_name=$2, avatar_url=$3, updated_at=$4 where user_id=$1
	`, p.UserID, p.DisplayName, p.AvatarURL, p.UpdatedAt)
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: profile %s", apperr.ErrNotFound, p.UserID)
	}
	return nil
}

func (s *identityStore) GetProfiles(ctx context.Context, userIDs []string) (map[string]identity.Profile, error) {
	out := make(map[string]identity.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		select user_id, display_name, avatar_url, updated_at from profiles where user_id = any($1)
	`, userIDs)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var p identity.Profile
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.AvatarURL, &p.UpdatedAt); err != nil {
			return nil, storeErr(err)
		}
		out[p.UserID] = p
	}
	return out, storeErr(rows.Err())
}
