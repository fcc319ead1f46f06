package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-credential-service/users"
	"github.com/pkg/errors"
)

var _ users.Repo = (*UserRepo)(nil)

// UserRepo is the users.Repo view of a Store.
type UserRepo struct {
	*Store
}

const userColumns = "id, name, email, password_hash, created_at, updated_at"

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func (s *UserRepo) Create(ctx context.Context, user *users.User) error {
	now := s.nowTime()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	user.Email = users.NormalizeEmail(user.Email)

	err := s.pool.QueryRow(ctx,
		"INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	return mapError(err, "[UserRepo.Create]")
}

func (s *UserRepo) GetByID(ctx context.Context, id int64) (*users.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, "[UserRepo.GetByID]")
	}
	return u, nil
}

func (s *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", users.NormalizeEmail(email)))
	if err != nil {
		return nil, mapError(err, "[UserRepo.GetByEmail]")
	}
	return u, nil
}

func (s *UserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, mapError(err, "[UserRepo.Exists]")
	}
	return exists, nil
}

func (s *UserRepo) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3",
		passwordHash, s.nowTime(), id,
	)
	if err != nil {
		return mapError(err, "[UserRepo.UpdatePasswordHash]")
	}
	return requireAffected(tag, "[UserRepo.UpdatePasswordHash]")
}

func (s *UserRepo) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return mapError(err, "[UserRepo.Delete]")
	}
	return requireAffected(tag, "[UserRepo.Delete]")
}

func (s *UserRepo) List(ctx context.Context, offset, limit int) ([]*users.User, error) {
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + userColumns + " FROM users ORDER BY id OFFSET $1"
	args := []any{offset}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "[UserRepo.List]")
	}
	defer rows.Close()

	list := []*users.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "[UserRepo.List] scan")
		}
		list = append(list, u)
	}
	return list, errors.Wrap(rows.Err(), "[UserRepo.List]")
}
