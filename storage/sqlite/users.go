package sqlite

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/jrsteele09/go-credential-service/users"
	"github.com/pkg/errors"
)

var _ users.Repo = (*UserRepo)(nil)

// UserRepo is the users.Repo view of a Store.
type UserRepo struct {
	*Store
}

const userColumns = "id, name, email, password_hash, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*users.User, error) {
	var u users.User
	var createdAt, updatedAt int64
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	return &u, nil
}

func (s *UserRepo) Create(ctx context.Context, user *users.User) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	now := s.nowTime()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}
	user.Email = users.NormalizeEmail(user.Email)

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		user.Name, user.Email, user.PasswordHash, toUnix(user.CreatedAt), toUnix(user.UpdatedAt),
	)
	if err != nil {
		return mapError(err, "[UserRepo.Create] insert user")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "[UserRepo.Create] last insert id")
	}
	user.ID = id
	return nil
}

func (s *UserRepo) GetByID(ctx context.Context, id int64) (*users.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, "[UserRepo.GetByID]")
	}
	return u, nil
}

func (s *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", users.NormalizeEmail(email))
	u, err := scanUser(row)
	if err != nil {
		return nil, mapError(err, "[UserRepo.GetByEmail]")
	}
	return u, nil
}

func (s *UserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", id).Scan(&exists); err != nil {
		return false, mapError(err, "[UserRepo.Exists]")
	}
	return exists, nil
}

func (s *UserRepo) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	return updatePasswordHash(ctx, s.db, id, passwordHash, s.nowTime())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func updatePasswordHash(ctx context.Context, db execer, id int64, passwordHash string, now time.Time) error {
	res, err := db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		passwordHash, toUnix(now), id,
	)
	if err != nil {
		return mapError(err, "[UserRepo.UpdatePasswordHash]")
	}
	return requireAffected(res, "[UserRepo.UpdatePasswordHash]")
}

func (s *UserRepo) Delete(ctx context.Context, id int64) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return mapError(err, "[UserRepo.Delete]")
	}
	return requireAffected(res, "[UserRepo.Delete]")
}

func (s *UserRepo) List(ctx context.Context, offset, limit int) ([]*users.User, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1 // no limit
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, offset)
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

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if n == 0 {
		return errors.Wrap(apperrors.ErrNotFound, op)
	}
	return nil
}
