package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/pkg/errors"
)

var _ auth.PasswordChangeRepo = (*PasswordChangeRepo)(nil)

// PasswordChangeRepo is the auth.PasswordChangeRepo view of a Store.
type PasswordChangeRepo struct {
	*Store
}

func (s *PasswordChangeRepo) Create(ctx context.Context, change *auth.PendingChange) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	var usedAt sql.NullInt64
	if change.UsedAt != nil {
		usedAt = sql.NullInt64{Int64: toUnix(*change.UsedAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO password_changes (id, user_id, token_hash, password_hash, expires_at, used_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		change.ID, change.UserID, change.TokenHash, change.PasswordHash,
		toUnix(change.ExpiresAt), usedAt, toUnix(change.CreatedAt),
	)
	return mapError(err, "[PasswordChangeRepo.Create]")
}

func (s *PasswordChangeRepo) Commit(ctx context.Context, tokenHash string, now time.Time) (int64, error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	var userID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE password_changes SET used_at = ? WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?",
			toUnix(now), tokenHash, toUnix(now),
		)
		if err != nil {
			return mapError(err, "mark used")
		}
		if err := requireAffected(res, "mark used"); err != nil {
			return err
		}

		var passwordHash string
		if err := tx.QueryRowContext(ctx,
			"SELECT user_id, password_hash FROM password_changes WHERE token_hash = ?", tokenHash,
		).Scan(&userID, &passwordHash); err != nil {
			return mapError(err, "load change")
		}

		if err := updatePasswordHash(ctx, tx, userID, passwordHash, now); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"DELETE FROM password_changes WHERE user_id = ? AND token_hash <> ?", userID, tokenHash,
		)
		return mapError(err, "discard other changes")
	})
	if err != nil {
		return 0, errors.Wrap(err, "[PasswordChangeRepo.Commit]")
	}
	return userID, nil
}

func (s *PasswordChangeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM password_changes WHERE used_at IS NOT NULL OR expires_at <= ?", toUnix(now),
	)
	if err != nil {
		return 0, mapError(err, "[PasswordChangeRepo.DeleteExpired]")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "[PasswordChangeRepo.DeleteExpired]")
}
