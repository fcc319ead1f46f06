package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/pkg/errors"
)

var _ auth.PasswordChangeRepo = (*PasswordChangeRepo)(nil)

// PasswordChangeRepo is the auth.PasswordChangeRepo view of a Store.
type PasswordChangeRepo struct {
	*Store
}

func (s *PasswordChangeRepo) Create(ctx context.Context, change *auth.PendingChange) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO password_changes (id, user_id, token_hash, password_hash, expires_at, used_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		change.ID, change.UserID, change.TokenHash, change.PasswordHash,
		change.ExpiresAt, change.UsedAt, change.CreatedAt,
	)
	return mapError(err, "[PasswordChangeRepo.Create]")
}

// Commit relies on the row lock taken by the conditional UPDATE: a second
// transaction racing on the same token re-evaluates used_at after the first
// commits and matches nothing.
func (s *PasswordChangeRepo) Commit(ctx context.Context, tokenHash string, now time.Time) (int64, error) {
	var userID int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var passwordHash string
		err := tx.QueryRow(ctx,
			`UPDATE password_changes SET used_at = $1
			 WHERE token_hash = $2 AND used_at IS NULL AND expires_at > $1
			 RETURNING user_id, password_hash`,
			now, tokenHash,
		).Scan(&userID, &passwordHash)
		if err != nil {
			return mapError(err, "mark used")
		}

		tag, err := tx.Exec(ctx,
			"UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3",
			passwordHash, now, userID,
		)
		if err != nil {
			return mapError(err, "update password")
		}
		if err := requireAffected(tag, "update password"); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			"DELETE FROM password_changes WHERE user_id = $1 AND token_hash <> $2", userID, tokenHash,
		)
		return mapError(err, "discard other changes")
	})
	if err != nil {
		return 0, errors.Wrap(err, "[PasswordChangeRepo.Commit]")
	}
	return userID, nil
}

func (s *PasswordChangeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM password_changes WHERE used_at IS NOT NULL OR expires_at <= $1", now,
	)
	if err != nil {
		return 0, mapError(err, "[PasswordChangeRepo.DeleteExpired]")
	}
	return tag.RowsAffected(), nil
}
