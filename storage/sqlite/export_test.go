package sqlite

import (
	"context"
	"database/sql"

	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/pkg/errors"
)

// PendingChanges lists the stored changes of a user, newest first, so tests
// can inspect rows the repo interface never returns.
func (s *PasswordChangeRepo) PendingChanges(ctx context.Context, userID int64) ([]auth.PendingChange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, token_hash, password_hash, expires_at, used_at, created_at
		 FROM password_changes WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, mapError(err, "[PasswordChangeRepo.PendingChanges]")
	}
	defer rows.Close()

	var out []auth.PendingChange
	for rows.Next() {
		var c auth.PendingChange
		var expiresAt, createdAt int64
		var usedAt sql.NullInt64
		if err := rows.Scan(&c.ID, &c.UserID, &c.TokenHash, &c.PasswordHash, &expiresAt, &usedAt, &createdAt); err != nil {
			return nil, errors.Wrap(err, "[PasswordChangeRepo.PendingChanges] scan")
		}
		c.ExpiresAt = fromUnix(expiresAt)
		c.CreatedAt = fromUnix(createdAt)
		if usedAt.Valid {
			t := fromUnix(usedAt.Int64)
			c.UsedAt = &t
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "[PasswordChangeRepo.PendingChanges]")
}
