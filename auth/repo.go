package auth

import (
	"context"
	"time"
)

// PendingChange is a requested but unconfirmed password change. Only the
// SHA-256 of the confirmation token and the digest of the new password are kept.
type PendingChange struct {
	ID           string
	UserID       int64
	TokenHash    string
	PasswordHash string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UsedAt       *time.Time
}

// PasswordChangeRepo stores pending changes for the commit phase.
type PasswordChangeRepo interface {
	Create(ctx context.Context, change *PendingChange) error

	// Commit applies the pending change identified by tokenHash in a single
	// atomic step: it marks the change used only if it is unused and
	// unexpired at now, replaces the user's password hash with the pending
	// digest and discards the user's other pending changes. It returns the
	// affected user ID, or errors.ErrNotFound when no change qualifies.
	Commit(ctx context.Context, tokenHash string, now time.Time) (int64, error)

	// DeleteExpired removes changes that are used or expired at now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
