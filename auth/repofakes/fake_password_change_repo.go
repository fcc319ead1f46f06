package fakepasswordchangerepo

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-credential-service/auth"
	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/jrsteele09/go-credential-service/users"
)

var _ auth.PasswordChangeRepo = (*FakePasswordChangeRepo)(nil)

// FakePasswordChangeRepo keeps pending changes in memory and commits them
// against a users.Repo while holding its own lock.
type FakePasswordChangeRepo struct {
	users   users.Repo
	changes map[string]*auth.PendingChange // keyed by token hash
	lock    sync.Mutex

	// Err, when set, is returned by every method. Used to simulate storage faults.
	Err error
}

func NewFakePasswordChangeRepo(userRepo users.Repo) *FakePasswordChangeRepo {
	return &FakePasswordChangeRepo{
		users:   userRepo,
		changes: make(map[string]*auth.PendingChange),
	}
}

func (r *FakePasswordChangeRepo) Create(_ context.Context, change *auth.PendingChange) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.changes[change.TokenHash]; ok {
		return apperrors.ErrConflict
	}
	c := *change
	r.changes[change.TokenHash] = &c
	return nil
}

func (r *FakePasswordChangeRepo) Commit(ctx context.Context, tokenHash string, now time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.Err != nil {
		return 0, r.Err
	}

	change, ok := r.changes[tokenHash]
	if !ok || change.UsedAt != nil || !now.Before(change.ExpiresAt) {
		return 0, apperrors.ErrNotFound
	}

	if err := r.users.UpdatePasswordHash(ctx, change.UserID, change.PasswordHash); err != nil {
		return 0, err
	}

	usedAt := now
	change.UsedAt = &usedAt
	for hash, other := range r.changes {
		if other.UserID == change.UserID && hash != tokenHash {
			delete(r.changes, hash)
		}
	}
	return change.UserID, nil
}

func (r *FakePasswordChangeRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.Err != nil {
		return 0, r.Err
	}

	var n int64
	for hash, change := range r.changes {
		if change.UsedAt != nil || !now.Before(change.ExpiresAt) {
			delete(r.changes, hash)
			n++
		}
	}
	return n, nil
}

// Pending returns copies of the stored changes for a user.
func (r *FakePasswordChangeRepo) Pending(userID int64) []auth.PendingChange {
	r.lock.Lock()
	defer r.lock.Unlock()

	var out []auth.PendingChange
	for _, change := range r.changes {
		if change.UserID == userID {
			out = append(out, *change)
		}
	}
	return out
}
