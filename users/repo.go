package users

import (
	"context"
)

// Repo stores identities. Implementations canonicalise emails with
// NormalizeEmail, return errors.ErrNotFound for missing rows and
// errors.ErrConflict for a duplicate email.
type Repo interface {
	// Create inserts the user and assigns its ID and timestamps.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	// List returns users ordered by ID. A limit <= 0 returns everything from offset.
	List(ctx context.Context, offset, limit int) ([]*User, error)
}
