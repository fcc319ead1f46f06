// Package sqlite stores identities and pending password changes in a SQLite
// database using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT    NOT NULL DEFAULT '',
	email         TEXT    NOT NULL UNIQUE,
	password_hash TEXT    NOT NULL,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS password_changes (
	id            TEXT    PRIMARY KEY,
	user_id       INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	token_hash    TEXT    NOT NULL UNIQUE,
	password_hash TEXT    NOT NULL,
	expires_at    INTEGER NOT NULL,
	used_at       INTEGER,
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_password_changes_user ON password_changes(user_id);
`

// Store owns the database handle. Users and PasswordChanges expose it as
// users.Repo and auth.PasswordChangeRepo.
type Store struct {
	db        *sql.DB
	writeLock sync.Mutex // SQLite allows a single writer
	nowTime   func() time.Time
}

type Option func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// Open connects to the database at path, creating the schema if needed.
// Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string, options ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "[sqlite.Open] open db")
	}

	if path == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "[sqlite.Open] ping db")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "[sqlite.Open] create schema")
	}

	s := &Store{
		db:      db,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func dsn(path string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?" + pragmas
}

func (s *Store) Users() *UserRepo {
	return &UserRepo{Store: s}
}

func (s *Store) PasswordChanges() *PasswordChangeRepo {
	return &PasswordChangeRepo{Store: s}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

// mapError translates driver errors into the service's error kinds.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(apperrors.ErrNotFound, op)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		msg := liteErr.Error()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, code == sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return errors.Wrapf(apperrors.ErrConflict, "%s: %v", op, err)
		case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return errors.Wrapf(apperrors.ErrNotFound, "%s: %v", op, err)
		// primary result code only, when extended codes are off
		case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "UNIQUE"):
			return errors.Wrapf(apperrors.ErrConflict, "%s: %v", op, err)
		case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(msg, "FOREIGN KEY"):
			return errors.Wrapf(apperrors.ErrNotFound, "%s: %v", op, err)
		}
	}
	return errors.Wrap(err, op)
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
