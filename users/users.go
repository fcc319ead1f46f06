package users

import (
	"strings"
	"time"
)

// User is an identity known to the credential service.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`                // Canonical (trimmed, lower case) and unique
	PasswordHash string    `json:"-"`                    // One-way digest - never serialize
	CreatedAt    time.Time `json:"created_at,omitempty"` // Set by the repo on Create
	UpdatedAt    time.Time `json:"updated_at,omitempty"` // Bumped on every password change
}

// PublicUser is the projection of a User that may leave the service.
type PublicUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}

// Clone returns a copy that can be handed out without sharing state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// NormalizeEmail returns the canonical, case-insensitive form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
