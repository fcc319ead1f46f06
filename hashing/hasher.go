// Package hashing provides one-way salted password digests behind a single
// interface so the algorithm can change without touching its callers.
package hashing

import (
	"strings"

	"github.com/pkg/errors"
)

// Hasher produces and verifies salted password digests.
type Hasher interface {
	// Hash returns a new salted digest; two calls with the same input differ.
	Hash(plain string) (string, error)

	// Compare reports whether plain matches digest. A mismatch or an
	// unparseable digest is false, never an error.
	Compare(plain, digest string) bool
}

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// New returns the Hasher registered under name.
func New(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case AlgorithmBcrypt, "":
		return NewBcryptHasher(), nil
	case AlgorithmArgon2id:
		return NewArgon2idHasher(), nil
	default:
		return nil, errors.Errorf("[hashing.New] unsupported password hasher %q", name)
	}
}
