package hashing

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var _ Hasher = (*BcryptHasher)(nil)

// bcryptMaxInput is the number of bytes bcrypt reads from a password.
const bcryptMaxInput = 72

type BcryptHasher struct {
	cost int
}

type BcryptOption func(*BcryptHasher)

// WithCost overrides bcrypt.DefaultCost. Values outside bcrypt's range fall
// back to the default.
func WithCost(cost int) BcryptOption {
	return func(h *BcryptHasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

func NewBcryptHasher(options ...BcryptOption) *BcryptHasher {
	h := &BcryptHasher{cost: bcrypt.DefaultCost}
	for _, opt := range options {
		opt(h)
	}
	return h
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(bcryptInput(plain), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "[BcryptHasher.Hash] failed to hash password")
	}
	return string(digest), nil
}

func (h *BcryptHasher) Compare(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), bcryptInput(plain)) == nil
}

// bcryptInput passes short passwords through unchanged. Longer ones are
// reduced to the base64 SHA-256 of the password so every byte counts and
// bcrypt never rejects them.
func bcryptInput(plain string) []byte {
	if len(plain) <= bcryptMaxInput {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
