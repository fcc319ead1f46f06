package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
)

const (
	confirmationTokenBytes = 32
	DefaultConfirmationTTL = time.Hour
)

// generateConfirmationToken returns a random token for the user and the hash
// that is persisted in its place.
func generateConfirmationToken() (token string, tokenHash string, err error) {
	b := make([]byte, confirmationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", errors.Wrap(err, "failed to generate confirmation token")
	}
	token = hex.EncodeToString(b)
	return token, HashConfirmationToken(token), nil
}

// HashConfirmationToken returns the hex SHA-256 of token. A fast hash is
// enough here because the token carries 256 bits of entropy.
func HashConfirmationToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
