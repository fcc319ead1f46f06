package auth

import (
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/pkg/errors"
)

// AccessGuard resolves bearer tokens to user IDs. Validity comes from the
// signature and expiry alone, so it does no storage lookups and holds no
// mutable state.
type AccessGuard struct {
	tokens *token.Manager
}

func NewAccessGuard(tokens *token.Manager) (*AccessGuard, error) {
	if tokens == nil {
		return nil, errors.New("[NewAccessGuard] token manager is required")
	}
	return &AccessGuard{tokens: tokens}, nil
}

// Authenticate returns the subject of a valid token, or errors.ErrUnauthorized
// when the token is missing, malformed, forged or expired.
func (g *AccessGuard) Authenticate(rawToken string) (int64, error) {
	claims, err := g.tokens.Verify(rawToken)
	if err != nil {
		return 0, errors.Wrap(err, "[AccessGuard.Authenticate]")
	}
	id, err := claims.SubjectID()
	if err != nil {
		return 0, errors.Wrap(err, "[AccessGuard.Authenticate]")
	}
	return id, nil
}
