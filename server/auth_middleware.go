package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/pkg/errors"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
)

// UserIDFromContext returns the ID stored by RequireAuth.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(int64)
	return id, ok
}

// RequireAuth is middleware that validates a Bearer access token. It rejects
// the request with 401 before the body is read.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rawToken, ok := bearerToken(r)
			if !ok {
				s.writeError(w, errors.Wrap(apperrors.ErrUnauthorized, "missing bearer token"))
				return
			}

			userID, err := s.services.Guard.Authenticate(rawToken)
			if err != nil {
				s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer token rejected")
				s.writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
			next(w, r.WithContext(ctx))
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
