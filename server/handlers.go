package server

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-credential-service/auth"
	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/pkg/errors"
)

// LoginHandler exchanges email and password for an access token
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var credentials auth.Credentials
		if err := decodeJSON(w, r, &credentials); err != nil {
			s.writeError(w, err)
			return
		}

		resp, err := s.services.Credentials.Login(r.Context(), credentials)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ChangePasswordHandler starts a password change for the authenticated caller
func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, ok := UserIDFromContext(r.Context())
		if !ok {
			s.writeError(w, errors.Wrap(apperrors.ErrUnauthorized, "no caller in context"))
			return
		}

		var credentials auth.Credentials
		if err := decodeJSON(w, r, &credentials); err != nil {
			s.writeError(w, err)
			return
		}

		ack, err := s.services.PasswordChanges.RequestChange(r.Context(), callerID, credentials)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ack)
	}
}

// ConfirmChangePasswordHandler commits a pending change. The token comes from
// a JSON {token} body, or from the form on the confirmation page.
func (s *Server) ConfirmChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.ConfirmRequest
		if isFormPost(r) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := r.ParseForm(); err != nil {
				s.writeError(w, apperrors.NewValidationError("malformed request body"))
				return
			}
			if values, ok := r.PostForm["token"]; ok && len(values) > 0 {
				req = auth.NewConfirmRequest(values[0])
			}
		} else if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		s.confirmChange(w, r, req)
	}
}

// ConfirmChangePasswordPageHandler answers the mailed link with a page whose
// form posts the token back. Fetching the link, including HEAD requests and
// link previews, changes nothing.
func (s *Server) ConfirmChangePasswordPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := confirmPage{Token: r.URL.Query().Get("token")}

		var buf bytes.Buffer
		if err := confirmPageTemplate.Execute(&buf, page); err != nil {
			s.writeError(w, errors.Wrap(err, "[Server.ConfirmChangePasswordPageHandler]"))
			return
		}

		header := w.Header()
		header.Set("Content-Type", "text/html; charset=utf-8")
		header.Set("Cache-Control", "no-store")
		header.Set("Referrer-Policy", "no-referrer")
		header.Set("Content-Security-Policy", "default-src 'none'; form-action 'self'")

		status := http.StatusOK
		if page.Token == "" {
			status = http.StatusBadRequest
		}
		w.WriteHeader(status)
		_, _ = w.Write(buf.Bytes())
	}
}

func isFormPost(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

func (s *Server) confirmChange(w http.ResponseWriter, r *http.Request, req auth.ConfirmRequest) {
	ack, err := s.services.PasswordChanges.ConfirmChange(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

type introspectRequest struct {
	Token string `json:"token"`
}

// IntrospectHandler reports whether a token is active, RFC 7662 style
func (s *Server) IntrospectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req introspectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.services.Tokens.Introspect(req.Token))
	}
}

// GetUserHandler returns the public profile of a user
func (s *Server) GetUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || id <= 0 {
			s.writeError(w, apperrors.NewValidationError("id must be a positive integer"))
			return
		}

		user, err := s.services.Users.FindByID(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user.Public())
	}
}

// JWKSHandler returns the JSON Web Key Set used to validate tokens
func (s *Server) JWKSHandler(signer *token.KeyPairSigner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := signer.GetJWKS()
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		writeJSON(w, http.StatusOK, jwks)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
