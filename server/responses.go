package server

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/pkg/errors"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxBodyBytes    = 1 << 20
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error,omitempty"`
	Message    any    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps an error kind to its status and body. Details of internal
// errors are logged, never returned.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validationErr *apperrors.ValidationError
	switch {
	case apperrors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorBody{
			StatusCode: http.StatusBadRequest,
			Error:      "Bad Request",
			Message:    validationErr.Messages,
		})
	case apperrors.Is(err, apperrors.ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{
			StatusCode: http.StatusBadRequest,
			Error:      "Bad Request",
			Message:    []string{"bad request"},
		})
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
		})
	case apperrors.Is(err, apperrors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{
			StatusCode: http.StatusNotFound,
			Error:      "Not Found",
			Message:    "Resource not found",
		})
	case apperrors.Is(err, apperrors.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{
			StatusCode: http.StatusConflict,
			Error:      "Conflict",
			Message:    "Resource already exists",
		})
	default:
		s.logger.Error().Err(err).Msg("internal server error")
		writeJSON(w, http.StatusInternalServerError, errorBody{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
		})
	}
}

// decodeJSON reads a JSON request body into v. An empty body decodes as an
// empty object so the field rules report what is missing.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := decoder.Decode(v)
	if errors.Is(err, io.EOF) {
		err = json.Unmarshal([]byte("{}"), v)
	}
	if err != nil {
		return apperrors.NewValidationError("malformed request body")
	}
	if decoder.More() {
		return apperrors.NewValidationError("malformed request body")
	}
	return nil
}
