package errors_test

import (
	stderrors "errors"
	"testing"

	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorIsBadRequest(t *testing.T) {
	err := apperrors.Wrapf(apperrors.NewValidationError("email should not be empty", "password must be a string"), "[Test] validate")

	require.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	require.False(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	var verr *apperrors.ValidationError
	require.True(t, apperrors.As(err, &verr))
	require.Equal(t, []string{"email should not be empty", "password must be a string"}, verr.Messages)
	require.Contains(t, err.Error(), "[Test] validate")
}

func TestWrapfNil(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "nothing %d", 1))
	require.True(t, stderrors.Is(apperrors.Wrapf(apperrors.ErrNotFound, "user %d", 7), apperrors.ErrNotFound))
}
