package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/jrsteele09/go-credential-service/hashing"
	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/jrsteele09/go-credential-service/users"
	fakeuserrepo "github.com/jrsteele09/go-credential-service/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestNewCredentialService_RequiresDependencies(t *testing.T) {
	tokens, err := token.New(token.NewHMACSigner(secretStr))
	require.NoError(t, err)
	repo := fakeuserrepo.NewFakeUserRepo()
	hasher := hashing.NewBcryptHasher()

	_, err = auth.NewCredentialService(nil, hasher, tokens)
	require.Error(t, err)
	_, err = auth.NewCredentialService(repo, nil, tokens)
	require.Error(t, err)
	_, err = auth.NewCredentialService(repo, hasher, nil)
	require.Error(t, err)
}

func TestLogin_Success(t *testing.T) {
	f := setupTestFixture(t)
	f.seedDefaultUser(t)

	resp := f.login(t, testUserEmail, testUserPassword)

	require.Equal(t, int64(1), resp.Sub)
	require.Equal(t, "3600", resp.ExpiresIn)
	require.Equal(t, serviceAddress, resp.Audience)
	require.Equal(t, serviceAddress, resp.Issuer)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, users.PublicUser{ID: 1, Name: testUserName, Email: testUserEmail}, resp.User)

	id, err := f.guard.Authenticate(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.Sub, id)

	require.Equal(t, []string{auth.OutcomeSuccess}, f.recorder.logins)
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	f := setupTestFixture(t)
	f.seedDefaultUser(t)

	resp := f.login(t, "Test@Example.COM", testUserPassword)
	require.Equal(t, int64(1), resp.Sub)
	require.Equal(t, testUserEmail, resp.User.Email)
}

func TestLogin_LongMultibytePassword(t *testing.T) {
	f := setupTestFixture(t)
	password := strings.Repeat("é", 60)
	f.seedUser(t, testUserName, testUserEmail, password)

	resp := f.login(t, testUserEmail, password)
	require.Equal(t, int64(1), resp.Sub)
}

func TestLogin_UniformUnauthorized(t *testing.T) {
	f := setupTestFixture(t)
	f.seedDefaultUser(t)
	ctx := context.Background()

	_, wrongPassword := f.credentials.Login(ctx, auth.NewCredentials(testUserEmail, "wrong-password"))
	_, unknownEmail := f.credentials.Login(ctx, auth.NewCredentials("nobody@example.com", testUserPassword))

	require.ErrorIs(t, wrongPassword, apperrors.ErrUnauthorized)
	require.ErrorIs(t, unknownEmail, apperrors.ErrUnauthorized)
	require.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	require.Equal(t, []string{auth.OutcomeBadPassword, auth.OutcomeUnknownEmail}, f.recorder.logins)
}

func TestLogin_StorageFaultIsInternal(t *testing.T) {
	f := setupTestFixture(t)
	f.seedDefaultUser(t)
	f.userRepo.Err = errStorage

	_, err := f.credentials.Login(context.Background(), auth.NewCredentials(testUserEmail, testUserPassword))
	require.ErrorIs(t, err, apperrors.ErrInternal)
	require.NotErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLogin_InvalidBody(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.credentials.Login(context.Background(), auth.NewCredentials("", ""))
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Messages, 3)
	require.Equal(t, []string{auth.OutcomeInvalidInput}, f.recorder.logins)
}

func TestLogin_TokenExpires(t *testing.T) {
	f := setupTestFixture(t)
	f.seedDefaultUser(t)

	resp := f.login(t, testUserEmail, testUserPassword)

	f.clock.Advance(59 * time.Minute)
	_, err := f.guard.Authenticate(resp.AccessToken)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.guard.Authenticate(resp.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
