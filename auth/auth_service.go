package auth

import (
	"context"
	"strconv"
	"sync"

	"github.com/jrsteele09/go-credential-service/hashing"
	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/jrsteele09/go-credential-service/users"
	"github.com/pkg/errors"
)

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Sub         int64            `json:"sub"`
	ExpiresIn   string           `json:"expiresIn"` // Lifetime in seconds
	Audience    string           `json:"audience"`
	Issuer      string           `json:"issuer"`
	AccessToken string           `json:"accessToken"`
	User        users.PublicUser `json:"user"`
}

// CredentialService verifies email and password and mints access tokens.
type CredentialService struct {
	users  users.Repo
	hasher hashing.Hasher
	tokens *token.Manager
	settings

	// Compared against on unknown emails so both failure paths cost one hash check.
	dummyOnce   sync.Once
	dummyDigest string
}

func NewCredentialService(userRepo users.Repo, hasher hashing.Hasher, tokens *token.Manager, options ...Option) (*CredentialService, error) {
	if userRepo == nil {
		return nil, errors.New("[NewCredentialService] users repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[NewCredentialService] hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewCredentialService] token manager is required")
	}

	return &CredentialService{
		users:    userRepo,
		hasher:   hasher,
		tokens:   tokens,
		settings: newSettings(options),
	}, nil
}

// Login authenticates the credentials. Unknown email and wrong password both
// fail with the same errors.ErrUnauthorized.
func (cs *CredentialService) Login(ctx context.Context, req Credentials) (*LoginResponse, error) {
	if err := req.Validate(); err != nil {
		cs.recorder.LoginAttempt(OutcomeInvalidInput)
		return nil, errors.Wrap(err, "[CredentialService.Login]")
	}
	email := req.NormalizedEmail()

	user, err := cs.users.GetByEmail(ctx, email)
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		cs.hasher.Compare(req.Password.Value, cs.dummy())
		cs.recorder.LoginAttempt(OutcomeUnknownEmail)
		cs.logger.Info().Msg("login rejected: unknown email")
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "[CredentialService.Login]")
	case err != nil:
		cs.recorder.LoginAttempt(OutcomeError)
		cs.logger.Error().Err(err).Msg("login failed: user lookup")
		return nil, errors.Wrapf(apperrors.ErrInternal, "[CredentialService.Login] user lookup: %v", err)
	}

	if !cs.hasher.Compare(req.Password.Value, user.PasswordHash) {
		cs.recorder.LoginAttempt(OutcomeBadPassword)
		cs.logger.Info().Int64("user_id", user.ID).Msg("login rejected: password mismatch")
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "[CredentialService.Login]")
	}

	issued, err := cs.tokens.Issue(user.ID, user.Email)
	if err != nil {
		cs.recorder.LoginAttempt(OutcomeError)
		cs.logger.Error().Err(err).Int64("user_id", user.ID).Msg("login failed: token signing")
		return nil, errors.Wrapf(apperrors.ErrInternal, "[CredentialService.Login] issue token: %v", err)
	}

	cs.recorder.LoginAttempt(OutcomeSuccess)
	cs.logger.Info().Int64("user_id", user.ID).Str("jti", issued.ID).Msg("login succeeded")

	return &LoginResponse{
		Sub:         user.ID,
		ExpiresIn:   strconv.FormatInt(int64(issued.ExpiresIn.Seconds()), 10),
		Audience:    issued.Audience,
		Issuer:      issued.Issuer,
		AccessToken: issued.Token,
		User:        user.Public(),
	}, nil
}

func (cs *CredentialService) dummy() string {
	cs.dummyOnce.Do(func() {
		digest, err := cs.hasher.Hash("credential-service-timing-equaliser")
		if err == nil {
			cs.dummyDigest = digest
		}
	})
	return cs.dummyDigest
}
