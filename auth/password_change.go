package auth

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-credential-service/hashing"
	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/jrsteele09/go-credential-service/mailer"
	"github.com/jrsteele09/go-credential-service/users"
	"github.com/pkg/errors"
)

const (
	ChangeRequestedMessage = "Request Change Password Successfully!"
	ChangeConfirmedMessage = "Password Changed Successfully!"
)

// Acknowledgement is the fixed response body of the password change endpoints.
type Acknowledgement struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Notifier hands a message off for delivery without waiting for it.
type Notifier interface {
	Dispatch(msg mailer.Message) error
}

// Repos holds all repository dependencies for the PasswordChangeFlow
type Repos struct {
	Users           users.Repo         // Repository for user data
	PasswordChanges PasswordChangeRepo // Repository for pending password changes
}

// PasswordChangeConfig tunes the confirmation step.
type PasswordChangeConfig struct {
	ConfirmURL      string        // Link mailed to the user; the token is added as ?token=
	ConfirmationTTL time.Duration // Lifetime of a confirmation token
}

// PasswordChangeFlow runs the two-phase password change. RequestChange is
// called for an already authenticated caller and stores a pending change;
// ConfirmChange commits it once the emailed token comes back.
type PasswordChangeFlow struct {
	repos    Repos
	hasher   hashing.Hasher
	notifier Notifier
	config   PasswordChangeConfig
	settings
}

func NewPasswordChangeFlow(repos Repos, hasher hashing.Hasher, notifier Notifier, config PasswordChangeConfig, options ...Option) (*PasswordChangeFlow, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewPasswordChangeFlow] Users repo is required")
	}
	if repos.PasswordChanges == nil {
		return nil, errors.New("[NewPasswordChangeFlow] PasswordChanges repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[NewPasswordChangeFlow] hasher is required")
	}
	if notifier == nil {
		return nil, errors.New("[NewPasswordChangeFlow] notifier is required")
	}
	if _, err := url.Parse(config.ConfirmURL); err != nil || config.ConfirmURL == "" {
		return nil, errors.Errorf("[NewPasswordChangeFlow] invalid confirm URL %q", config.ConfirmURL)
	}
	if config.ConfirmationTTL <= 0 {
		config.ConfirmationTTL = DefaultConfirmationTTL
	}

	return &PasswordChangeFlow{
		repos:    repos,
		hasher:   hasher,
		notifier: notifier,
		config:   config,
		settings: newSettings(options),
	}, nil
}

func requestedAck() *Acknowledgement {
	return &Acknowledgement{Message: ChangeRequestedMessage, Status: 200}
}

// RequestChange validates the request and, when the email belongs to the
// caller, stores a pending change and mails a confirmation link. Unknown
// emails and emails of other accounts get the same acknowledgement and cause
// no side effects.
func (f *PasswordChangeFlow) RequestChange(ctx context.Context, callerID int64, req Credentials) (*Acknowledgement, error) {
	if err := req.Validate(); err != nil {
		f.recorder.ChangeRequested(OutcomeInvalidInput)
		return nil, errors.Wrap(err, "[PasswordChangeFlow.RequestChange]")
	}

	user, err := f.repos.Users.GetByEmail(ctx, req.NormalizedEmail())
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		f.recorder.ChangeRequested(OutcomeUnknownEmail)
		f.logger.Info().Int64("caller_id", callerID).Msg("password change requested for unknown email")
		return requestedAck(), nil
	case err != nil:
		f.recorder.ChangeRequested(OutcomeError)
		f.logger.Error().Err(err).Int64("caller_id", callerID).Msg("password change failed: user lookup")
		return nil, errors.Wrapf(apperrors.ErrInternal, "[PasswordChangeFlow.RequestChange] user lookup: %v", err)
	}

	if user.ID != callerID {
		f.recorder.ChangeRequested(OutcomeCallerMismatch)
		f.logger.Warn().Int64("caller_id", callerID).Int64("user_id", user.ID).Msg("password change requested for another account")
		return requestedAck(), nil
	}

	digest, err := f.hasher.Hash(req.Password.Value)
	if err != nil {
		f.recorder.ChangeRequested(OutcomeError)
		f.logger.Error().Err(err).Int64("user_id", user.ID).Msg("password change failed: hashing")
		return nil, errors.Wrapf(apperrors.ErrInternal, "[PasswordChangeFlow.RequestChange] hash: %v", err)
	}

	confirmationToken, tokenHash, err := generateConfirmationToken()
	if err != nil {
		f.recorder.ChangeRequested(OutcomeError)
		return nil, errors.Wrapf(apperrors.ErrInternal, "[PasswordChangeFlow.RequestChange] %v", err)
	}

	now := f.nowTime()
	change := &PendingChange{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		TokenHash:    tokenHash,
		PasswordHash: digest,
		ExpiresAt:    now.Add(f.config.ConfirmationTTL),
		CreatedAt:    now,
	}
	if err := f.repos.PasswordChanges.Create(ctx, change); err != nil {
		f.recorder.ChangeRequested(OutcomeError)
		f.logger.Error().Err(err).Int64("user_id", user.ID).Msg("password change failed: store pending change")
		return nil, errors.Wrapf(apperrors.ErrInternal, "[PasswordChangeFlow.RequestChange] store: %v", err)
	}

	if err := f.notifier.Dispatch(f.confirmationMail(user, confirmationToken)); err != nil {
		f.logger.Warn().Err(err).Int64("user_id", user.ID).Msg("confirmation mail not dispatched")
	}

	f.recorder.ChangeRequested(OutcomeSuccess)
	f.logger.Info().Int64("user_id", user.ID).Str("change_id", change.ID).Msg("password change pending confirmation")
	return requestedAck(), nil
}

// ConfirmChange commits the pending change the token belongs to. Unknown,
// expired and already used tokens fail with errors.ErrUnauthorized.
func (f *PasswordChangeFlow) ConfirmChange(ctx context.Context, req ConfirmRequest) (*Acknowledgement, error) {
	if err := req.Validate(); err != nil {
		f.recorder.ChangeConfirmed(OutcomeInvalidInput)
		return nil, errors.Wrap(err, "[PasswordChangeFlow.ConfirmChange]")
	}

	userID, err := f.repos.PasswordChanges.Commit(ctx, HashConfirmationToken(req.Token.Value), f.nowTime())
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		f.recorder.ChangeConfirmed(OutcomeRejected)
		f.logger.Info().Msg("password change confirmation rejected")
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "[PasswordChangeFlow.ConfirmChange]")
	case err != nil:
		f.recorder.ChangeConfirmed(OutcomeError)
		f.logger.Error().Err(err).Msg("password change confirmation failed")
		return nil, errors.Wrapf(apperrors.ErrInternal, "[PasswordChangeFlow.ConfirmChange] commit: %v", err)
	}

	f.recorder.ChangeConfirmed(OutcomeSuccess)
	f.logger.Info().Int64("user_id", userID).Msg("password changed")
	return &Acknowledgement{Message: ChangeConfirmedMessage, Status: 200}, nil
}

// PurgeExpired deletes pending changes that can no longer be confirmed.
func (f *PasswordChangeFlow) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := f.repos.PasswordChanges.DeleteExpired(ctx, f.nowTime())
	if err != nil {
		return 0, errors.Wrap(err, "[PasswordChangeFlow.PurgeExpired]")
	}
	return n, nil
}

func (f *PasswordChangeFlow) confirmationMail(user *users.User, confirmationToken string) mailer.Message {
	link, _ := url.Parse(f.config.ConfirmURL)
	query := link.Query()
	query.Set("token", confirmationToken)
	link.RawQuery = query.Encode()

	minutes := int(math.Ceil(f.config.ConfirmationTTL.Minutes()))
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"A password change was requested for your account.\n"+
			"Confirm it within %d minutes by opening this link:\n\n%s\n\n"+
			"If you did not ask for this, ignore this email and your password stays the same.\n",
		user.Name, minutes, link.String(),
	)

	return mailer.Message{
		To:      user.Email,
		Subject: "Confirm your password change",
		Body:    body,
	}
}
