package users

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/go-credential-service/hashing"
	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// CreateUserInput carries the fields needed to register an identity.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
}

// Service offers identity lookups and mutations on top of a Repo.
type Service struct {
	repo    Repo
	hasher  hashing.Hasher
	logger  zerolog.Logger
	nowTime func() time.Time
}

type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func NewService(repo Repo, hasher hashing.Hasher, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] users repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[NewService] hasher is required")
	}

	s := &Service{
		repo:    repo,
		hasher:  hasher,
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Service) FindAll(ctx context.Context) ([]*User, error) {
	list, err := s.repo.List(ctx, 0, 0)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.FindAll] failed to list users")
	}
	return list, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.FindByEmail] user %q", NormalizeEmail(email))
	}
	return user, nil
}

func (s *Service) FindByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "[Service.FindByID] user %d", id)
	}
	return user, nil
}

// Create hashes the password and stores a new identity.
func (s *Service) Create(ctx context.Context, input CreateUserInput) (*User, error) {
	email := NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, errors.Wrap(apperrors.NewValidationError("email and password are required"), "[Service.Create]")
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Create] failed to hash password")
	}

	now := s.nowTime()
	user := &User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, errors.Wrapf(err, "[Service.Create] user %q", email)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user created")
	return user, nil
}

// UpdatePassword replaces the stored digest for the user.
func (s *Service) UpdatePassword(ctx context.Context, id int64, password string) error {
	if password == "" {
		return errors.Wrap(apperrors.NewValidationError("password is required"), "[Service.UpdatePassword]")
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return errors.Wrap(err, "[Service.UpdatePassword] failed to hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, id, digest); err != nil {
		return errors.Wrapf(err, "[Service.UpdatePassword] user %d", id)
	}
	return nil
}

// Delete removes the user, failing with ErrNotFound when it does not exist.
func (s *Service) Delete(ctx context.Context, id int64) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "[Service.Delete] user %d", id)
	}
	if !exists {
		return errors.Wrapf(apperrors.ErrNotFound, "[Service.Delete] user %d", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "[Service.Delete] user %d", id)
	}

	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}
