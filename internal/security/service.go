package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security/directory"
)

// ErrRepositoriesNil is returned by New when no repositories are given.
var ErrRepositoriesNil = errors.New("repositories cannot be nil")

// Service implements the security operations.
type Service struct {
	repos     *repository.Repositories
	validator *validator.Validate
	now       func() time.Time
	dial      directory.Dialer
	notifier  Notifier

	tokenIssuer     string
	tokenSigningKey []byte

	passwordResetExpiry time.Duration
	passwordResetURL    string
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock of the service and the user directories it creates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithDialer sets the dialer of LDAP user directories.
func WithDialer(dial directory.Dialer) Option {
	return func(s *Service) {
		s.dial = dial
	}
}

// WithNotifier sets the notifier password reset security codes are sent with.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithTokenSigning sets the issuer and the HS256 key of generated tokens.
func WithTokenSigning(issuer string, key []byte) Option {
	return func(s *Service) {
		s.tokenIssuer = issuer
		s.tokenSigningKey = key
	}
}

// WithPasswordReset sets how long security codes stay valid and the default reset page.
func WithPasswordReset(expiry time.Duration, resetURL string) Option {
	return func(s *Service) {
		s.passwordResetExpiry = expiry
		s.passwordResetURL = resetURL
	}
}

// New creates a Service.
func New(repos *repository.Repositories, opts ...Option) (*Service, error) {
	if repos == nil {
		return nil, ErrRepositoriesNil
	}

	s := &Service{
		repos:               repos,
		validator:           validator.New(),
		now:                 func() time.Time { return time.Now().UTC() },
		dial:                directory.DialLDAP,
		notifier:            LogNotifier{},
		tokenIssuer:         "lobkit",
		passwordResetExpiry: 24 * time.Hour,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Repositories returns the repositories of the service.
func (s *Service) Repositories() *repository.Repositories {
	return s.repos
}

// validate runs the struct validation rules of v.
func (s *Service) validate(ctx context.Context, v any) error {
	err := s.validator.StructCtx(ctx, v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %w", problem.ErrInvalidArgument, err)
	}

	messages := make([]string, len(validationErrors))
	for i, ve := range validationErrors {
		messages[i] = "field '" + ve.Field() + "' failed validation tag '" + ve.Tag() + "'"
	}

	return fmt.Errorf("%w: %s", problem.ErrInvalidArgument, strings.Join(messages, ", "))
}

// userDirectory loads the user directory implementation of id.
func (s *Service) userDirectory(ctx context.Context, id uuid.UUID) (directory.UserDirectory, error) {
	return s.userDirectoryIn(ctx, s.repos, id)
}

// userDirectoryIn loads the user directory implementation of id backed by repos, which may be
// bound to a transaction.
func (s *Service) userDirectoryIn(
	ctx context.Context,
	repos *repository.Repositories,
	id uuid.UUID,
) (directory.UserDirectory, error) {
	ud, err := repos.UserDirectories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return directory.New(ud, repos, directory.WithClock(s.now), directory.WithDialer(s.dial))
}

// userDirectoryWith loads the user directory of id and checks it supports an operation.
func (s *Service) userDirectoryWith(
	ctx context.Context,
	id uuid.UUID,
	supported func(directory.Capabilities) bool,
	operation string,
) (directory.UserDirectory, error) {
	dir, err := s.userDirectory(ctx, id)
	if err != nil {
		return nil, err
	}

	if !supported(dir.Capabilities()) {
		return nil, fmt.Errorf("%w: %s", problem.ErrUserDirectoryOperationNotSupported, operation)
	}

	return dir, nil
}

// userDirectoryForUsername loads the user directory holding a username.
func (s *Service) userDirectoryForUsername(ctx context.Context, username string) (directory.UserDirectory, error) {
	id, err := s.repos.Users.FindUserDirectoryIDByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	return s.userDirectory(ctx, id)
}
