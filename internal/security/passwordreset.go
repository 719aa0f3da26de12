package security

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/uniuri"
)

// Notifier delivers password reset security codes to users.
type Notifier interface {
	NotifyPasswordReset(ctx context.Context, user *models.User, resetURL string) error
}

// LogNotifier writes password reset links to the log instead of sending them.
type LogNotifier struct{}

// NotifyPasswordReset implements Notifier.
func (LogNotifier) NotifyPasswordReset(_ context.Context, user *models.User, resetURL string) error {
	log.Info().Str("username", user.Username).Str("email", user.Email).Str("reset_url", resetURL).
		Msg("password reset requested")

	return nil
}

// InitiatePasswordReset creates a password reset security code for a user. With sendEmail the
// user is notified with a link to resetPasswordURL, or the configured reset page when empty.
// Unknown usernames are ignored so callers can not probe for users.
func (s *Service) InitiatePasswordReset(ctx context.Context, username, resetPasswordURL string, sendEmail bool) error {
	dir, err := s.userDirectoryForUsername(ctx, username)
	if errors.Is(err, problem.ErrUserNotFound) {
		log.Debug().Str("username", username).Msg("password reset requested for unknown user")
		return nil
	}

	if err != nil {
		return err
	}

	if !dir.Capabilities().SupportsAdminChangePassword {
		return fmt.Errorf("%w: password reset", problem.ErrUserDirectoryOperationNotSupported)
	}

	user, err := dir.GetUser(ctx, username)
	if err != nil {
		return err
	}

	code, err := uniuri.SecurityCode()
	if err != nil {
		return err
	}

	hash, err := models.HashPassword(code)
	if err != nil {
		return err
	}

	reset := &models.PasswordReset{
		Username:         user.Username,
		Requested:        s.now(),
		SecurityCodeHash: hash,
		Status:           models.PasswordResetStatusUnused,
	}

	if err = s.repos.PasswordResets.Create(ctx, reset); err != nil {
		return err
	}

	if !sendEmail {
		return nil
	}

	if resetPasswordURL == "" {
		resetPasswordURL = s.passwordResetURL
	}

	link, err := passwordResetLink(resetPasswordURL, user.Username, code)
	if err != nil {
		return err
	}

	return s.notifier.NotifyPasswordReset(ctx, user, link)
}

func passwordResetLink(resetPasswordURL, username, code string) (string, error) {
	u, err := url.Parse(resetPasswordURL)
	if err != nil || resetPasswordURL == "" {
		return "", fmt.Errorf("%w: invalid password reset URL %q", problem.ErrInvalidArgument, resetPasswordURL)
	}

	q := u.Query()
	q.Set("username", username)
	q.Set("securityCode", code)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ResetPassword completes a password reset. The security code must match an unused reset of the
// user that has not expired yet. Claiming the reset and setting the password commit together, so
// concurrent requests with the same code succeed at most once.
func (s *Service) ResetPassword(ctx context.Context, username, newPassword, securityCode string) error {
	dir, err := s.userDirectoryForUsername(ctx, username)
	if errors.Is(err, problem.ErrUserNotFound) {
		return problem.ErrInvalidSecurityCode
	}

	if err != nil {
		return err
	}

	resets, err := s.repos.PasswordResets.FindUnused(ctx, username)
	if err != nil {
		return err
	}

	now := s.now()

	for i := range resets {
		reset := &resets[i]

		if s.passwordResetExpiry > 0 && now.Sub(reset.Requested) > s.passwordResetExpiry {
			continue
		}

		if !models.MatchesHash(securityCode, reset.SecurityCodeHash) {
			continue
		}

		err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			claimed, err := tx.PasswordResets.Claim(ctx, reset, now)
			if err != nil {
				return err
			}

			if !claimed {
				return problem.ErrInvalidSecurityCode
			}

			txDir, err := s.userDirectoryIn(ctx, tx, dir.ID())
			if err != nil {
				return err
			}

			return txDir.ResetPassword(ctx, username, newPassword)
		})
		if err != nil {
			return err
		}

		log.Info().Str("username", username).Msg("password reset completed")

		return nil
	}

	return problem.ErrInvalidSecurityCode
}

// ExpirePasswordResets marks unused password resets older than maxAge as expired and returns how
// many were expired.
func (s *Service) ExpirePasswordResets(ctx context.Context, maxAge time.Duration) (int64, error) {
	now := s.now()

	expired, err := s.repos.PasswordResets.ExpireRequestedBefore(ctx, now.Add(-maxAge), now)
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		log.Info().Int64("expired", expired).Msg("expired password resets")
	}

	return expired, nil
}

// PasswordResetExpiry is how long security codes stay valid.
func (s *Service) PasswordResetExpiry() time.Duration {
	return s.passwordResetExpiry
}
