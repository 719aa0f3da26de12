package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security/directory"
)

// AdminChangePasswordRequest holds the options of an administrative password change.
type AdminChangePasswordRequest struct {
	NewPassword          string `json:"newPassword" validate:"required"`
	ExpirePassword       bool   `json:"expirePassword"`
	LockUser             bool   `json:"lockUser"`
	ResetPasswordHistory bool   `json:"resetPasswordHistory"`
	// Reason is recorded in the audit log.
	Reason string `json:"reason" validate:"max=200"`
}

// CreateUser creates a user in its user directory. Usernames are unique across all user
// directories. user.Password carries the initial plaintext password, if any.
func (s *Service) CreateUser(ctx context.Context, user *models.User, expiredPassword, userLocked bool) error {
	if err := s.validate(ctx, user); err != nil {
		return err
	}

	dir, err := s.userDirectoryWith(ctx, user.UserDirectoryID, func(c directory.Capabilities) bool {
		return c.SupportsUserAdministration
	}, "create user")
	if err != nil {
		return err
	}

	duplicate, err := s.repos.Users.ExistsByUsernameInAnyDirectory(ctx, user.Username)
	if err != nil {
		return err
	}

	if duplicate {
		return fmt.Errorf("%w: %s", problem.ErrDuplicateUser, user.Username)
	}

	if err = dir.CreateUser(ctx, user, expiredPassword, userLocked); err != nil {
		return err
	}

	log.Info().Str("username", user.Username).Str("user_directory_id", user.UserDirectoryID.String()).
		Msg("user created")

	return nil
}

// UpdateUser updates a user. A non empty user.Password replaces the password.
func (s *Service) UpdateUser(ctx context.Context, user *models.User, expirePassword, lockUser bool) error {
	if err := s.validate(ctx, user); err != nil {
		return err
	}

	dir, err := s.userDirectoryWith(ctx, user.UserDirectoryID, func(c directory.Capabilities) bool {
		return c.SupportsUserAdministration
	}, "update user")
	if err != nil {
		return err
	}

	return dir.UpdateUser(ctx, user, expirePassword, lockUser)
}

// DeleteUser deletes a user.
func (s *Service) DeleteUser(ctx context.Context, userDirectoryID uuid.UUID, username string) error {
	dir, err := s.userDirectoryWith(ctx, userDirectoryID, func(c directory.Capabilities) bool {
		return c.SupportsUserAdministration
	}, "delete user")
	if err != nil {
		return err
	}

	if err = dir.DeleteUser(ctx, username); err != nil {
		return err
	}

	log.Info().Str("username", username).Str("user_directory_id", userDirectoryID.String()).Msg("user deleted")

	return nil
}

// GetUser retrieves a user.
func (s *Service) GetUser(ctx context.Context, userDirectoryID uuid.UUID, username string) (*models.User, error) {
	dir, err := s.userDirectory(ctx, userDirectoryID)
	if err != nil {
		return nil, err
	}

	return dir.GetUser(ctx, username)
}

// GetUserName retrieves the full name of a user.
func (s *Service) GetUserName(ctx context.Context, userDirectoryID uuid.UUID, username string) (string, error) {
	user, err := s.GetUser(ctx, userDirectoryID, username)
	if err != nil {
		return "", err
	}

	return user.Name, nil
}

// GetUsers lists the users of a user directory. Filtered listings of the internal user directory
// are capped at its MaxFilteredUsers parameter.
func (s *Service) GetUsers(
	ctx context.Context,
	userDirectoryID uuid.UUID,
	opts repository.UserListOptions,
) (*repository.Page[models.User], error) {
	dir, err := s.userDirectory(ctx, userDirectoryID)
	if err != nil {
		return nil, err
	}

	if internal, ok := dir.(*directory.Internal); ok && opts.Filter != "" && internal.MaxFilteredUsers() > 0 {
		if opts.PageSize <= 0 || opts.PageSize > internal.MaxFilteredUsers() {
			opts.PageSize = internal.MaxFilteredUsers()
		}
	}

	return s.repos.Users.FindAll(ctx, userDirectoryID, opts)
}

// GetUserDirectoryIDForUser returns the ID of the user directory holding a username.
func (s *Service) GetUserDirectoryIDForUser(ctx context.Context, username string) (uuid.UUID, error) {
	return s.repos.Users.FindUserDirectoryIDByUsername(ctx, username)
}

// IsUserInGroup reports whether a user is a member of a group of the same user directory.
func (s *Service) IsUserInGroup(ctx context.Context, userDirectoryID uuid.UUID, groupName, username string) (bool, error) {
	group, err := s.repos.Groups.FindByName(ctx, userDirectoryID, groupName)
	if err != nil {
		return false, err
	}

	user, err := s.repos.Users.FindByUsername(ctx, userDirectoryID, username)
	if err != nil {
		return false, err
	}

	return s.repos.Groups.IsMember(ctx, group.ID, user.ID)
}

// Authenticate verifies the credentials against the user directory holding the username and
// returns the ID of that directory. Usernames unknown to the security schema are tried against the
// LDAP user directories, which mirror the user on success.
func (s *Service) Authenticate(ctx context.Context, username, password string) (uuid.UUID, error) {
	dir, err := s.userDirectoryForUsername(ctx, username)

	switch {
	case errors.Is(err, problem.ErrUserNotFound):
		return s.authenticateExternal(ctx, username, password)
	case err != nil:
		return uuid.Nil, err
	}

	if _, err = dir.Authenticate(ctx, username, password); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("authentication failed")
		return uuid.Nil, err
	}

	return dir.ID(), nil
}

func (s *Service) authenticateExternal(ctx context.Context, username, password string) (uuid.UUID, error) {
	userDirectories, err := s.repos.UserDirectories.FindAll(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	for i := range userDirectories {
		if userDirectories[i].Type != directory.TypeLDAP {
			continue
		}

		dir, errNew := directory.New(&userDirectories[i], s.repos, directory.WithClock(s.now), directory.WithDialer(s.dial))
		if errNew != nil {
			log.Error().Err(errNew).Str("user_directory", userDirectories[i].Name).Msg("invalid user directory")
			continue
		}

		_, errAuth := dir.Authenticate(ctx, username, password)
		if errAuth == nil {
			return dir.ID(), nil
		}

		if !errors.Is(errAuth, problem.ErrAuthenticationFailed) {
			log.Error().Err(errAuth).Str("user_directory", userDirectories[i].Name).
				Msg("failed to authenticate against user directory")
		}
	}

	log.Warn().Str("username", username).Msg("authentication failed: unknown user")

	return uuid.Nil, problem.ErrAuthenticationFailed
}

// ChangePassword changes the password of a user who knows the current one.
func (s *Service) ChangePassword(ctx context.Context, username, password, newPassword string) error {
	dir, err := s.userDirectoryForUsername(ctx, username)
	if errors.Is(err, problem.ErrUserNotFound) {
		return problem.ErrAuthenticationFailed
	}

	if err != nil {
		return err
	}

	if !dir.Capabilities().SupportsChangePassword {
		return fmt.Errorf("%w: change password", problem.ErrUserDirectoryOperationNotSupported)
	}

	return dir.ChangePassword(ctx, username, password, newPassword)
}

// AdminChangePassword sets the password of a user on behalf of an administrator.
func (s *Service) AdminChangePassword(
	ctx context.Context,
	userDirectoryID uuid.UUID,
	username string,
	req AdminChangePasswordRequest,
) error {
	if err := s.validate(ctx, &req); err != nil {
		return err
	}

	dir, err := s.userDirectoryWith(ctx, userDirectoryID, func(c directory.Capabilities) bool {
		return c.SupportsAdminChangePassword
	}, "admin change password")
	if err != nil {
		return err
	}

	err = dir.AdminChangePassword(ctx, username, req.NewPassword, directory.AdminPasswordOptions{
		ExpirePassword:       req.ExpirePassword,
		LockUser:             req.LockUser,
		ResetPasswordHistory: req.ResetPasswordHistory,
	})
	if err != nil {
		return err
	}

	event := log.Info().Str("username", username).Str("user_directory_id", userDirectoryID.String()).
		Str("reason", req.Reason).Bool("expire_password", req.ExpirePassword).Bool("lock_user", req.LockUser)
	if p, ok := PrincipalFromContext(ctx); ok {
		event = event.Str("changed_by", p.Username)
	}

	event.Msg("password changed by administrator")

	return nil
}
