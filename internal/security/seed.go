package security

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security/directory"
)

// Names of the records created for the administrator account.
const (
	AdministrationUserDirectoryName = "Administration"
	AdministratorsGroupName         = "Administrators"
)

// SeedRequest names the administrator account Seed creates. An empty username skips it.
type SeedRequest struct {
	AdministratorUsername string
	AdministratorPassword string
}

// Seed creates the default roles and functions and the administrator account. Records that already
// exist are left alone so Seed can run on every start.
func (s *Service) Seed(ctx context.Context, req SeedRequest) error {
	for _, role := range DefaultRoles() {
		exists, err := s.repos.Roles.ExistsByCode(ctx, role.Code)
		if err != nil {
			return err
		}

		if !exists {
			if err = s.repos.Roles.Create(ctx, &role); err != nil {
				return err
			}
		}
	}

	for _, function := range DefaultFunctions() {
		exists, err := s.repos.Functions.ExistsByCode(ctx, function.Code)
		if err != nil {
			return err
		}

		if !exists {
			if err = s.repos.Functions.Create(ctx, &function); err != nil {
				return err
			}
		}
	}

	for role, functions := range DefaultRoleFunctions() {
		for _, function := range functions {
			if err := s.repos.Roles.AddFunction(ctx, role, function); err != nil {
				return err
			}
		}
	}

	if req.AdministratorUsername == "" {
		return nil
	}

	return s.seedAdministrator(ctx, req)
}

func (s *Service) seedAdministrator(ctx context.Context, req SeedRequest) error {
	exists, err := s.repos.Users.ExistsByUsernameInAnyDirectory(ctx, req.AdministratorUsername)
	if err != nil || exists {
		return err
	}

	dir, err := s.administrationUserDirectory(ctx)
	if err != nil {
		return err
	}

	group, err := s.GetGroup(ctx, dir.ID, AdministratorsGroupName)
	if errors.Is(err, problem.ErrGroupNotFound) {
		group = &models.Group{
			UserDirectoryID: dir.ID,
			Name:            AdministratorsGroupName,
			Description:     "Administrators of the security module",
		}
		err = s.CreateGroup(ctx, group)
	}

	if err != nil {
		return err
	}

	granted, err := s.repos.Groups.HasRole(ctx, group.ID, RoleAdministrator)
	if err != nil {
		return err
	}

	if !granted {
		if err = s.repos.Groups.AddRole(ctx, group.ID, RoleAdministrator); err != nil {
			return err
		}
	}

	user := &models.User{
		UserDirectoryID: dir.ID,
		Username:        req.AdministratorUsername,
		Name:            "Administrator",
		Password:        req.AdministratorPassword,
		Status:          models.UserStatusActive,
	}

	if err = s.CreateUser(ctx, user, false, false); err != nil {
		return err
	}

	if err = s.AddUserToGroup(ctx, dir.ID, group.Name, user.Username); err != nil {
		return err
	}

	log.Info().Str("username", user.Username).Str("user_directory", dir.Name).Msg("administrator account created")

	return nil
}

func (s *Service) administrationUserDirectory(ctx context.Context) (*models.UserDirectory, error) {
	directories, err := s.repos.UserDirectories.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	for i := range directories {
		if strings.EqualFold(directories[i].Name, AdministrationUserDirectoryName) {
			return &directories[i], nil
		}
	}

	dir := &models.UserDirectory{Type: directory.TypeInternal, Name: AdministrationUserDirectoryName}
	if err = s.CreateUserDirectory(ctx, dir); err != nil {
		return nil, err
	}

	return dir, nil
}
