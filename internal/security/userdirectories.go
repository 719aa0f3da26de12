package security

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security/directory"
)

// CreateUserDirectory creates a user directory. Its type must be known and its parameters must be
// accepted by the implementation of the type.
func (s *Service) CreateUserDirectory(ctx context.Context, ud *models.UserDirectory) error {
	if err := s.checkUserDirectory(ctx, ud); err != nil {
		return err
	}

	duplicate, err := s.repos.UserDirectories.ExistsByName(ctx, ud.Name, uuid.Nil)
	if err != nil {
		return err
	}

	if duplicate {
		return fmt.Errorf("%w: %s", problem.ErrDuplicateUserDirectory, ud.Name)
	}

	return s.repos.UserDirectories.Create(ctx, ud)
}

// UpdateUserDirectory updates the name, type and parameters of a user directory.
func (s *Service) UpdateUserDirectory(ctx context.Context, ud *models.UserDirectory) error {
	if err := s.checkUserDirectory(ctx, ud); err != nil {
		return err
	}

	existing, err := s.repos.UserDirectories.FindByID(ctx, ud.ID)
	if err != nil {
		return err
	}

	duplicate, err := s.repos.UserDirectories.ExistsByName(ctx, ud.Name, ud.ID)
	if err != nil {
		return err
	}

	if duplicate {
		return fmt.Errorf("%w: %s", problem.ErrDuplicateUserDirectory, ud.Name)
	}

	existing.Name = ud.Name
	existing.Type = ud.Type
	existing.Parameters = ud.Parameters

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return tx.UserDirectories.Save(ctx, existing)
	})
	if err != nil {
		return err
	}

	*ud = *existing

	return nil
}

func (s *Service) checkUserDirectory(ctx context.Context, ud *models.UserDirectory) error {
	if err := s.validate(ctx, ud); err != nil {
		return err
	}

	if _, err := directory.CapabilitiesOf(ud.Type); err != nil {
		return err
	}

	// the implementation rejects parameters it can not parse
	_, err := directory.New(ud, s.repos, directory.WithClock(s.now), directory.WithDialer(s.dial))

	return err
}

// DeleteUserDirectory deletes a user directory and its groups. Directories that still hold users
// can not be deleted.
func (s *Service) DeleteUserDirectory(ctx context.Context, userDirectoryID uuid.UUID) error {
	if err := s.userDirectoryMustExist(ctx, userDirectoryID); err != nil {
		return err
	}

	users, err := s.repos.Users.CountByUserDirectoryID(ctx, userDirectoryID)
	if err != nil {
		return err
	}

	if users > 0 {
		return fmt.Errorf("%w: %d users", problem.ErrExistingUserDirectoryUsers, users)
	}

	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Groups.DeleteByUserDirectoryID(ctx, userDirectoryID); err != nil {
			return err
		}

		return tx.UserDirectories.Delete(ctx, userDirectoryID)
	})
}

// GetUserDirectory retrieves a user directory with its parameters.
func (s *Service) GetUserDirectory(ctx context.Context, userDirectoryID uuid.UUID) (*models.UserDirectory, error) {
	return s.repos.UserDirectories.FindByID(ctx, userDirectoryID)
}

// GetUserDirectoryName retrieves the name of a user directory.
func (s *Service) GetUserDirectoryName(ctx context.Context, userDirectoryID uuid.UUID) (string, error) {
	return s.repos.UserDirectories.FindNameByID(ctx, userDirectoryID)
}

// GetUserDirectories lists every user directory with its parameters.
func (s *Service) GetUserDirectories(ctx context.Context) ([]models.UserDirectory, error) {
	return s.repos.UserDirectories.FindAll(ctx)
}

// GetUserDirectorySummaries lists user directory summaries whose name matches the filter.
func (s *Service) GetUserDirectorySummaries(
	ctx context.Context,
	opts repository.ListOptions,
) (*repository.Page[models.UserDirectorySummary], error) {
	return s.repos.UserDirectories.FindSummaries(ctx, opts)
}

// GetUserDirectoryTypes lists the user directory types.
func (s *Service) GetUserDirectoryTypes() []models.UserDirectoryType {
	return directory.Types()
}

// GetUserDirectoryCapabilities returns the operations a user directory supports.
func (s *Service) GetUserDirectoryCapabilities(
	ctx context.Context,
	userDirectoryID uuid.UUID,
) (directory.Capabilities, error) {
	typeCode, err := s.repos.UserDirectories.FindTypeByID(ctx, userDirectoryID)
	if err != nil {
		return directory.Capabilities{}, err
	}

	return directory.CapabilitiesOf(typeCode)
}

// GetUserDirectoryTypeForUserDirectory returns the type of a user directory.
func (s *Service) GetUserDirectoryTypeForUserDirectory(
	ctx context.Context,
	userDirectoryID uuid.UUID,
) (models.UserDirectoryType, error) {
	typeCode, err := s.repos.UserDirectories.FindTypeByID(ctx, userDirectoryID)
	if err != nil {
		return models.UserDirectoryType{}, err
	}

	for _, t := range directory.Types() {
		if t.Code == typeCode {
			return t, nil
		}
	}

	return models.UserDirectoryType{}, fmt.Errorf("%w: %s", problem.ErrUserDirectoryTypeNotFound, typeCode)
}

func (s *Service) userDirectoryMustExist(ctx context.Context, userDirectoryID uuid.UUID) error {
	found, err := s.repos.UserDirectories.ExistsByID(ctx, userDirectoryID)
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%w: %s", problem.ErrUserDirectoryNotFound, userDirectoryID)
	}

	return nil
}
