package security

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
)

// GetRoles lists every role.
func (s *Service) GetRoles(ctx context.Context) ([]models.Role, error) {
	return s.repos.Roles.FindAll(ctx)
}

// GetFunctionCodesForRole lists the codes of the functions granted to a role.
func (s *Service) GetFunctionCodesForRole(ctx context.Context, roleCode string) ([]string, error) {
	if _, err := s.repos.Roles.FindByCode(ctx, roleCode); err != nil {
		return nil, err
	}

	return s.repos.Roles.FindFunctionCodes(ctx, roleCode)
}

// AddFunctionToRole grants a function to a role. Granting an already granted function is a no-op.
func (s *Service) AddFunctionToRole(ctx context.Context, roleCode, functionCode string) error {
	if _, err := s.repos.Roles.FindByCode(ctx, roleCode); err != nil {
		return err
	}

	if _, err := s.repos.Functions.FindByCode(ctx, functionCode); err != nil {
		return err
	}

	return s.repos.Roles.AddFunction(ctx, roleCode, functionCode)
}

// RemoveFunctionFromRole revokes a function from a role.
func (s *Service) RemoveFunctionFromRole(ctx context.Context, roleCode, functionCode string) error {
	removed, err := s.repos.Roles.RemoveFunction(ctx, roleCode, functionCode)
	if err != nil {
		return err
	}

	if !removed {
		return fmt.Errorf("%w: %s is not granted to %s", problem.ErrFunctionNotFound, functionCode, roleCode)
	}

	return nil
}

// CreateFunction creates a function.
func (s *Service) CreateFunction(ctx context.Context, function *models.Function) error {
	if err := s.validate(ctx, function); err != nil {
		return err
	}

	duplicate, err := s.repos.Functions.ExistsByCode(ctx, function.Code)
	if err != nil {
		return err
	}

	if duplicate {
		return fmt.Errorf("%w: %s", problem.ErrDuplicateFunction, function.Code)
	}

	return s.repos.Functions.Create(ctx, function)
}

// UpdateFunction updates the name and description of a function.
func (s *Service) UpdateFunction(ctx context.Context, function *models.Function) error {
	if err := s.validate(ctx, function); err != nil {
		return err
	}

	if _, err := s.repos.Functions.FindByCode(ctx, function.Code); err != nil {
		return err
	}

	return s.repos.Functions.Save(ctx, function)
}

// DeleteFunction deletes a function and its role grants.
func (s *Service) DeleteFunction(ctx context.Context, code string) error {
	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return tx.Functions.Delete(ctx, code)
	})
}

// GetFunction retrieves a function.
func (s *Service) GetFunction(ctx context.Context, code string) (*models.Function, error) {
	return s.repos.Functions.FindByCode(ctx, code)
}

// GetFunctions lists every function.
func (s *Service) GetFunctions(ctx context.Context) ([]models.Function, error) {
	return s.repos.Functions.FindAll(ctx)
}

// GetFunctionCodesForUser lists the codes of the functions granted to a user through the roles of
// their groups.
func (s *Service) GetFunctionCodesForUser(ctx context.Context, userDirectoryID uuid.UUID, username string) ([]string, error) {
	user, err := s.repos.Users.FindByUsername(ctx, userDirectoryID, username)
	if err != nil {
		return nil, err
	}

	return s.repos.Functions.FindCodesByUserID(ctx, user.ID)
}
