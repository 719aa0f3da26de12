package security

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security/directory"
)

// CreateTenant creates a tenant. With createUserDirectory an internal user directory named
// "<tenant> Internal User Directory" is created and associated with the tenant; it is returned.
func (s *Service) CreateTenant(
	ctx context.Context,
	tenant *models.Tenant,
	createUserDirectory bool,
) (*models.UserDirectory, error) {
	if err := s.validate(ctx, tenant); err != nil {
		return nil, err
	}

	duplicate, err := s.repos.Tenants.ExistsByName(ctx, tenant.Name, uuid.Nil)
	if err != nil {
		return nil, err
	}

	if duplicate {
		return nil, fmt.Errorf("%w: %s", problem.ErrDuplicateTenant, tenant.Name)
	}

	var ud *models.UserDirectory

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Tenants.Create(ctx, tenant); err != nil {
			return err
		}

		if !createUserDirectory {
			return nil
		}

		ud = newInternalUserDirectory(tenant.Name + " Internal User Directory")

		duplicate, err := tx.UserDirectories.ExistsByName(ctx, ud.Name, uuid.Nil)
		if err != nil {
			return err
		}

		if duplicate {
			return fmt.Errorf("%w: %s", problem.ErrDuplicateUserDirectory, ud.Name)
		}

		if err = tx.UserDirectories.Create(ctx, ud); err != nil {
			return err
		}

		return tx.Tenants.AddUserDirectory(ctx, tenant.ID, ud.ID)
	})
	if err != nil {
		return nil, err
	}

	return ud, nil
}

// newInternalUserDirectory returns an internal user directory with the default parameters.
func newInternalUserDirectory(name string) *models.UserDirectory {
	return &models.UserDirectory{
		Type: directory.TypeInternal,
		Name: name,
		Parameters: []models.UserDirectoryParameter{
			{Name: directory.ParamMaxPasswordAttempts, Value: strconv.Itoa(directory.DefaultMaxPasswordAttempts)},
			{Name: directory.ParamPasswordExpiryMonths, Value: strconv.Itoa(directory.DefaultPasswordExpiryMonths)},
			{Name: directory.ParamPasswordHistoryMonths, Value: strconv.Itoa(directory.DefaultPasswordHistoryMonths)},
			{Name: directory.ParamPasswordHistoryMaxLength, Value: strconv.Itoa(directory.DefaultPasswordHistoryMaxLength)},
			{Name: directory.ParamMaxFilteredUsers, Value: strconv.Itoa(directory.DefaultMaxFilteredUsers)},
			{Name: directory.ParamMaxFilteredGroups, Value: strconv.Itoa(directory.DefaultMaxFilteredGroups)},
		},
	}
}

// UpdateTenant updates the name and status of a tenant.
func (s *Service) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	if err := s.validate(ctx, tenant); err != nil {
		return err
	}

	existing, err := s.repos.Tenants.FindByID(ctx, tenant.ID)
	if err != nil {
		return err
	}

	duplicate, err := s.repos.Tenants.ExistsByName(ctx, tenant.Name, tenant.ID)
	if err != nil {
		return err
	}

	if duplicate {
		return fmt.Errorf("%w: %s", problem.ErrDuplicateTenant, tenant.Name)
	}

	existing.Name = tenant.Name
	existing.Status = tenant.Status

	if err = s.repos.Tenants.Save(ctx, existing); err != nil {
		return err
	}

	*tenant = *existing

	return nil
}

// DeleteTenant deletes a tenant and its user directory associations.
func (s *Service) DeleteTenant(ctx context.Context, tenantID uuid.UUID) error {
	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return tx.Tenants.Delete(ctx, tenantID)
	})
}

// GetTenant retrieves a tenant.
func (s *Service) GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	return s.repos.Tenants.FindByID(ctx, tenantID)
}

// GetTenantName retrieves the name of a tenant.
func (s *Service) GetTenantName(ctx context.Context, tenantID uuid.UUID) (string, error) {
	return s.repos.Tenants.FindNameByID(ctx, tenantID)
}

// GetTenants lists tenants whose name matches the filter.
func (s *Service) GetTenants(ctx context.Context, opts repository.ListOptions) (*repository.Page[models.Tenant], error) {
	return s.repos.Tenants.FindAll(ctx, opts)
}

// TenantExists reports whether a tenant exists.
func (s *Service) TenantExists(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	return s.repos.Tenants.ExistsByID(ctx, tenantID)
}

// GetTenantsForUserDirectory lists the tenants a user directory is associated with.
func (s *Service) GetTenantsForUserDirectory(ctx context.Context, userDirectoryID uuid.UUID) ([]models.Tenant, error) {
	if err := s.userDirectoryMustExist(ctx, userDirectoryID); err != nil {
		return nil, err
	}

	return s.repos.Tenants.FindByUserDirectoryID(ctx, userDirectoryID)
}

// GetUserDirectoriesForTenant lists the user directories associated with a tenant.
func (s *Service) GetUserDirectoriesForTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UserDirectory, error) {
	if err := s.tenantMustExist(ctx, tenantID); err != nil {
		return nil, err
	}

	return s.repos.UserDirectories.FindByTenantID(ctx, tenantID)
}

// GetUserDirectorySummariesForTenant lists the summaries of the user directories associated with a tenant.
func (s *Service) GetUserDirectorySummariesForTenant(
	ctx context.Context,
	tenantID uuid.UUID,
) ([]models.UserDirectorySummary, error) {
	if err := s.tenantMustExist(ctx, tenantID); err != nil {
		return nil, err
	}

	return s.repos.UserDirectories.FindSummariesByTenantID(ctx, tenantID)
}

// AddUserDirectoryToTenant associates a user directory with a tenant.
func (s *Service) AddUserDirectoryToTenant(ctx context.Context, tenantID, userDirectoryID uuid.UUID) error {
	if err := s.tenantMustExist(ctx, tenantID); err != nil {
		return err
	}

	if err := s.userDirectoryMustExist(ctx, userDirectoryID); err != nil {
		return err
	}

	linked, err := s.repos.Tenants.HasUserDirectory(ctx, tenantID, userDirectoryID)
	if err != nil {
		return err
	}

	if linked {
		return problem.ErrExistingTenantUserDirectory
	}

	return s.repos.Tenants.AddUserDirectory(ctx, tenantID, userDirectoryID)
}

// RemoveUserDirectoryFromTenant removes the association between a user directory and a tenant.
func (s *Service) RemoveUserDirectoryFromTenant(ctx context.Context, tenantID, userDirectoryID uuid.UUID) error {
	if err := s.tenantMustExist(ctx, tenantID); err != nil {
		return err
	}

	removed, err := s.repos.Tenants.RemoveUserDirectory(ctx, tenantID, userDirectoryID)
	if err != nil {
		return err
	}

	if !removed {
		return problem.ErrTenantUserDirectoryNotFound
	}

	return nil
}

func (s *Service) tenantMustExist(ctx context.Context, tenantID uuid.UUID) error {
	found, err := s.repos.Tenants.ExistsByID(ctx, tenantID)
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("%w: %s", problem.ErrTenantNotFound, tenantID)
	}

	return nil
}
