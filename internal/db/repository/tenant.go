package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
)

// TenantRepository persists tenants and their user directory associations.
type TenantRepository struct {
	db *gorm.DB
}

// Create inserts a tenant.
func (r *TenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	return r.db.WithContext(ctx).Create(tenant).Error
}

// Save updates all fields of a tenant.
func (r *TenantRepository) Save(ctx context.Context, tenant *models.Tenant) error {
	return r.db.WithContext(ctx).Save(tenant).Error
}

// Delete removes a tenant and its user directory associations.
func (r *TenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("tenant_id = ?", id).Delete(&models.UserDirectoryToTenant{}).Error; err != nil {
		return err
	}

	result := db.Where("id = ?", id).Delete(&models.Tenant{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return problem.ErrTenantNotFound
	}

	return nil
}

// FindByID retrieves a tenant.
func (r *TenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		return nil, notFound(err, problem.ErrTenantNotFound)
	}

	return &tenant, nil
}

// FindNameByID retrieves the name of a tenant.
func (r *TenantRepository) FindNameByID(ctx context.Context, id uuid.UUID) (string, error) {
	tenant, err := r.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	return tenant.Name, nil
}

// ExistsByID reports whether the tenant exists.
func (r *TenantRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", id))
}

// ExistsByName reports whether another tenant than excludeID uses the name, ignoring case.
func (r *TenantRepository) ExistsByName(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.Tenant{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), excludeID))
}

// FindAll lists tenants whose name matches the filter.
func (r *TenantRepository) FindAll(ctx context.Context, opts ListOptions) (*Page[models.Tenant], error) {
	opts = opts.normalized()

	return paginate[models.Tenant](func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&models.Tenant{})
		if opts.Filter != "" {
			tx = tx.Where("LOWER(name) LIKE ?", likePattern(opts.Filter))
		}

		return tx
	}, opts, "name")
}

// FindByUserDirectoryID lists the tenants a user directory is associated with.
func (r *TenantRepository) FindByUserDirectoryID(ctx context.Context, userDirectoryID uuid.UUID) ([]models.Tenant, error) {
	var tenants []models.Tenant

	err := r.db.WithContext(ctx).
		Joins("JOIN security_user_directory_to_tenant_map m ON m.tenant_id = security_tenants.id").
		Where("m.user_directory_id = ?", userDirectoryID).
		Order("security_tenants.name").
		Find(&tenants).Error

	return tenants, err
}

// FindIDsByUserDirectoryID lists the IDs of the tenants a user directory is associated with.
func (r *TenantRepository) FindIDsByUserDirectoryID(ctx context.Context, userDirectoryID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	err := r.db.WithContext(ctx).Model(&models.UserDirectoryToTenant{}).
		Where("user_directory_id = ?", userDirectoryID).
		Pluck("tenant_id", &ids).Error

	return ids, err
}

// FindUserDirectoryIDsByTenantID lists the IDs of the user directories associated with a tenant.
func (r *TenantRepository) FindUserDirectoryIDsByTenantID(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	err := r.db.WithContext(ctx).Model(&models.UserDirectoryToTenant{}).
		Where("tenant_id = ?", tenantID).
		Pluck("user_directory_id", &ids).Error

	return ids, err
}

// HasUserDirectory reports whether the user directory is associated with the tenant.
func (r *TenantRepository) HasUserDirectory(ctx context.Context, tenantID, userDirectoryID uuid.UUID) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.UserDirectoryToTenant{}).
		Where("tenant_id = ? AND user_directory_id = ?", tenantID, userDirectoryID))
}

// AddUserDirectory associates a user directory with a tenant.
func (r *TenantRepository) AddUserDirectory(ctx context.Context, tenantID, userDirectoryID uuid.UUID) error {
	return r.db.WithContext(ctx).Omit("UserDirectory", "Tenant").Create(&models.UserDirectoryToTenant{
		TenantID:        tenantID,
		UserDirectoryID: userDirectoryID,
	}).Error
}

// RemoveUserDirectory removes the association and reports whether one existed.
func (r *TenantRepository) RemoveUserDirectory(ctx context.Context, tenantID, userDirectoryID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_directory_id = ?", tenantID, userDirectoryID).
		Delete(&models.UserDirectoryToTenant{})

	return result.RowsAffected > 0, result.Error
}
