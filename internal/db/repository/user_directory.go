package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
)

// UserDirectoryRepository persists user directories and their parameters.
type UserDirectoryRepository struct {
	db *gorm.DB
}

// Create inserts a user directory together with its parameters.
func (r *UserDirectoryRepository) Create(ctx context.Context, userDirectory *models.UserDirectory) error {
	return r.db.WithContext(ctx).Create(userDirectory).Error
}

// Save updates a user directory and replaces its parameters.
func (r *UserDirectoryRepository) Save(ctx context.Context, userDirectory *models.UserDirectory) error {
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Save(userDirectory).Error; err != nil {
		return err
	}

	err := db.Where("user_directory_id = ?", userDirectory.ID).Delete(&models.UserDirectoryParameter{}).Error
	if err != nil {
		return err
	}

	if len(userDirectory.Parameters) == 0 {
		return nil
	}

	for i := range userDirectory.Parameters {
		userDirectory.Parameters[i].UserDirectoryID = userDirectory.ID
	}

	return db.Create(&userDirectory.Parameters).Error
}

// Delete removes a user directory, its parameters and its tenant associations.
func (r *UserDirectoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("user_directory_id = ?", id).Delete(&models.UserDirectoryParameter{}).Error; err != nil {
		return err
	}

	if err := db.Where("user_directory_id = ?", id).Delete(&models.UserDirectoryToTenant{}).Error; err != nil {
		return err
	}

	result := db.Where("id = ?", id).Delete(&models.UserDirectory{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return problem.ErrUserDirectoryNotFound
	}

	return nil
}

// FindByID retrieves a user directory with its parameters.
func (r *UserDirectoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.UserDirectory, error) {
	var userDirectory models.UserDirectory

	err := r.db.WithContext(ctx).Preload("Parameters").Where("id = ?", id).First(&userDirectory).Error
	if err != nil {
		return nil, notFound(err, problem.ErrUserDirectoryNotFound)
	}

	return &userDirectory, nil
}

// FindAll retrieves every user directory with its parameters, ordered by name.
func (r *UserDirectoryRepository) FindAll(ctx context.Context) ([]models.UserDirectory, error) {
	var userDirectories []models.UserDirectory

	err := r.db.WithContext(ctx).Preload("Parameters").Order("name").Find(&userDirectories).Error

	return userDirectories, err
}

// FindSummaries lists user directory summaries whose name matches the filter.
func (r *UserDirectoryRepository) FindSummaries(
	ctx context.Context,
	opts ListOptions,
) (*Page[models.UserDirectorySummary], error) {
	opts = opts.normalized()

	return paginate[models.UserDirectorySummary](func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&models.UserDirectory{})
		if opts.Filter != "" {
			tx = tx.Where("LOWER(name) LIKE ?", likePattern(opts.Filter))
		}

		return tx
	}, opts, "name")
}

// FindSummariesByTenantID lists the summaries of the user directories associated with a tenant.
func (r *UserDirectoryRepository) FindSummariesByTenantID(
	ctx context.Context,
	tenantID uuid.UUID,
) ([]models.UserDirectorySummary, error) {
	var summaries []models.UserDirectorySummary

	err := r.db.WithContext(ctx).Model(&models.UserDirectory{}).
		Select("security_user_directories.id", "security_user_directories.type", "security_user_directories.name").
		Joins("JOIN security_user_directory_to_tenant_map m ON m.user_directory_id = security_user_directories.id").
		Where("m.tenant_id = ?", tenantID).
		Order("security_user_directories.name").
		Scan(&summaries).Error

	return summaries, err
}

// FindByTenantID lists the user directories associated with a tenant.
func (r *UserDirectoryRepository) FindByTenantID(ctx context.Context, tenantID uuid.UUID) ([]models.UserDirectory, error) {
	var userDirectories []models.UserDirectory

	err := r.db.WithContext(ctx).Preload("Parameters").
		Joins("JOIN security_user_directory_to_tenant_map m ON m.user_directory_id = security_user_directories.id").
		Where("m.tenant_id = ?", tenantID).
		Order("security_user_directories.name").
		Find(&userDirectories).Error

	return userDirectories, err
}

// FindNameByID retrieves the name of a user directory.
func (r *UserDirectoryRepository) FindNameByID(ctx context.Context, id uuid.UUID) (string, error) {
	var names []string

	err := r.db.WithContext(ctx).Model(&models.UserDirectory{}).Where("id = ?", id).Limit(1).Pluck("name", &names).Error
	if err != nil {
		return "", err
	}

	if len(names) == 0 {
		return "", problem.ErrUserDirectoryNotFound
	}

	return names[0], nil
}

// FindTypeByID retrieves the type code of a user directory.
func (r *UserDirectoryRepository) FindTypeByID(ctx context.Context, id uuid.UUID) (string, error) {
	var types []string

	err := r.db.WithContext(ctx).Model(&models.UserDirectory{}).Where("id = ?", id).Limit(1).Pluck("type", &types).Error
	if err != nil {
		return "", err
	}

	if len(types) == 0 {
		return "", problem.ErrUserDirectoryNotFound
	}

	return types[0], nil
}

// ExistsByID reports whether the user directory exists.
func (r *UserDirectoryRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.UserDirectory{}).Where("id = ?", id))
}

// ExistsByName reports whether another user directory than excludeID uses the name, ignoring case.
func (r *UserDirectoryRepository) ExistsByName(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.UserDirectory{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), excludeID))
}
