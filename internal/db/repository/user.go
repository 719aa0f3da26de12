package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
)

// UserRepository persists users and their password history.
type UserRepository struct {
	db *gorm.DB
}

// UserListOptions extends ListOptions with the attribute users are sorted by.
type UserListOptions struct {
	ListOptions
	SortBy models.UserSortBy
}

// Create inserts a user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Save updates all fields of a user.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// IncrementPasswordAttempts counts a failed password attempt of a user in the database and locks
// the user once maxAttempts is reached. Zero maxAttempts never locks. It returns the new count.
func (r *UserRepository) IncrementPasswordAttempts(ctx context.Context, id uuid.UUID, maxAttempts int) (int, error) {
	var attempts int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).Where("id = ?", id).
			UpdateColumn("password_attempts", gorm.Expr("password_attempts + 1"))
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return problem.ErrUserNotFound
		}

		if maxAttempts > 0 {
			err := tx.Model(&models.User{}).
				Where("id = ? AND password_attempts >= ?", id, maxAttempts).
				UpdateColumn("status", models.UserStatusLocked).Error
			if err != nil {
				return err
			}
		}

		return tx.Model(&models.User{}).Where("id = ?", id).Pluck("password_attempts", &attempts).Error
	})

	return attempts, err
}

// ClearPasswordAttempts resets the failed password attempts of a user.
func (r *UserRepository) ClearPasswordAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("password_attempts", 0).Error
}

// Delete removes a user, their group memberships and their password history.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("user_id = ?", id).Delete(&models.UserToGroup{}).Error; err != nil {
		return err
	}

	if err := db.Where("user_id = ?", id).Delete(&models.PasswordHistory{}).Error; err != nil {
		return err
	}

	result := db.Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return problem.ErrUserNotFound
	}

	return nil
}

// FindByID retrieves a user.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, problem.ErrUserNotFound)
	}

	return &user, nil
}

// FindByUsername retrieves a user of a user directory. Usernames are matched ignoring case.
func (r *UserRepository) FindByUsername(ctx context.Context, userDirectoryID uuid.UUID, username string) (*models.User, error) {
	var user models.User

	err := r.db.WithContext(ctx).
		Where("user_directory_id = ? AND LOWER(username) = LOWER(?)", userDirectoryID, username).
		First(&user).Error
	if err != nil {
		return nil, notFound(err, problem.ErrUserNotFound)
	}

	return &user, nil
}

// ExistsByUsername reports whether a user directory holds the username.
func (r *UserRepository) ExistsByUsername(ctx context.Context, userDirectoryID uuid.UUID, username string) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_directory_id = ? AND LOWER(username) = LOWER(?)", userDirectoryID, username))
}

// ExistsByUsernameInAnyDirectory reports whether any user directory holds the username.
func (r *UserRepository) ExistsByUsernameInAnyDirectory(ctx context.Context, username string) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(username) = LOWER(?)", username))
}

// FindUserDirectoryIDByUsername returns the ID of the user directory holding the username.
// When several directories hold it, the one with the lowest name wins.
func (r *UserRepository) FindUserDirectoryIDByUsername(ctx context.Context, username string) (uuid.UUID, error) {
	var ids []uuid.UUID

	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN security_user_directories d ON d.id = security_users.user_directory_id").
		Where("LOWER(security_users.username) = LOWER(?)", username).
		Order("d.name").
		Limit(1).
		Pluck("security_users.user_directory_id", &ids).Error
	if err != nil {
		return uuid.Nil, err
	}

	if len(ids) == 0 {
		return uuid.Nil, problem.ErrUserNotFound
	}

	return ids[0], nil
}

// CountByUserDirectoryID counts the users of a user directory.
func (r *UserRepository) CountByUserDirectoryID(ctx context.Context, userDirectoryID uuid.UUID) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).Model(&models.User{}).Where("user_directory_id = ?", userDirectoryID).Count(&count).Error

	return count, err
}

// FindAll lists the users of a user directory whose username, name or preferred name match the filter.
func (r *UserRepository) FindAll(
	ctx context.Context,
	userDirectoryID uuid.UUID,
	opts UserListOptions,
) (*Page[models.User], error) {
	opts.ListOptions = opts.ListOptions.normalized()
	if opts.SortBy == "" {
		opts.SortBy = models.UserSortByName
	}

	return paginate[models.User](func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&models.User{}).Where("user_directory_id = ?", userDirectoryID)
		if opts.Filter != "" {
			pattern := likePattern(opts.Filter)
			tx = tx.Where("(LOWER(username) LIKE ? OR LOWER(name) LIKE ? OR LOWER(preferred_name) LIKE ?)",
				pattern, pattern, pattern)
		}

		return tx
	}, opts.ListOptions, string(opts.SortBy))
}

// FindUsernamesByGroupID lists the usernames of the members of a group.
func (r *UserRepository) FindUsernamesByGroupID(ctx context.Context, groupID uuid.UUID) ([]string, error) {
	var usernames []string

	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN security_user_to_group_map m ON m.user_id = security_users.id").
		Where("m.group_id = ?", groupID).
		Order("security_users.username").
		Pluck("security_users.username", &usernames).Error

	return usernames, err
}

// AddPasswordHistory records a password hash of a user. A second change at the same instant replaces the first.
func (r *UserRepository) AddPasswordHistory(ctx context.Context, userID uuid.UUID, hash string, changed time.Time) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "changed"}},
			DoUpdates: clause.AssignmentColumns([]string{"password"}),
		}).
		Create(&models.PasswordHistory{
			UserID:   userID,
			Changed:  changed,
			Password: hash,
		}).Error
}

// FindPasswordHistorySince lists the password hashes a user set since the given time, newest first.
func (r *UserRepository) FindPasswordHistorySince(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
	limit int,
) ([]models.PasswordHistory, error) {
	var history []models.PasswordHistory

	tx := r.db.WithContext(ctx).Where("user_id = ? AND changed >= ?", userID, since).Order("changed DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	err := tx.Find(&history).Error

	return history, err
}

// DeletePasswordHistory removes the password history of a user.
func (r *UserRepository) DeletePasswordHistory(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PasswordHistory{}).Error
}
