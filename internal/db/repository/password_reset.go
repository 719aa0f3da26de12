package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lobkit/identity/internal/db/models"
)

// PasswordResetRepository persists password reset requests.
type PasswordResetRepository struct {
	db *gorm.DB
}

// Create inserts a password reset.
func (r *PasswordResetRepository) Create(ctx context.Context, reset *models.PasswordReset) error {
	return r.db.WithContext(ctx).Create(reset).Error
}

// FindUnused lists the unused password resets of a username, newest first. Usernames are matched ignoring case.
func (r *PasswordResetRepository) FindUnused(ctx context.Context, username string) ([]models.PasswordReset, error) {
	var resets []models.PasswordReset

	err := r.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?) AND status = ?", username, models.PasswordResetStatusUnused).
		Order("requested DESC").
		Find(&resets).Error

	return resets, err
}

// Claim marks an unused password reset as used. The salted security code hash identifies the
// reset. It reports false when the reset was already used or expired, so a security code can be
// claimed only once.
func (r *PasswordResetRepository) Claim(ctx context.Context, reset *models.PasswordReset, when time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PasswordReset{}).
		Where("username = ? AND security_code_hash = ? AND status = ?",
			reset.Username, reset.SecurityCodeHash, models.PasswordResetStatusUnused).
		Updates(map[string]any{
			"status":    models.PasswordResetStatusUsed,
			"completed": when,
		})

	return result.RowsAffected > 0, result.Error
}

// ExpireRequestedBefore marks unused password resets requested before cutoff as expired
// and returns how many were updated.
func (r *PasswordResetRepository) ExpireRequestedBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PasswordReset{}).
		Where("status = ? AND requested < ?", models.PasswordResetStatusUnused, cutoff).
		Updates(map[string]any{
			"status":  models.PasswordResetStatusExpired,
			"expired": now,
		})

	return result.RowsAffected, result.Error
}
