package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
)

// TokenRepository persists tokens.
type TokenRepository struct {
	db *gorm.DB
}

// Create inserts a token.
func (r *TokenRepository) Create(ctx context.Context, token *models.Token) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// Save updates all fields of a token.
func (r *TokenRepository) Save(ctx context.Context, token *models.Token) error {
	return r.db.WithContext(ctx).Save(token).Error
}

// Delete removes a token.
func (r *TokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Token{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return problem.ErrTokenNotFound
	}

	return nil
}

// FindByID retrieves a token.
func (r *TokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Token, error) {
	var token models.Token
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		return nil, notFound(err, problem.ErrTokenNotFound)
	}

	return &token, nil
}

// ExistsByName reports whether a token uses the name, ignoring case.
func (r *TokenRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.Token{}).Where("LOWER(name) = ?", strings.ToLower(name)))
}

// FindAll lists the tokens whose name matches the filter, ordered by name.
func (r *TokenRepository) FindAll(ctx context.Context, filter string) ([]models.Token, error) {
	var tokens []models.Token

	tx := r.db.WithContext(ctx).Order("name")
	if filter = strings.TrimSpace(filter); filter != "" {
		tx = tx.Where("LOWER(name) LIKE ?", likePattern(filter))
	}

	err := tx.Find(&tokens).Error

	return tokens, err
}
