package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"requests-service/internal/models"
)

// UserDirectory resolves recipients for role gates and notification fan-out
type UserDirectory interface {
	GetUserByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.User, error)
	ListActiveUsersByRoles(ctx context.Context, tenantID string, roles []string) ([]models.User, error)
}

// UserRepository handles database operations for the user directory
type UserRepository struct {
	db *gorm.DB
}

var _ UserDirectory = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListActiveUsersByRoles returns the currently-active users holding any of
// the given roles. Resolution happens at call time; role membership changes
// are picked up by the next dispatch.
func (r *UserRepository) ListActiveUsersByRoles(ctx context.Context, tenantID string, roles []string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND role IN ? AND is_active = ?", tenantID, roles, true).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}
