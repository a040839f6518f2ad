package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"requests-service/internal/models"
)

// NotificationRepositoryInterface persists per-recipient notification records
type NotificationRepositoryInterface interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	ListForRecipient(ctx context.Context, tenantID string, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, tenantID string, id, recipientID uuid.UUID) error
}

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db *gorm.DB
}

var _ NotificationRepositoryInterface = (*NotificationRepository)(nil)

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateNotification creates one notification record
func (r *NotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// ListForRecipient retrieves a recipient's notifications, newest first
func (r *NotificationRepository) ListForRecipient(ctx context.Context, tenantID string, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("tenant_id = ? AND recipient_id = ?", tenantID, recipientID)

	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error

	return notifications, total, err
}

// MarkRead marks one of the recipient's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, tenantID string, id, recipientID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("tenant_id = ? AND id = ? AND recipient_id = ?", tenantID, id, recipientID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
