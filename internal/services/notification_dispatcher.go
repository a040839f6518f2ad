package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"requests-service/internal/metrics"
	"requests-service/internal/models"
	"requests-service/internal/repository"
)

const roleCacheTTL = 60 * time.Second

// NotificationDispatcher resolves a target to concrete recipients and writes
// one notification record per recipient. Role targets are resolved against
// the active user directory at dispatch time, so the fan-out is eventually
// consistent with role membership changes. Delivery is best-effort: a failed
// recipient is logged and skipped, never failing the operation.
type NotificationDispatcher struct {
	notifications repository.NotificationRepositoryInterface
	users         repository.UserDirectory
	cache         *redis.Client
	logger        *logrus.Entry
}

// NewNotificationDispatcher creates a dispatcher. cache is optional; without
// it every role resolution hits the user directory.
func NewNotificationDispatcher(notifications repository.NotificationRepositoryInterface, users repository.UserDirectory, cache *redis.Client, logger *logrus.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &NotificationDispatcher{
		notifications: notifications,
		users:         users,
		cache:         cache,
		logger:        logger.WithField("component", "notifications"),
	}
}

// NotificationPayload is the content delivered to each resolved recipient
type NotificationPayload struct {
	RequestID *uuid.UUID
	Type      string
	Title     string
	Message   string
}

// Dispatch fans the payload out to the target's resolved recipients
func (d *NotificationDispatcher) Dispatch(ctx context.Context, tenantID string, target models.NotificationTarget, payload NotificationPayload) {
	recipients, err := d.resolve(ctx, tenantID, target)
	if err != nil {
		d.logger.WithField("tenantID", tenantID).WithError(err).Error("Failed to resolve notification recipients")
		return
	}

	for _, recipientID := range recipients {
		notification := &models.Notification{
			TenantID:    tenantID,
			RecipientID: recipientID,
			RequestID:   payload.RequestID,
			Type:        payload.Type,
			Title:       payload.Title,
			Message:     payload.Message,
		}
		if err := d.notifications.CreateNotification(ctx, notification); err != nil {
			d.logger.WithFields(logrus.Fields{
				"recipientID": recipientID,
				"type":        payload.Type,
			}).WithError(err).Error("Failed to create notification record")
			continue
		}
		metrics.NotificationsDispatchedTotal.WithLabelValues(payload.Type).Inc()
	}
}

// resolve expands a target into recipient ids
func (d *NotificationDispatcher) resolve(ctx context.Context, tenantID string, target models.NotificationTarget) ([]uuid.UUID, error) {
	if target.UserID != nil {
		return []uuid.UUID{*target.UserID}, nil
	}

	if len(target.Roles) == 0 {
		return nil, nil
	}

	if ids, ok := d.cachedRoleMembers(ctx, tenantID, target.Roles); ok {
		return ids, nil
	}

	users, err := d.users.ListActiveUsersByRoles(ctx, tenantID, target.Roles)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	d.cacheRoleMembers(ctx, tenantID, target.Roles, ids)
	return ids, nil
}

func roleCacheKey(tenantID string, roles []string) string {
	key := fmt.Sprintf("requests:role-members:%s", tenantID)
	for _, r := range roles {
		key += ":" + r
	}
	return key
}

func (d *NotificationDispatcher) cachedRoleMembers(ctx context.Context, tenantID string, roles []string) ([]uuid.UUID, bool) {
	if d.cache == nil {
		return nil, false
	}

	data, err := d.cache.Get(ctx, roleCacheKey(tenantID, roles)).Bytes()
	if err != nil {
		if err != redis.Nil {
			d.logger.WithError(err).Debug("Role member cache read failed")
		}
		return nil, false
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, false
	}
	return ids, true
}

func (d *NotificationDispatcher) cacheRoleMembers(ctx context.Context, tenantID string, roles []string, ids []uuid.UUID) {
	if d.cache == nil {
		return
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, roleCacheKey(tenantID, roles), data, roleCacheTTL).Err(); err != nil {
		d.logger.WithError(err).Debug("Role member cache write failed")
	}
}
