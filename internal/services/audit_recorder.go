package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"requests-service/internal/models"
	"requests-service/internal/repository"
)

// AuditRecorder writes one immutable audit entry per mutating operation.
// Recording is fire-and-forget: a failure to persist the entry is logged
// locally and never surfaced to the originating operation.
type AuditRecorder struct {
	repo   repository.RequestRepositoryInterface
	logger *logrus.Entry
}

// NewAuditRecorder creates a new AuditRecorder
func NewAuditRecorder(repo repository.RequestRepositoryInterface, logger *logrus.Logger) *AuditRecorder {
	if logger == nil {
		logger = logrus.New()
	}
	return &AuditRecorder{
		repo:   repo,
		logger: logger.WithField("component", "audit"),
	}
}

// AuditEntry describes one attempted mutation
type AuditEntry struct {
	TenantID  string
	RequestID *uuid.UUID
	Actor     Actor
	Action    string
	Err       error
	Metadata  map[string]interface{}
}

// Record persists the entry. Success and error message are derived from
// entry.Err so callers can defer a single Record call on every return path.
func (a *AuditRecorder) Record(ctx context.Context, entry AuditEntry) {
	row := &models.RequestAuditLog{
		TenantID:   entry.TenantID,
		RequestID:  entry.RequestID,
		ActorID:    entry.Actor.ID,
		ActorRole:  entry.Actor.Role,
		Action:     entry.Action,
		EntityType: "request",
		EntityID:   entry.RequestID,
		Success:    entry.Err == nil,
	}
	if entry.Err != nil {
		row.ErrorMessage = entry.Err.Error()
	}
	if entry.Metadata != nil {
		if data, err := json.Marshal(entry.Metadata); err == nil {
			row.Metadata = datatypes.JSON(data)
		}
	}

	if err := a.repo.CreateAuditLog(ctx, row); err != nil {
		a.logger.WithFields(logrus.Fields{
			"action":   entry.Action,
			"tenantID": entry.TenantID,
		}).WithError(err).Error("Failed to persist audit entry")
	}
}
