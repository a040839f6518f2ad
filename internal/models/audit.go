package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RequestAuditLog represents one immutable audit trail entry.
// Exactly one entry is written per mutating operation, whether or not
// the operation itself succeeded.
type RequestAuditLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID     string         `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	RequestID    *uuid.UUID     `gorm:"type:uuid;index" json:"requestId,omitempty"`
	ActorID      uuid.UUID      `gorm:"type:uuid;not null" json:"actorId"`
	ActorRole    string         `gorm:"type:varchar(30)" json:"actorRole,omitempty"`
	Action       string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType   string         `gorm:"type:varchar(50);not null" json:"entityType"`
	EntityID     *uuid.UUID     `gorm:"type:uuid" json:"entityId,omitempty"`
	Success      bool           `gorm:"not null" json:"success"`
	ErrorMessage string         `gorm:"type:text" json:"errorMessage,omitempty"`
	Metadata     datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for RequestAuditLog
func (RequestAuditLog) TableName() string {
	return "request_audit_log"
}

// Audit action constants
const (
	AuditActionCreate     = "request.create"
	AuditActionSubmit     = "request.submit"
	AuditActionApprove    = "request.approve"
	AuditActionReject     = "request.reject"
	AuditActionStart      = "request.start"
	AuditActionComplete   = "request.complete"
	AuditActionCancel     = "request.cancel"
	AuditActionComment    = "request.comment"
	AuditActionAttachment = "request.attachment"
)
