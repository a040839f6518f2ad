package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Notification types
const (
	NotificationRequestCreated   = "request_created"
	NotificationRequestApproved  = "request_approved"
	NotificationRequestRejected  = "request_rejected"
	NotificationRequestAssigned  = "request_assigned"
	NotificationRequestStarted   = "request_started"
	NotificationRequestCompleted = "request_completed"
	NotificationRequestCancelled = "request_cancelled"
	NotificationPendingReminder  = "pending_reminder"
)

// Notification is one per-recipient notification record
type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    string     `gorm:"type:varchar(255);not null;index" json:"tenantId"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index" json:"recipientId"`
	RequestID   *uuid.UUID `gorm:"type:uuid;index" json:"requestId,omitempty"`
	Type        string     `gorm:"type:varchar(40);not null" json:"type"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Message     string     `gorm:"type:text" json:"message,omitempty"`
	Read        bool       `gorm:"not null;default:false;index" json:"read"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// NotificationTarget addresses a dispatch: either one explicit recipient
// or everyone holding any of the given roles at dispatch time.
type NotificationTarget struct {
	UserID *uuid.UUID     `json:"userId,omitempty"`
	Roles  pq.StringArray `json:"roles,omitempty"`
}

// TargetUser builds a single-recipient target
func TargetUser(id uuid.UUID) NotificationTarget {
	return NotificationTarget{UserID: &id}
}

// TargetRoles builds a role-set target resolved at dispatch time
func TargetRoles(roles ...string) NotificationTarget {
	return NotificationTarget{Roles: roles}
}
