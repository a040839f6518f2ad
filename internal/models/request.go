package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus represents the lifecycle state of a service request
type RequestStatus string

const (
	StatusDraft      RequestStatus = "draft"
	StatusPending    RequestStatus = "pending"
	StatusApproved   RequestStatus = "approved"
	StatusRejected   RequestStatus = "rejected"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

// RequestType represents the kind of technical service requested
type RequestType string

const (
	TypeMaintenance  RequestType = "maintenance"
	TypeRepair       RequestType = "repair"
	TypeInstallation RequestType = "installation"
	TypeInspection   RequestType = "inspection"
	TypeOther        RequestType = "other"
)

// RequestPriority represents the priority of a service request
type RequestPriority string

const (
	PriorityLow      RequestPriority = "low"
	PriorityMedium   RequestPriority = "medium"
	PriorityHigh     RequestPriority = "high"
	PriorityCritical RequestPriority = "critical"
)

// Request represents one technical-service request end-to-end
type Request struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID      string          `gorm:"type:varchar(255);not null;index;uniqueIndex:idx_request_number_tenant" json:"tenantId"`
	RequestNumber string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_request_number_tenant" json:"requestNumber"`
	Title         string          `gorm:"type:varchar(255);not null" json:"title"`
	Description   string          `gorm:"type:text;not null" json:"description"`
	Type          RequestType     `gorm:"type:varchar(30);not null" json:"type"`
	Priority      RequestPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Status        RequestStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Version       int             `gorm:"not null;default:1" json:"version"` // Optimistic locking

	ClientID      uuid.UUID `gorm:"type:uuid;not null;index" json:"clientId"`
	RequestedByID uuid.UUID `gorm:"type:uuid;not null;index" json:"requestedById"`

	// Scheduling, set by an approval and changed only by a subsequent approval
	AssignedTechnicianID *uuid.UUID `gorm:"type:uuid;index" json:"assignedTechnicianId,omitempty"`
	ScheduledDate        *time.Time `gorm:"index" json:"scheduledDate,omitempty"`
	CompletedDate        *time.Time `json:"completedDate,omitempty"`

	EstimatedHours float64 `gorm:"not null;default:0" json:"estimatedHours"`
	ActualHours    float64 `gorm:"not null;default:0" json:"actualHours"`

	EstimatedCost float64 `gorm:"not null;default:0" json:"estimatedCost"`
	ActualCost    float64 `gorm:"not null;default:0" json:"actualCost"`
	Currency      string  `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`

	RemindedAt *time.Time `json:"remindedAt,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	// Relations, hydrated by the repository
	Comments    []RequestComment    `gorm:"foreignKey:RequestID" json:"comments,omitempty"`
	Approvals   []RequestApproval   `gorm:"foreignKey:RequestID" json:"approvalHistory,omitempty"`
	Attachments []RequestAttachment `gorm:"foreignKey:RequestID" json:"attachments,omitempty"`
}

// TableName returns the table name for Request
func (Request) TableName() string {
	return "requests"
}

// IsTerminal returns true if the status is a terminal state
func (r *Request) IsTerminal() bool {
	return r.Status == StatusRejected ||
		r.Status == StatusCompleted ||
		r.Status == StatusCancelled
}

// CanTransitionTo reports whether the state machine allows moving to the target status
func (r *Request) CanTransitionTo(target RequestStatus) bool {
	switch target {
	case StatusPending:
		return r.Status == StatusDraft
	case StatusApproved, StatusRejected:
		return r.Status == StatusPending
	case StatusInProgress:
		return r.Status == StatusApproved
	case StatusCompleted:
		return r.Status == StatusInProgress
	case StatusCancelled:
		return !r.IsTerminal()
	default:
		return false
	}
}

// Summary returns the lightweight projection used in conflict listings
func (r *Request) Summary() RequestSummary {
	return RequestSummary{
		ID:                   r.ID,
		RequestNumber:        r.RequestNumber,
		Title:                r.Title,
		Status:               r.Status,
		AssignedTechnicianID: r.AssignedTechnicianID,
		ScheduledDate:        r.ScheduledDate,
	}
}

// RequestSummary is the projection of a request returned in scheduling-conflict errors
type RequestSummary struct {
	ID                   uuid.UUID     `json:"id"`
	RequestNumber        string        `json:"requestNumber"`
	Title                string        `json:"title"`
	Status               RequestStatus `json:"status"`
	AssignedTechnicianID *uuid.UUID    `json:"assignedTechnicianId,omitempty"`
	ScheduledDate        *time.Time    `json:"scheduledDate,omitempty"`
}

// RequestCounter backs the year-scoped request number sequence.
// Incremented with a single upsert statement so concurrent creations
// in the same year never observe the same value.
type RequestCounter struct {
	TenantID string `gorm:"type:varchar(255);primaryKey"`
	Year     int    `gorm:"primaryKey"`
	Value    int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for RequestCounter
func (RequestCounter) TableName() string {
	return "request_counters"
}

// ValidType reports whether t is a known request type
func ValidType(t RequestType) bool {
	switch t {
	case TypeMaintenance, TypeRepair, TypeInstallation, TypeInspection, TypeOther:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority
func ValidPriority(p RequestPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
