package models

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalAction constants for RequestApproval entries
const (
	ApprovalActionApproved         = "approved"
	ApprovalActionRejected         = "rejected"
	ApprovalActionRequestedChanges = "requested_changes"
)

// RequestComment is one entry in a request's append-only comment log
type RequestComment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"requestId"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null" json:"authorId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName returns the table name for RequestComment
func (RequestComment) TableName() string {
	return "request_comments"
}

// RequestApproval is one entry in a request's append-only approval history
type RequestApproval struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"requestId"`
	Action    string    `gorm:"type:varchar(20);not null" json:"action"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null" json:"actorId"`
	ActorRole string    `gorm:"type:varchar(30)" json:"actorRole,omitempty"`
	Comment   string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName returns the table name for RequestApproval
func (RequestApproval) TableName() string {
	return "request_approvals"
}

// RequestAttachment is the stored metadata for one uploaded file.
// The blob itself lives in external storage.
type RequestAttachment struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RequestID    uuid.UUID `gorm:"type:uuid;not null;index" json:"requestId"`
	Filename     string    `gorm:"type:varchar(255);not null" json:"filename"`
	OriginalName string    `gorm:"type:varchar(255);not null" json:"originalName"`
	MimeType     string    `gorm:"type:varchar(100);not null" json:"mimeType"`
	SizeBytes    int64     `gorm:"not null" json:"size"`
	UploadedByID uuid.UUID `gorm:"type:uuid;not null" json:"uploadedById"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"uploadedAt"`
}

// TableName returns the table name for RequestAttachment
func (RequestAttachment) TableName() string {
	return "request_attachments"
}
