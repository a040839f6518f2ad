package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"requests-service/internal/models"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict - record was modified by another request")
)

// RequestFilters contains the optional filters for request listings
type RequestFilters struct {
	Status        string
	Priority      string
	Type          string
	ClientID      *uuid.UUID
	TechnicianID  *uuid.UUID
	RequestedByID *uuid.UUID
	Search        string
	DateFrom      *time.Time
	DateTo        *time.Time
}

// RequestRepositoryInterface is the persistence boundary for the workflow engine
type RequestRepositoryInterface interface {
	WithTransaction(ctx context.Context, fn func(txRepo RequestRepositoryInterface) error) error
	NextRequestNumber(ctx context.Context, tenantID string, year int) (string, error)
	CreateRequest(ctx context.Context, request *models.Request) error
	GetRequestByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Request, error)
	ListRequests(ctx context.Context, tenantID string, filters RequestFilters, limit, offset int) ([]models.Request, int64, error)
	UpdateRequestStatus(ctx context.Context, request *models.Request, newStatus models.RequestStatus, updates map[string]interface{}) error
	FindScheduleConflicts(ctx context.Context, tenantID string, technicianID uuid.UUID, from, to time.Time, excludeID uuid.UUID, forUpdate bool) ([]models.Request, error)
	AddComment(ctx context.Context, comment *models.RequestComment) error
	AddApproval(ctx context.Context, approval *models.RequestApproval) error
	AddAttachment(ctx context.Context, attachment *models.RequestAttachment) error
	CreateAuditLog(ctx context.Context, entry *models.RequestAuditLog) error
	GetRequestAudit(ctx context.Context, tenantID string, requestID uuid.UUID) ([]models.RequestAuditLog, error)
	FindStalePending(ctx context.Context, pendingSince time.Time) ([]models.Request, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RequestRepository handles database operations for service requests
type RequestRepository struct {
	db *gorm.DB
}

// Ensure RequestRepository implements the interface
var _ RequestRepositoryInterface = (*RequestRepository)(nil)

// NewRequestRepository creates a new RequestRepository
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// WithTransaction runs fn with a repository bound to a database transaction
func (r *RequestRepository) WithTransaction(ctx context.Context, fn func(txRepo RequestRepositoryInterface) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&RequestRepository{db: tx})
	})
}

// CreateRequest creates a new request row
func (r *RequestRepository) CreateRequest(ctx context.Context, request *models.Request) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// GetRequestByID retrieves a request aggregate with its comment, approval
// and attachment logs hydrated in insertion order
func (r *RequestRepository) GetRequestByID(ctx context.Context, tenantID string, id uuid.UUID) (*models.Request, error) {
	var request models.Request
	err := r.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Approvals", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// ListRequests retrieves requests for a tenant with filters and pagination
func (r *RequestRepository) ListRequests(ctx context.Context, tenantID string, filters RequestFilters, limit, offset int) ([]models.Request, int64, error) {
	var requests []models.Request
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Request{}).
		Where("tenant_id = ?", tenantID)

	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.Priority != "" {
		query = query.Where("priority = ?", filters.Priority)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.ClientID != nil {
		query = query.Where("client_id = ?", *filters.ClientID)
	}
	if filters.TechnicianID != nil {
		query = query.Where("assigned_technician_id = ?", *filters.TechnicianID)
	}
	if filters.RequestedByID != nil {
		query = query.Where("requested_by_id = ?", *filters.RequestedByID)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("request_number ILIKE ? OR title ILIKE ? OR description ILIKE ?", pattern, pattern, pattern)
	}
	if filters.DateFrom != nil {
		query = query.Where("scheduled_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("scheduled_date <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error

	return requests, total, err
}

// UpdateRequestStatus updates request status with optimistic locking.
// Extra column updates (assignment, completion date, hours) ride along in
// the same statement so they can never be applied without the status guard.
func (r *RequestRepository) UpdateRequestStatus(ctx context.Context, request *models.Request, newStatus models.RequestStatus, updates map[string]interface{}) error {
	oldVersion := request.Version

	values := map[string]interface{}{
		"status":     newStatus,
		"version":    oldVersion + 1,
		"updated_at": time.Now(),
	}
	for k, v := range updates {
		values[k] = v
	}

	result := r.db.WithContext(ctx).Model(request).
		Where("id = ? AND version = ?", request.ID, oldVersion).
		Updates(values)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	request.Status = newStatus
	request.Version = oldVersion + 1
	return nil
}

// FindScheduleConflicts returns requests that would double-book a technician
// inside the [from, to) window. With forUpdate set the matching rows are
// locked for the duration of the surrounding transaction.
func (r *RequestRepository) FindScheduleConflicts(ctx context.Context, tenantID string, technicianID uuid.UUID, from, to time.Time, excludeID uuid.UUID, forUpdate bool) ([]models.Request, error) {
	var conflicts []models.Request

	query := r.db.WithContext(ctx).Model(&models.Request{}).
		Where("tenant_id = ? AND assigned_technician_id = ?", tenantID, technicianID).
		Where("scheduled_date >= ? AND scheduled_date < ?", from, to).
		Where("status IN ?", []models.RequestStatus{models.StatusApproved, models.StatusInProgress})

	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	err := query.Order("scheduled_date ASC").Find(&conflicts).Error
	return conflicts, err
}

// AddComment appends a comment entry; existing entries are never touched
func (r *RequestRepository) AddComment(ctx context.Context, comment *models.RequestComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// AddApproval appends an approval history entry
func (r *RequestRepository) AddApproval(ctx context.Context, approval *models.RequestApproval) error {
	return r.db.WithContext(ctx).Create(approval).Error
}

// AddAttachment appends an attachment metadata entry
func (r *RequestRepository) AddAttachment(ctx context.Context, attachment *models.RequestAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

// CreateAuditLog creates an audit log entry
func (r *RequestRepository) CreateAuditLog(ctx context.Context, entry *models.RequestAuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// GetRequestAudit retrieves the audit trail for a request
func (r *RequestRepository) GetRequestAudit(ctx context.Context, tenantID string, requestID uuid.UUID) ([]models.RequestAuditLog, error) {
	var entries []models.RequestAuditLog
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND request_id = ?", tenantID, requestID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// FindStalePending finds pending requests created before pendingSince that
// have not had a reminder sent yet
func (r *RequestRepository) FindStalePending(ctx context.Context, pendingSince time.Time) ([]models.Request, error) {
	var requests []models.Request
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ? AND reminded_at IS NULL", models.StatusPending, pendingSince).
		Find(&requests).Error
	return requests, err
}

// MarkReminded records that a pending reminder was sent for a request
func (r *RequestRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Request{}).
		Where("id = ?", id).
		Update("reminded_at", at).Error
}
