package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"requests-service/internal/events"
	"requests-service/internal/metrics"
	"requests-service/internal/models"
	"requests-service/internal/repository"
)

// Attachment limits. Blobs live in external storage; only metadata is kept here.
const maxAttachmentSize = 25 << 20 // 25 MiB

var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"text/plain":      true,
	"text/csv":        true,
}

// Actor identifies the authenticated user performing an operation
type Actor struct {
	ID    uuid.UUID
	Role  string
	Name  string
	Email string
}

// WorkflowService drives the request lifecycle: creation, the approval
// gate, execution and the append-only side logs. Every mutating operation
// records exactly one audit entry, whether it succeeds or fails.
type WorkflowService struct {
	repo      repository.RequestRepositoryInterface
	users     repository.UserDirectory
	conflicts *ConflictChecker
	audit     *AuditRecorder
	notifier  *NotificationDispatcher
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewWorkflowService creates the workflow engine. publisher may be nil when
// eventing is disabled.
func NewWorkflowService(
	repo repository.RequestRepositoryInterface,
	users repository.UserDirectory,
	conflicts *ConflictChecker,
	audit *AuditRecorder,
	notifier *NotificationDispatcher,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *WorkflowService {
	if logger == nil {
		logger = logrus.New()
	}
	return &WorkflowService{
		repo:      repo,
		users:     users,
		conflicts: conflicts,
		audit:     audit,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger.WithField("component", "workflow"),
	}
}

// CreateRequestInput carries the fields for a new service request
type CreateRequestInput struct {
	Title          string                 `json:"title" binding:"required"`
	Description    string                 `json:"description" binding:"required"`
	Type           models.RequestType     `json:"type" binding:"required"`
	Priority       models.RequestPriority `json:"priority"`
	ClientID       uuid.UUID              `json:"clientId" binding:"required"`
	TechnicianID   *uuid.UUID             `json:"technicianId,omitempty"`
	ScheduledDate  *time.Time             `json:"scheduledDate,omitempty"`
	EstimatedHours float64                `json:"estimatedHours"`
	EstimatedCost  float64                `json:"estimatedCost"`
	Currency       string                 `json:"currency"`
	Draft          bool                   `json:"draft"`
}

// ApproveRequestInput carries the approver's decision. The assignment is
// optional: a request may be approved first and scheduled later.
type ApproveRequestInput struct {
	TechnicianID  *uuid.UUID `json:"technicianId,omitempty"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
	Comment       string     `json:"comment"`
}

// RejectRequestInput carries the mandatory rejection reason
type RejectRequestInput struct {
	Reason string `json:"reason" binding:"required"`
}

// CompleteRequestInput carries the actuals recorded at completion
type CompleteRequestInput struct {
	ActualHours float64 `json:"actualHours"`
	ActualCost  float64 `json:"actualCost"`
	Notes       string  `json:"notes"`
}

// AttachmentInput carries the metadata of an uploaded file
type AttachmentInput struct {
	OriginalName string `json:"originalName" binding:"required"`
	MimeType     string `json:"mimeType" binding:"required"`
	SizeBytes    int64  `json:"size" binding:"required"`
}

// CreateRequest registers a new request. A preferred date may be supplied on
// its own; naming a technician requires a date so the preference can be
// conflict-checked. The assignment itself is only ever set by an approval.
func (s *WorkflowService) CreateRequest(ctx context.Context, tenantID string, actor Actor, input CreateRequestInput) (request *models.Request, err error) {
	defer func() {
		var requestID *uuid.UUID
		meta := map[string]interface{}{"title": input.Title}
		if request != nil {
			requestID = &request.ID
			meta["requestNumber"] = request.RequestNumber
		}
		s.audit.Record(ctx, AuditEntry{
			TenantID:  tenantID,
			RequestID: requestID,
			Actor:     actor,
			Action:    models.AuditActionCreate,
			Err:       err,
			Metadata:  meta,
		})
		metrics.RecordOperation("create", err)
	}()

	if strings.TrimSpace(input.Title) == "" {
		return nil, newValidationError("title", "title is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, newValidationError("description", "description is required")
	}
	if !models.ValidType(input.Type) {
		return nil, newValidationError("type", fmt.Sprintf("unknown request type %q", input.Type))
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(input.Priority) {
		return nil, newValidationError("priority", fmt.Sprintf("unknown priority %q", input.Priority))
	}
	if input.ClientID == uuid.Nil {
		return nil, newValidationError("clientId", "clientId is required")
	}
	if input.TechnicianID != nil && input.ScheduledDate == nil {
		return nil, newValidationError("scheduledDate", "scheduledDate is required when naming a technician")
	}

	if input.TechnicianID != nil {
		conflicts, cerr := s.conflicts.FindConflicts(ctx, tenantID, *input.TechnicianID, *input.ScheduledDate, uuid.Nil)
		if cerr != nil {
			err = cerr
			return nil, err
		}
		if len(conflicts) > 0 {
			err = &SchedulingConflictError{
				TechnicianID: input.TechnicianID.String(),
				Day:          input.ScheduledDate.Format("2006-01-02"),
				Conflicts:    conflicts,
			}
			return nil, err
		}
	}

	status := models.StatusPending
	if input.Draft {
		status = models.StatusDraft
	}
	currency := input.Currency
	if currency == "" {
		currency = "USD"
	}

	// Number allocation and the insert share one transaction so an
	// allocated number is discarded together with a failed insert.
	err = s.repo.WithTransaction(ctx, func(txRepo repository.RequestRepositoryInterface) error {
		number, terr := txRepo.NextRequestNumber(ctx, tenantID, time.Now().Year())
		if terr != nil {
			return terr
		}

		request = &models.Request{
			TenantID:       tenantID,
			RequestNumber:  number,
			Title:          input.Title,
			Description:    input.Description,
			Type:           input.Type,
			Priority:       input.Priority,
			Status:         status,
			ClientID:       input.ClientID,
			RequestedByID:  actor.ID,
			ScheduledDate:  input.ScheduledDate,
			EstimatedHours: input.EstimatedHours,
			EstimatedCost:  input.EstimatedCost,
			Currency:       currency,
		}
		return txRepo.CreateRequest(ctx, request)
	})
	if err != nil {
		request = nil
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if request.Status == models.StatusPending {
		s.notifyApprovers(ctx, request)
	}
	s.publisher.Publish(events.SubjectRequestCreated, request, "", actor.ID, actor.Role, "")

	s.logger.WithFields(logrus.Fields{
		"requestNumber": request.RequestNumber,
		"tenantID":      tenantID,
		"status":        request.Status,
	}).Info("Request created")

	return request, nil
}

// SubmitRequest moves a draft to pending, opening it for approval
func (s *WorkflowService) SubmitRequest(ctx context.Context, tenantID string, actor Actor, id uuid.UUID) (request *models.Request, err error) {
	defer func() {
		s.audit.Record(ctx, AuditEntry{
			TenantID: tenantID, RequestID: &id, Actor: actor,
			Action: models.AuditActionSubmit, Err: err,
		})
		metrics.RecordOperation("submit", err)
	}()

	err = s.repo.WithTransaction(ctx, func(txRepo repository.RequestRepositoryInterface) error {
		current, terr := s.fetch(ctx, txRepo, tenantID, id)
		if terr != nil {
			return terr
		}
		if current.RequestedByID != actor.ID && actor.Role != models.RoleAdmin {
			return ErrForbidden
		}
		if !current.CanTransitionTo(models.StatusPending) {
			return ErrInvalidTransition
		}
		if terr := txRepo.UpdateRequestStatus(ctx, current, models.StatusPending, nil); terr != nil {
			return terr
		}
		request = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyApprovers(ctx, request)
	s.publisher.Publish(events.SubjectRequestSubmitted, request, models.StatusDraft, actor.ID, actor.Role, "")
	return request, nil
}

// ApproveRequest runs the approval gate: the request must still be pending.
// A technician assignment may ride along; when it does, the conflict check
// and the status change happen in one transaction, with the conflicting rows
// locked, so two concurrent approvals for the same technician/day cannot
// both pass.
func (s *WorkflowService) ApproveRequest(ctx context.Context, tenantID string, actor Actor, id uuid.UUID, input ApproveRequestInput) (request *models.Request, err error) {
	defer func() {
		meta := map[string]interface{}{}
		if input.TechnicianID != nil {
			meta["technicianId"] = input.TechnicianID.String()
		}
		if input.ScheduledDate != nil {
			meta["scheduledDate"] = input.ScheduledDate.Format(time.RFC3339)
		}
		s.audit.Record(ctx, AuditEntry{
			TenantID: tenantID, RequestID: &id, Actor: actor,
			Action: models.AuditActionApprove, Err: err,
			Metadata: meta,
		})
		metrics.RecordOperation("approve", err)
	}()

	if !models.IsApproverRole(actor.Role) {
		return nil, ErrForbidden
	}
	if input.TechnicianID != nil && input.ScheduledDate == nil {
		return nil, newValidationError("scheduledDate", "scheduledDate is required when assigning a technician")
	}
	if input.TechnicianID != nil {
		if err = s.checkTechnician(ctx, tenantID, *input.TechnicianID); err != nil {
			return nil, err
		}
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repository.RequestRepositoryInterface) error {
		current, terr := s.fetch(ctx, txRepo, tenantID, id)
		if terr != nil {
			return terr
		}
		if current.Status != models.StatusPending {
			return ErrInvalidTransition
		}

		if input.TechnicianID != nil {
			conflicts, terr := s.conflicts.findConflictsLocked(ctx, txRepo, tenantID, *input.TechnicianID, *input.ScheduledDate, id)
			if terr != nil {
				return terr
			}
			if len(conflicts) > 0 {
				metrics.SchedulingConflictsTotal.Inc()
				return &SchedulingConflictError{
					TechnicianID: input.TechnicianID.String(),
					Day:          input.ScheduledDate.Format("2006-01-02"),
					Conflicts:    conflicts,
				}
			}
		}

		updates := map[string]interface{}{}
		if input.TechnicianID != nil {
			updates["assigned_technician_id"] = *input.TechnicianID
		}
		if input.ScheduledDate != nil {
			updates["scheduled_date"] = *input.ScheduledDate
		}
		if terr := txRepo.UpdateRequestStatus(ctx, current, models.StatusApproved, updates); terr != nil {
			return terr
		}

		if terr := txRepo.AddApproval(ctx, &models.RequestApproval{
			RequestID: id,
			Action:    models.ApprovalActionApproved,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Comment:   input.Comment,
		}); terr != nil {
			return terr
		}

		if input.TechnicianID != nil {
			current.AssignedTechnicianID = input.TechnicianID
		}
		if input.ScheduledDate != nil {
			current.ScheduledDate = input.ScheduledDate
		}
		request = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	approvedMsg := fmt.Sprintf("%q was approved.", request.Title)
	if request.ScheduledDate != nil {
		approvedMsg = fmt.Sprintf("%q was approved and scheduled for %s.", request.Title, request.ScheduledDate.Format("2006-01-02"))
	}
	s.notifier.Dispatch(ctx, tenantID, models.TargetUser(request.RequestedByID), NotificationPayload{
		RequestID: &request.ID,
		Type:      models.NotificationRequestApproved,
		Title:     fmt.Sprintf("Request %s approved", request.RequestNumber),
		Message:   approvedMsg,
	})
	if input.TechnicianID != nil {
		s.notifier.Dispatch(ctx, tenantID, models.TargetUser(*input.TechnicianID), NotificationPayload{
			RequestID: &request.ID,
			Type:      models.NotificationRequestAssigned,
			Title:     fmt.Sprintf("Assigned to request %s", request.RequestNumber),
			Message:   fmt.Sprintf("You are scheduled for %q on %s.", request.Title, input.ScheduledDate.Format("2006-01-02")),
		})
	}
	s.publisher.Publish(events.SubjectRequestApproved, request, models.StatusPending, actor.ID, actor.Role, input.Comment)

	logFields := logrus.Fields{"requestNumber": request.RequestNumber}
	if request.AssignedTechnicianID != nil {
		logFields["technicianID"] = *request.AssignedTechnicianID
	}
	if request.ScheduledDate != nil {
		logFields["scheduledDate"] = request.ScheduledDate.Format("2006-01-02")
	}
	s.logger.WithFields(logFields).Info("Request approved")

	return request, nil
}

// RejectRequest rejects a pending request. A non-empty reason is mandatory
// and is appended to the approval history.
func (s *WorkflowService) RejectRequest(ctx context.Context, tenantID string, actor Actor, id uuid.UUID, input RejectRequestInput) (request *models.Request, err error) {
	defer func() {
		s.audit.Record(ctx, AuditEntry{
			TenantID: tenantID, RequestID: &id, Actor: actor,
			Action: models.AuditActionReject, Err: err,
			Metadata: map[string]interface{}{"reason": input.Reason},
		})
		metrics.RecordOperation("reject", err)
	}()

	if !models.IsApproverRole(actor.Role) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, newValidationError("reason", "a rejection reason is required")
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repository.RequestRepositoryInterface) error {
		current, terr := s.fetch(ctx, txRepo, tenantID, id)
		if terr != nil {
			return terr
		}
		if current.Status != models.StatusPending {
			return ErrInvalidTransition
		}
		if terr := txRepo.UpdateRequestStatus(ctx, current, models.StatusRejected, nil); terr != nil {
			return terr
		}
		if terr := txRepo.AddApproval(ctx, &models.RequestApproval{
			RequestID: id,
			Action:    models.ApprovalActionRejected,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Comment:   input.Reason,
		}); terr != nil {
			return terr
		}
		request = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, tenantID, models.TargetUser(request.RequestedByID), NotificationPayload{
		RequestID: &request.ID,
		Type:      models.NotificationRequestRejected,
		Title:     fmt.Sprintf("Request %s rejected", request.RequestNumber),
		Message:   fmt.Sprintf("%q was rejected: %s", request.Title, input.Reason),
	})
	s.publisher.Publish(events.SubjectRequestRejected, request, models.StatusPending, actor.ID, actor.Role, input.Reason)

	return request, nil
}

// StartRequest moves an approved request into execution. The assigned
// technician or an approver role may start it.
func (s *WorkflowService) StartRequest(ctx context.Context, tenantID string, actor Actor, id uuid.UUID) (request *models.Request, err error) {
	defer func() {
		s.audit.Record(ctx, AuditEntry{
			TenantID: tenantID, RequestID: &id, Actor: actor,
			Action: models.AuditActionStart, Err: err,
		})
		metrics.RecordOperation("start", err)
	}()

	err = s.repo.WithTransaction(ctx, func(txRepo repository.RequestRepositoryInterface) error {
		current, terr := s.fetch(ctx, txRepo, tenantID, id)
		if terr != nil {
			return terr
		}
		if !s.canExecute(current, actor) {
			return ErrForbidden
		}
		if !current.CanTransitionTo(models.StatusInProgress) {
			return ErrInvalidTransition
		}
		if terr := txRepo.UpdateRequestStatus(ctx, current, models.StatusInProgress, nil); terr != nil {
			return terr
		}
		request = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, tenantID, models.TargetUser(request.RequestedByID), NotificationPayload{
		RequestID: &request.ID,
		Type:      models.NotificationRequestStarted,
		Title:     fmt.Sprintf("Work started on %s", request.RequestNumber),
		Message:   fmt.Sprintf("Work on %q has started.", request.Title),
	})
	s.publisher.Publish(events.SubjectRequestStarted, request, models.StatusApproved, actor.ID, actor.Role, "")

	return request, nil
}

// CompleteRequest closes out an in-progress request and records actuals
func (s *WorkflowService) CompleteRequest(ctx context.Context, tenantID string, actor Actor, id uuid.UUID, input CompleteRequestInput) (request *models.Request, err error) {
	defer func() {
		s.audit.Record(ctx, AuditEntry{
			TenantID: tenantID, RequestID: &id, Actor: actor,
			Action: models.AuditActionComplete, Err: err,
			Metadata: map[string]interface{}{
				"actualHours": input.ActualHours,
				"actualCost":  input.ActualCost,
			},
		})
		metrics.RecordOperation("complete", err)
	}()

	if input.ActualHours < 0 {
		return nil, newValidationError("actualHours", "actualHours must not be negative")
	}
	if input.ActualCost < 0 {
		return nil, newValidationError("actualCost", "actualCost must not be negative")
	}

	now := time.Now()
	err = s.repo.WithTransaction(ctx, func(txRepo repository.RequestRepositoryInterface) error {
		current, terr := s.fetch(ctx, txRepo, tenantID, id)
		if terr != nil {
			return terr
		}
		if !s.canExecute(current, actor) {
			return ErrForbidden
		}
		if !current.CanTransitionTo(models.StatusCompleted) {
			return ErrInvalidTransition
		}
		updates := map[string]interface{}{
			"actual_hours":   input.ActualHours,
			"actual_cost":    input.ActualCost,
			"completed_date": now,
		}
		if terr := txRepo.UpdateRequestStatus(ctx, current, models.StatusCompleted, updates); terr != nil {
			return terr
		}
		if strings.TrimSpace(input.Notes) != "" {
			if terr := txRepo.AddComment(ctx, &models.RequestComment{
				RequestID: id,
				AuthorID:  actor.ID,
				Content:   input.Notes,
			}); terr != nil {
				return terr
			}
		}
		current.CompletedDate = &now
		request = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, tenantID, models.TargetUser(request.RequestedByID), NotificationPayload{
		RequestID: &request.ID,
		Type:      models.NotificationRequestCompleted,
		Title:     fmt.Sprintf("Request %s completed", request.RequestNumber),
		Message:   fmt.Sprintf("%q was completed.", request.Title),
	})
	s.publisher.Publish(events.SubjectRequestCompleted, request, models.StatusInProgress, actor.ID, actor.Role, "")

	return request, nil
}

// CancelRequest cancels any non-terminal request. The requester may cancel
// their own request; approver roles may cancel any.
func (s *WorkflowService) CancelRequest(ctx context.Context, tenantID string, actor Actor, id uuid.UUID, reason string) (request *models.Request, err error) {
	defer func() {
		s.audit.Record(ctx, AuditEntry{
			TenantID: tenantID, RequestID: &id, Actor: actor,
			Action: models.AuditActionCancel, Err: err,
			Metadata: map[string]interface{}{"reason": reason},
		})
		metrics.RecordOperation("cancel", err)
	}()

	var previous models.RequestStatus
	err = s.repo.WithTransaction(ctx, func(txRepo repository.RequestRepositoryInterface) error {
		current, terr := s.fetch(ctx, txRepo, tenantID, id)
		if terr != nil {
			return terr
		}
		if current.RequestedByID != actor.ID && !models.IsApproverRole(actor.Role) {
			return ErrForbidden
		}
		if !current.CanTransitionTo(models.StatusCancelled) {
			return ErrInvalidTransition
		}
		previous = current.Status
		if terr := txRepo.UpdateRequestStatus(ctx, current, models.StatusCancelled, nil); terr != nil {
			return terr
		}
		request = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if request.RequestedByID != actor.ID {
		s.notifier.Dispatch(ctx, tenantID, models.TargetUser(request.RequestedByID), NotificationPayload{
			RequestID: &request.ID,
			Type:      models.NotificationRequestCancelled,
			Title:     fmt.Sprintf("Request %s cancelled", request.RequestNumber),
			Message:   fmt.Sprintf("%q was cancelled.", request.Title),
		})
	}
	if request.AssignedTechnicianID != nil && *request.AssignedTechnicianID != actor.ID {
		s.notifier.Dispatch(ctx, tenantID, models.TargetUser(*request.AssignedTechnicianID), NotificationPayload{
			RequestID: &request.ID,
			Type:      models.NotificationRequestCancelled,
			Title:     fmt.Sprintf("Request %s cancelled", request.RequestNumber),
			Message:   fmt.Sprintf("Your assignment on %q was cancelled.", request.Title),
		})
	}
	s.publisher.Publish(events.SubjectRequestCancelled, request, previous, actor.ID, actor.Role, reason)

	return request, nil
}

// AddComment appends to the comment log of a non-terminal request
func (s *WorkflowService) AddComment(ctx context.Context, tenantID string, actor Actor, id uuid.UUID, content string) (comment *models.RequestComment, err error) {
	defer func() {
		s.audit.Record(ctx, AuditEntry{
			TenantID: tenantID, RequestID: &id, Actor: actor,
			Action: models.AuditActionComment, Err: err,
		})
		metrics.RecordOperation("comment", err)
	}()

	if strings.TrimSpace(content) == "" {
		return nil, newValidationError("content", "comment content is required")
	}

	// The terminal-state guard and the insert share a transaction so a
	// concurrent cancel cannot slip a comment onto a closed request.
	var request *models.Request
	err = s.repo.WithTransaction(ctx, func(txRepo repository.RequestRepositoryInterface) error {
		current, terr := s.fetch(ctx, txRepo, tenantID, id)
		if terr != nil {
			return terr
		}
		if terr = s.checkVisibility(current, actor); terr != nil {
			return terr
		}
		if current.IsTerminal() {
			return ErrInvalidTransition
		}
		comment = &models.RequestComment{
			RequestID: id,
			AuthorID:  actor.ID,
			Content:   content,
		}
		if terr := txRepo.AddComment(ctx, comment); terr != nil {
			comment = nil
			return fmt.Errorf("failed to add comment: %w", terr)
		}
		request = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(events.SubjectRequestCommented, request, "", actor.ID, actor.Role, content)
	return comment, nil
}

// AddAttachment records the metadata of an uploaded file against a
// non-terminal request. The stored filename is generated server-side.
func (s *WorkflowService) AddAttachment(ctx context.Context, tenantID string, actor Actor, id uuid.UUID, input AttachmentInput) (attachment *models.RequestAttachment, err error) {
	defer func() {
		s.audit.Record(ctx, AuditEntry{
			TenantID: tenantID, RequestID: &id, Actor: actor,
			Action: models.AuditActionAttachment, Err: err,
			Metadata: map[string]interface{}{"originalName": input.OriginalName},
		})
		metrics.RecordOperation("attachment", err)
	}()

	if strings.TrimSpace(input.OriginalName) == "" {
		return nil, newValidationError("originalName", "originalName is required")
	}
	if !allowedMimeTypes[input.MimeType] {
		return nil, newValidationError("mimeType", fmt.Sprintf("mime type %q is not allowed", input.MimeType))
	}
	if input.SizeBytes <= 0 || input.SizeBytes > maxAttachmentSize {
		return nil, newValidationError("size", fmt.Sprintf("size must be between 1 and %d bytes", maxAttachmentSize))
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repository.RequestRepositoryInterface) error {
		current, terr := s.fetch(ctx, txRepo, tenantID, id)
		if terr != nil {
			return terr
		}
		if terr = s.checkVisibility(current, actor); terr != nil {
			return terr
		}
		if current.IsTerminal() {
			return ErrInvalidTransition
		}
		attachment = &models.RequestAttachment{
			RequestID:    id,
			Filename:     uuid.New().String() + filepath.Ext(input.OriginalName),
			OriginalName: input.OriginalName,
			MimeType:     input.MimeType,
			SizeBytes:    input.SizeBytes,
			UploadedByID: actor.ID,
		}
		if terr := txRepo.AddAttachment(ctx, attachment); terr != nil {
			attachment = nil
			return fmt.Errorf("failed to add attachment: %w", terr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// GetRequest retrieves a request aggregate, enforcing role visibility
func (s *WorkflowService) GetRequest(ctx context.Context, tenantID string, actor Actor, id uuid.UUID) (*models.Request, error) {
	request, err := s.fetch(ctx, s.repo, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisibility(request, actor); err != nil {
		return nil, err
	}
	return request, nil
}

// ListRequests lists requests with filters and pagination. Technicians only
// see requests assigned to them; operators only see their own.
func (s *WorkflowService) ListRequests(ctx context.Context, tenantID string, actor Actor, filters repository.RequestFilters, limit, offset int) ([]models.Request, int64, error) {
	switch actor.Role {
	case models.RoleTechnician:
		filters.TechnicianID = &actor.ID
	case models.RoleOperator:
		filters.RequestedByID = &actor.ID
	}
	return s.repo.ListRequests(ctx, tenantID, filters, limit, offset)
}

// CheckConflicts previews the scheduling conflicts a technician/day pair
// would have, without taking locks. Approver roles only.
func (s *WorkflowService) CheckConflicts(ctx context.Context, tenantID string, actor Actor, technicianID uuid.UUID, day time.Time, excludeID uuid.UUID) ([]models.RequestSummary, error) {
	if !models.IsApproverRole(actor.Role) {
		return nil, ErrForbidden
	}
	return s.conflicts.FindConflicts(ctx, tenantID, technicianID, day, excludeID)
}

// GetRequestAudit returns the audit trail of a request to approver roles
func (s *WorkflowService) GetRequestAudit(ctx context.Context, tenantID string, actor Actor, id uuid.UUID) ([]models.RequestAuditLog, error) {
	if !models.IsApproverRole(actor.Role) {
		return nil, ErrForbidden
	}
	if _, err := s.fetch(ctx, s.repo, tenantID, id); err != nil {
		return nil, err
	}
	return s.repo.GetRequestAudit(ctx, tenantID, id)
}

// checkTechnician verifies an assignee against the user directory: the user
// must exist, be active, and hold the technician role
func (s *WorkflowService) checkTechnician(ctx context.Context, tenantID string, technicianID uuid.UUID) error {
	user, err := s.users.GetUserByID(ctx, tenantID, technicianID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newValidationError("technicianId", "technician not found")
		}
		return fmt.Errorf("failed to look up technician: %w", err)
	}
	if !user.IsActive || user.Role != models.RoleTechnician {
		return newValidationError("technicianId", "user is not an active technician")
	}
	return nil
}

// fetch translates the repository's not-found sentinel to the service one
func (s *WorkflowService) fetch(ctx context.Context, repo repository.RequestRepositoryInterface, tenantID string, id uuid.UUID) (*models.Request, error) {
	request, err := repo.GetRequestByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

// canExecute reports whether the actor may start or complete the work:
// the assigned technician, or any approver role
func (s *WorkflowService) canExecute(request *models.Request, actor Actor) bool {
	if models.IsApproverRole(actor.Role) {
		return true
	}
	return request.AssignedTechnicianID != nil && *request.AssignedTechnicianID == actor.ID
}

// checkVisibility enforces who may read a request: approver roles see all,
// technicians see their assignments, operators see their own requests
func (s *WorkflowService) checkVisibility(request *models.Request, actor Actor) error {
	if models.IsApproverRole(actor.Role) {
		return nil
	}
	switch actor.Role {
	case models.RoleTechnician:
		if request.AssignedTechnicianID != nil && *request.AssignedTechnicianID == actor.ID {
			return nil
		}
	case models.RoleOperator:
		if request.RequestedByID == actor.ID {
			return nil
		}
	}
	if request.RequestedByID == actor.ID {
		return nil
	}
	return ErrForbidden
}

// notifyApprovers fans a new-pending notification out to the approver roles
func (s *WorkflowService) notifyApprovers(ctx context.Context, request *models.Request) {
	s.notifier.Dispatch(ctx, request.TenantID, models.TargetRoles(models.RoleSupervisor, models.RoleManager), NotificationPayload{
		RequestID: &request.ID,
		Type:      models.NotificationRequestCreated,
		Title:     fmt.Sprintf("Request %s awaiting approval", request.RequestNumber),
		Message:   fmt.Sprintf("%q (%s priority) is pending approval.", request.Title, request.Priority),
	})
}
