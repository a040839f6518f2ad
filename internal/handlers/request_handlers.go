package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"requests-service/internal/repository"
	"requests-service/internal/services"
)

// RequestHandler handles HTTP requests for service requests
type RequestHandler struct {
	service *services.WorkflowService
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(service *services.WorkflowService) *RequestHandler {
	return &RequestHandler{service: service}
}

// actorFromContext builds the acting identity from context values set by
// the auth middleware
func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return services.Actor{}, false
	}
	return services.Actor{
		ID:    userID,
		Role:  c.GetString("user_role"),
		Name:  c.GetString("user_name"),
		Email: c.GetString("user_email"),
	}, true
}

// respondError maps service errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var conflictErr *services.SchedulingConflictError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":        err.Error(),
			"technicianId": conflictErr.TechnicianID,
			"day":          conflictErr.Day,
			"conflicts":    conflictErr.Conflicts,
		})
	case errors.Is(err, services.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal error occurred"})
	}
}

func parsePagination(c *gin.Context) (limit, offset int, ok bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 100"})
		return 0, 0, false
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return 0, 0, false
	}
	return limit, offset, true
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return uuid.Nil, false
	}
	return id, true
}

// CreateRequest creates a new service request
// @Summary Create service request
// @Tags Requests
// @Accept json
// @Produce json
// @Param request body services.CreateRequestInput true "Create Request"
// @Success 201 {object} models.Request
// @Router /api/v1/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var input services.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.service.CreateRequest(c.Request.Context(), c.GetString("tenant_id"), actor, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, request)
}

// GetRequest retrieves a service request by ID
// @Summary Get service request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.Request
// @Router /api/v1/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	request, err := h.service.GetRequest(c.Request.Context(), c.GetString("tenant_id"), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// ListRequests lists service requests with filters and pagination
// @Summary List service requests
// @Tags Requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param type query string false "Filter by type"
// @Param search query string false "Search in number, title and description"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	filters := repository.RequestFilters{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Type:     c.Query("type"),
		Search:   c.Query("search"),
	}
	if clientIDStr := c.Query("clientId"); clientIDStr != "" {
		clientID, err := uuid.Parse(clientIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid clientId"})
			return
		}
		filters.ClientID = &clientID
	}
	if technicianIDStr := c.Query("technicianId"); technicianIDStr != "" {
		technicianID, err := uuid.Parse(technicianIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid technicianId"})
			return
		}
		filters.TechnicianID = &technicianID
	}
	if fromStr := c.Query("dateFrom"); fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dateFrom, expected YYYY-MM-DD"})
			return
		}
		filters.DateFrom = &from
	}
	if toStr := c.Query("dateTo"); toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dateTo, expected YYYY-MM-DD"})
			return
		}
		filters.DateTo = &to
	}

	limit, offset, ok := parsePagination(c)
	if !ok {
		return
	}

	requests, total, err := h.service.ListRequests(c.Request.Context(), c.GetString("tenant_id"), actor, filters, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// SubmitRequest submits a draft request for approval
// @Summary Submit draft request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.Request
// @Router /api/v1/requests/{id}/submit [post]
func (h *RequestHandler) SubmitRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	request, err := h.service.SubmitRequest(c.Request.Context(), c.GetString("tenant_id"), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// ApproveRequest approves a pending request
// @Summary Approve request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body services.ApproveRequestInput true "Approval decision"
// @Success 200 {object} models.Request
// @Failure 409 {object} map[string]interface{} "Technician already booked"
// @Router /api/v1/requests/{id}/approve [post]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input services.ApproveRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.service.ApproveRequest(c.Request.Context(), c.GetString("tenant_id"), actor, id, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// RejectRequest rejects a pending request
// @Summary Reject request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body services.RejectRequestInput true "Rejection reason"
// @Success 200 {object} models.Request
// @Router /api/v1/requests/{id}/reject [post]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input services.RejectRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.service.RejectRequest(c.Request.Context(), c.GetString("tenant_id"), actor, id, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// StartRequest moves an approved request into execution
// @Summary Start work on request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.Request
// @Router /api/v1/requests/{id}/start [post]
func (h *RequestHandler) StartRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	request, err := h.service.StartRequest(c.Request.Context(), c.GetString("tenant_id"), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// CompleteRequest completes an in-progress request
// @Summary Complete request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body services.CompleteRequestInput true "Completion actuals"
// @Success 200 {object} models.Request
// @Router /api/v1/requests/{id}/complete [post]
func (h *RequestHandler) CompleteRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input services.CompleteRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.service.CompleteRequest(c.Request.Context(), c.GetString("tenant_id"), actor, id, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// CancelRequest cancels a non-terminal request
// @Summary Cancel request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} models.Request
// @Router /api/v1/requests/{id} [delete]
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	request, err := h.service.CancelRequest(c.Request.Context(), c.GetString("tenant_id"), actor, id, body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// AddComment appends a comment to a request
// @Summary Add comment
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Success 201 {object} models.RequestComment
// @Router /api/v1/requests/{id}/comments [post]
func (h *RequestHandler) AddComment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var body struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), c.GetString("tenant_id"), actor, id, body.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// AddAttachment records attachment metadata on a request
// @Summary Add attachment metadata
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body services.AttachmentInput true "Attachment metadata"
// @Success 201 {object} models.RequestAttachment
// @Router /api/v1/requests/{id}/attachments [post]
func (h *RequestHandler) AddAttachment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input services.AttachmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attachment, err := h.service.AddAttachment(c.Request.Context(), c.GetString("tenant_id"), actor, id, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

// CheckConflicts previews scheduling conflicts for a technician/day pair
// @Summary Check scheduling conflicts
// @Tags Requests
// @Produce json
// @Param technicianId query string true "Technician ID"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/requests/conflicts [get]
func (h *RequestHandler) CheckConflicts(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	technicianID, err := uuid.Parse(c.Query("technicianId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid technicianId"})
		return
	}

	day, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	excludeID := uuid.Nil
	if excludeStr := c.Query("excludeRequestId"); excludeStr != "" {
		excludeID, err = uuid.Parse(excludeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid excludeRequestId"})
			return
		}
	}

	conflicts, err := h.service.CheckConflicts(c.Request.Context(), c.GetString("tenant_id"), actor, technicianID, day, excludeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"available": len(conflicts) == 0,
		"conflicts": conflicts,
	})
}

// GetRequestAudit returns the audit trail of a request
// @Summary Get request audit trail
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {array} models.RequestAuditLog
// @Router /api/v1/requests/{id}/audit [get]
func (h *RequestHandler) GetRequestAudit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	entries, err := h.service.GetRequestAudit(c.Request.Context(), c.GetString("tenant_id"), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
