package services

import (
	"errors"
	"fmt"
	"strings"

	"requests-service/internal/models"
)

var (
	ErrRequestNotFound   = errors.New("service request not found")
	ErrInvalidTransition = errors.New("request status does not allow this operation")
	ErrForbidden         = errors.New("actor role is not allowed to perform this operation")
)

// ValidationError reports malformed or missing input on a single field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// SchedulingConflictError carries the set of requests that already book the
// technician on the requested day, so callers can present alternatives
type SchedulingConflictError struct {
	TechnicianID string
	Day          string
	Conflicts    []models.RequestSummary
}

func (e *SchedulingConflictError) Error() string {
	numbers := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		numbers = append(numbers, c.RequestNumber)
	}
	return fmt.Sprintf("technician is already scheduled on %s (conflicts: %s)",
		e.Day, strings.Join(numbers, ", "))
}
