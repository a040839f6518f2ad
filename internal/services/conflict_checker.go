package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"requests-service/internal/models"
	"requests-service/internal/repository"
)

// ConflictChecker finds requests that would double-book a technician on a
// calendar day. The check is day-granular: two requests for the same
// technician on the same day always conflict, regardless of duration.
type ConflictChecker struct {
	repo repository.RequestRepositoryInterface
	loc  *time.Location
}

// NewConflictChecker creates a ConflictChecker. Day windows are computed in
// loc, the server's reference timezone.
func NewConflictChecker(repo repository.RequestRepositoryInterface, loc *time.Location) *ConflictChecker {
	if loc == nil {
		loc = time.UTC
	}
	return &ConflictChecker{repo: repo, loc: loc}
}

// DayWindow returns the half-open [startOfDay, startOfDay+24h) window for day
func (c *ConflictChecker) DayWindow(day time.Time) (time.Time, time.Time) {
	d := day.In(c.loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, c.loc)
	return start, start.Add(24 * time.Hour)
}

// FindConflicts returns summaries of every approved or in-progress request
// assigned to the technician within the day window, excluding excludeID.
// An empty result means no conflict.
func (c *ConflictChecker) FindConflicts(ctx context.Context, tenantID string, technicianID uuid.UUID, day time.Time, excludeID uuid.UUID) ([]models.RequestSummary, error) {
	return c.findConflicts(ctx, c.repo, tenantID, technicianID, day, excludeID, false)
}

// findConflictsLocked is the transactional variant: the matching rows are
// row-locked so a concurrent approval for the same technician/day serializes
// behind this one instead of both passing the check.
func (c *ConflictChecker) findConflictsLocked(ctx context.Context, txRepo repository.RequestRepositoryInterface, tenantID string, technicianID uuid.UUID, day time.Time, excludeID uuid.UUID) ([]models.RequestSummary, error) {
	return c.findConflicts(ctx, txRepo, tenantID, technicianID, day, excludeID, true)
}

func (c *ConflictChecker) findConflicts(ctx context.Context, repo repository.RequestRepositoryInterface, tenantID string, technicianID uuid.UUID, day time.Time, excludeID uuid.UUID, forUpdate bool) ([]models.RequestSummary, error) {
	from, to := c.DayWindow(day)

	requests, err := repo.FindScheduleConflicts(ctx, tenantID, technicianID, from, to, excludeID, forUpdate)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.RequestSummary, 0, len(requests))
	for i := range requests {
		summaries = append(summaries, requests[i].Summary())
	}
	return summaries, nil
}
