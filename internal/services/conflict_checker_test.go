package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"requests-service/internal/models"
)

func TestDayWindow_UTC(t *testing.T) {
	checker := NewConflictChecker(nil, time.UTC)

	day := time.Date(2026, 9, 14, 16, 45, 12, 0, time.UTC)
	from, to := checker.DayWindow(day)

	assert.Equal(t, time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), to)
}

func TestDayWindow_ConvertsToReferenceTimezone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	assert.NoError(t, err)

	checker := NewConflictChecker(nil, berlin)

	// 23:30 UTC is already the next day in Berlin (CEST, +2)
	day := time.Date(2026, 7, 1, 23, 30, 0, 0, time.UTC)
	from, to := checker.DayWindow(day)

	assert.Equal(t, time.Date(2026, 7, 2, 0, 0, 0, 0, berlin), from)
	assert.Equal(t, time.Date(2026, 7, 3, 0, 0, 0, 0, berlin), to)
}

func TestDayWindow_NilLocationDefaultsToUTC(t *testing.T) {
	checker := NewConflictChecker(nil, nil)

	day := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	from, to := checker.DayWindow(day)

	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestFindConflicts_ReturnsSummaries(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"
	technicianID := uuid.New()
	day := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)

	mockRepo := new(MockRequestRepository)
	checker := NewConflictChecker(mockRepo, time.UTC)

	booked := createTestRequest(tenantID, models.StatusInProgress)
	booked.AssignedTechnicianID = &technicianID

	mockRepo.On("FindScheduleConflicts", ctx, tenantID, technicianID,
		time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		uuid.Nil, false).
		Return([]models.Request{*booked}, nil)

	summaries, err := checker.FindConflicts(ctx, tenantID, technicianID, day, uuid.Nil)

	assert.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.Equal(t, booked.RequestNumber, summaries[0].RequestNumber)
	assert.Equal(t, models.StatusInProgress, summaries[0].Status)
	mockRepo.AssertExpectations(t)
}

func TestFindConflicts_EmptyIsAvailable(t *testing.T) {
	ctx := context.Background()
	technicianID := uuid.New()

	mockRepo := new(MockRequestRepository)
	checker := NewConflictChecker(mockRepo, time.UTC)

	mockRepo.On("FindScheduleConflicts", ctx, "tenant-123", technicianID,
		mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time"), uuid.Nil, false).
		Return([]models.Request{}, nil)

	summaries, err := checker.FindConflicts(ctx, "tenant-123", technicianID, time.Now(), uuid.Nil)

	assert.NoError(t, err)
	assert.Empty(t, summaries)
}
