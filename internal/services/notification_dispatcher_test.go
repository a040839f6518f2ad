package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"requests-service/internal/models"
)

func TestDispatch_RoleTargetFansOutToActiveMembers(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockNotifications := new(MockNotificationRepository)
	mockUsers := new(MockUserDirectory)
	dispatcher := NewNotificationDispatcher(mockNotifications, mockUsers, nil, quietLogger())

	supervisor := models.User{ID: uuid.New(), Role: models.RoleSupervisor}
	manager := models.User{ID: uuid.New(), Role: models.RoleManager}

	mockUsers.On("ListActiveUsersByRoles", ctx, tenantID, []string{models.RoleSupervisor, models.RoleManager}).
		Return([]models.User{supervisor, manager}, nil)
	mockNotifications.On("CreateNotification", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.RecipientID == supervisor.ID
	})).Return(nil)
	mockNotifications.On("CreateNotification", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.RecipientID == manager.ID
	})).Return(nil)

	dispatcher.Dispatch(ctx, tenantID, models.TargetRoles(models.RoleSupervisor, models.RoleManager), NotificationPayload{
		Type:  models.NotificationRequestCreated,
		Title: "Request REQ-2026-0001 awaiting approval",
	})

	mockUsers.AssertExpectations(t)
	mockNotifications.AssertExpectations(t)
}

func TestDispatch_FailedRecipientDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-123"

	mockNotifications := new(MockNotificationRepository)
	mockUsers := new(MockUserDirectory)
	dispatcher := NewNotificationDispatcher(mockNotifications, mockUsers, nil, quietLogger())

	first := models.User{ID: uuid.New(), Role: models.RoleManager}
	second := models.User{ID: uuid.New(), Role: models.RoleManager}

	mockUsers.On("ListActiveUsersByRoles", ctx, tenantID, []string{models.RoleManager}).
		Return([]models.User{first, second}, nil)
	mockNotifications.On("CreateNotification", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.RecipientID == first.ID
	})).Return(errors.New("insert failed"))
	mockNotifications.On("CreateNotification", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.RecipientID == second.ID
	})).Return(nil)

	dispatcher.Dispatch(ctx, tenantID, models.TargetRoles(models.RoleManager), NotificationPayload{
		Type:  models.NotificationPendingReminder,
		Title: "Request REQ-2026-0002 still pending",
	})

	mockNotifications.AssertExpectations(t)
}

func TestDispatch_UserTargetSkipsDirectory(t *testing.T) {
	ctx := context.Background()
	recipientID := uuid.New()

	mockNotifications := new(MockNotificationRepository)
	mockUsers := new(MockUserDirectory)
	dispatcher := NewNotificationDispatcher(mockNotifications, mockUsers, nil, quietLogger())

	mockNotifications.On("CreateNotification", ctx, mock.MatchedBy(func(n *models.Notification) bool {
		return n.RecipientID == recipientID && n.Type == models.NotificationRequestApproved
	})).Return(nil)

	dispatcher.Dispatch(ctx, "tenant-123", models.TargetUser(recipientID), NotificationPayload{
		Type:  models.NotificationRequestApproved,
		Title: "Request REQ-2026-0003 approved",
	})

	mockUsers.AssertNotCalled(t, "ListActiveUsersByRoles", mock.Anything, mock.Anything, mock.Anything)
	mockNotifications.AssertExpectations(t)
}
