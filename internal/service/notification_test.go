package service_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/campusfix/facility_incident_system/internal/models"
	. "github.com/campusfix/facility_incident_system/internal/service"
	"github.com/campusfix/facility_incident_system/internal/service/mocks"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestNotificationService builds the fan-out service with mocked persistence
// and no email sender.
func newTestNotificationService(t *testing.T) (*NotificationServiceImpl, *mocks.MockNotificationRepository, *mocks.MockUserRepository) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockNotificationRepository(ctrl)
	userRepoMock := mocks.NewMockUserRepository(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	service := NewNotificationService(repoMock, userRepoMock, nil, logger)
	return service, repoMock, userRepoMock
}

func TestNotifyAssignment_FanOutBatch(t *testing.T) {
	// Setup
	service, repoMock, userRepoMock := newTestNotificationService(t)
	ctx := context.Background()
	reporterID := uuid.New()
	technician := &models.User{ID: uuid.New(), Name: "Priya", Role: models.RoleTechnician}
	admins := []*models.User{
		{ID: uuid.New(), Name: "Admin One", Role: models.RoleAdmin},
		{ID: uuid.New(), Name: "Admin Two", Role: models.RoleAdmin},
	}
	incident := &models.Incident{
		ID:         uuid.New(),
		Title:      "Leaking pipe in dorm B",
		ReportedBy: reporterID,
	}

	// Expectations
	userRepoMock.EXPECT().ListAdmins(ctx).Return(admins, nil).Times(1)
	repoMock.EXPECT().
		CreateBatch(ctx, gomock.Any()).
		Do(func(ctx context.Context, batch []*models.Notification) {
			// Reporter, technician and one row per admin, in a single batch
			require.Len(t, batch, 4)

			assert.Equal(t, reporterID, batch[0].UserID)
			assert.Equal(t, models.NotificationAssigned, batch[0].Type)
			assert.Contains(t, batch[0].Message, technician.Name)

			assert.Equal(t, technician.ID, batch[1].UserID)
			assert.Equal(t, models.NotificationInfo, batch[1].Type)

			assert.Equal(t, admins[0].ID, batch[2].UserID)
			assert.Equal(t, admins[1].ID, batch[3].UserID)
			assert.Contains(t, batch[2].Message, incident.ShortID())
			for _, n := range batch {
				assert.Equal(t, incident.ID, n.IncidentID)
			}
		}).Return(nil).Times(1)

	// Action
	err := service.NotifyAssignment(ctx, incident, technician)

	// Assertions
	require.NoError(t, err)
}

func TestNotifyAssignment_NoAdmins(t *testing.T) {
	// Setup
	service, repoMock, userRepoMock := newTestNotificationService(t)
	ctx := context.Background()
	technician := &models.User{ID: uuid.New(), Name: "Marcus", Role: models.RoleTechnician}
	incident := &models.Incident{
		ID:         uuid.New(),
		Title:      "Broken AC in lecture hall",
		ReportedBy: uuid.New(),
	}

	// Expectations: only the reporter and technician rows remain
	userRepoMock.EXPECT().ListAdmins(ctx).Return(nil, nil).Times(1)
	repoMock.EXPECT().
		CreateBatch(ctx, gomock.Any()).
		Do(func(ctx context.Context, batch []*models.Notification) {
			require.Len(t, batch, 2)
		}).Return(nil).Times(1)

	// Action
	err := service.NotifyAssignment(ctx, incident, technician)

	// Assertions
	require.NoError(t, err)
}

func TestNotifyAssignment_BatchInsertFails(t *testing.T) {
	// Setup
	service, repoMock, userRepoMock := newTestNotificationService(t)
	ctx := context.Background()
	technician := &models.User{ID: uuid.New(), Name: "Priya", Role: models.RoleTechnician}
	incident := &models.Incident{ID: uuid.New(), ReportedBy: uuid.New()}

	// Expectations
	userRepoMock.EXPECT().ListAdmins(ctx).Return(nil, nil).Times(1)
	repoMock.EXPECT().CreateBatch(ctx, gomock.Any()).Return(fmt.Errorf("insert failed")).Times(1)

	// Action
	err := service.NotifyAssignment(ctx, incident, technician)

	// Assertions
	require.Error(t, err)
	assert.ErrorContains(t, err, "could not create assignment notifications")
}

func TestNotifyResolution_FanOutBatch(t *testing.T) {
	// Setup
	service, repoMock, userRepoMock := newTestNotificationService(t)
	ctx := context.Background()
	reporter := &models.User{ID: uuid.New(), Name: "Sam", Role: models.RoleStudent}
	admin := &models.User{ID: uuid.New(), Name: "Admin One", Role: models.RoleAdmin}
	incident := &models.Incident{
		ID:         uuid.New(),
		Title:      "WiFi down in the library",
		ReportedBy: reporter.ID,
	}

	// Expectations
	userRepoMock.EXPECT().GetByID(ctx, reporter.ID).Return(reporter, nil).Times(1)
	userRepoMock.EXPECT().ListAdmins(ctx).Return([]*models.User{admin}, nil).Times(1)
	repoMock.EXPECT().
		CreateBatch(ctx, gomock.Any()).
		Do(func(ctx context.Context, batch []*models.Notification) {
			// Reporter plus one row per admin; the technician gets nothing
			require.Len(t, batch, 2)
			assert.Equal(t, reporter.ID, batch[0].UserID)
			assert.Equal(t, admin.ID, batch[1].UserID)
			for _, n := range batch {
				assert.Equal(t, models.NotificationResolved, n.Type)
			}
			assert.Contains(t, batch[1].Message, reporter.Name)
		}).Return(nil).Times(1)

	// Action
	err := service.NotifyResolution(ctx, incident)

	// Assertions
	require.NoError(t, err)
}

func TestNotifyResolution_EmailCopiesAreBestEffort(t *testing.T) {
	// Setup
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockNotificationRepository(ctrl)
	userRepoMock := mocks.NewMockUserRepository(ctrl)
	emailMock := mocks.NewMockEmailSender(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	service := NewNotificationService(repoMock, userRepoMock, emailMock, logger)

	ctx := context.Background()
	reporter := &models.User{ID: uuid.New(), Name: "Sam", Email: "sam@campus.edu", Role: models.RoleStudent}
	incident := &models.Incident{
		ID:         uuid.New(),
		Title:      "Flickering corridor lights",
		ReportedBy: reporter.ID,
	}

	// Expectations
	userRepoMock.EXPECT().GetByID(ctx, reporter.ID).Return(reporter, nil).Times(2) // fan-out + email lookup
	userRepoMock.EXPECT().ListAdmins(ctx).Return(nil, nil).Times(1)
	repoMock.EXPECT().CreateBatch(ctx, gomock.Any()).Return(nil).Times(1)
	// Delivery failure must not fail the fan-out
	emailMock.EXPECT().
		Send(ctx, reporter.Email, "Incident resolved", gomock.Any()).
		Return(fmt.Errorf("smtp unreachable")).
		Times(1)

	// Action
	err := service.NotifyResolution(ctx, incident)

	// Assertions
	require.NoError(t, err)
}

func TestListNotifications_Success(t *testing.T) {
	// Setup
	service, repoMock, _ := newTestNotificationService(t)
	ctx := context.Background()
	userID := uuid.New()
	expected := []*models.Notification{
		{ID: uuid.New(), UserID: userID, Title: "Technician assigned"},
	}

	// Expectations
	repoMock.EXPECT().ListByUser(ctx, userID).Return(expected, nil).Times(1)

	// Action
	notifications, err := service.ListNotifications(ctx, userID)

	// Assertions
	require.NoError(t, err)
	assert.Equal(t, expected, notifications)
}

func TestMarkRead_NotOwned(t *testing.T) {
	// Setup
	service, repoMock, _ := newTestNotificationService(t)
	ctx := context.Background()
	notificationID := uuid.New()
	userID := uuid.New()

	// Expectations: the repository scopes the update by owner
	repoMock.EXPECT().
		MarkRead(ctx, notificationID, userID).
		Return(&NotFoundError{Entity: "notification", ID: notificationID.String()}).
		Times(1)

	// Action
	err := service.MarkRead(ctx, notificationID, userID)

	// Assertions
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
