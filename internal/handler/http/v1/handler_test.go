package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/campusfix/facility_incident_system/internal/config"
	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/campusfix/facility_incident_system/internal/service"
	"github.com/campusfix/facility_incident_system/internal/service/mocks"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestHandler creates a Handler instance with all services mocked.
func newTestHandler(t *testing.T) (*Handler, *mocks.MockIncidentService, *mocks.MockUserService, *mocks.MockNotificationService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockIncidents := mocks.NewMockIncidentService(ctrl)
	mockUsers := mocks.NewMockUserService(ctrl)
	mockNotifications := mocks.NewMockNotificationService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // silence log output in tests

	cfg := &config.Config{
		APIKeys:               []string{"test-api-key"},
		DuplicateRadiusMeters: 20,
	}

	handler := NewHandler(mockIncidents, mockUsers, mockNotifications, logger, cfg)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return handler, mockIncidents, mockUsers, mockNotifications, router
}

// makeRequest is a helper for executing HTTP requests against the test router.
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// authHeaders returns the API key plus acting-user headers used by most routes.
func authHeaders(userID uuid.UUID) map[string]string {
	return map[string]string{
		"X-API-Key": "test-api-key",
		"X-User-ID": userID.String(),
	}
}

func TestCreateIncident_Success(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()
	reporterID := uuid.New()
	reqBody := CreateIncidentRequest{
		Title:    "Leaking pipe in dorm B",
		Category: "Water",
		Location: &LocationDTO{Latitude: 12.97, Longitude: 77.59},
	}

	mockIncidents.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			assert.Equal(t, reporterID, inc.ReportedBy)
			assert.Equal(t, models.CategoryWater, inc.Category)
			inc.ID = incidentID
			inc.Status = models.StatusOpen
			inc.Priority = models.PriorityMedium
			inc.CreatedAt = time.Now()
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), authHeaders(reporterID))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, "Open", resp.Status)
	assert.Equal(t, reqBody.Title, resp.Title)
}

func TestCreateIncident_MissingUserHeader(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)

	mockIncidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	reqBody := CreateIncidentRequest{Title: "Leaking pipe", Category: "Water"}
	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "X-User-ID header required")
}

func TestCreateIncident_InvalidJSON(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)

	mockIncidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBufferString(`{"title": "test"`), authHeaders(uuid.New()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateIncident_UnknownCategory(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)

	mockIncidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any()).Times(0)

	reqBody := CreateIncidentRequest{Title: "Mystery problem", Category: "Plasma"}
	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), authHeaders(uuid.New()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Category' failed on the 'oneof' tag")
}

func TestCreateIncident_Duplicate(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	existingID := uuid.New()
	reqBody := CreateIncidentRequest{
		Title:    "Water everywhere",
		Category: "Water",
		Location: &LocationDTO{Latitude: 12.97, Longitude: 77.59},
	}

	mockIncidents.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any()).
		Return(&service.ConflictError{
			Message:  "a Water incident has already been reported within 20m",
			EntityID: existingID.String(),
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes), authHeaders(uuid.New()))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already been reported")
	assert.Contains(t, w.Body.String(), existingID.String())
}

func TestGetIncident_Success(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()
	expectedIncident := &models.Incident{
		ID:       incidentID,
		Title:    "Broken AC in lecture hall",
		Category: models.CategoryHVAC,
		Status:   models.StatusOpen,
	}

	mockIncidents.EXPECT().GetIncident(gomock.Any(), incidentID).Return(expectedIncident, nil).Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil, authHeaders(uuid.New()))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, expectedIncident.Title, resp.Title)
}

func TestGetIncident_InvalidID(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)

	mockIncidents.EXPECT().GetIncident(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/incidents/invalid-uuid", nil, authHeaders(uuid.New()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid incident ID")
}

func TestGetIncident_NotFound(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()

	mockIncidents.EXPECT().
		GetIncident(gomock.Any(), incidentID).
		Return(nil, &service.NotFoundError{Entity: "incident", ID: incidentID.String()}).
		Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil, authHeaders(uuid.New()))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not found")
}

func TestListIncidents_Success(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	expectedIncidents := []*models.Incident{
		{ID: uuid.New(), Title: "Incident 1", Status: models.StatusOpen},
		{ID: uuid.New(), Title: "Incident 2", Status: models.StatusInProgress},
	}
	filter := service.IncidentFilter{Status: models.StatusOpen}

	mockIncidents.EXPECT().ListIncidents(gomock.Any(), filter, 1, 10).Return(expectedIncidents, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?page=1&pageSize=10&status=Open", nil, authHeaders(uuid.New()))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Len(t, resp, 2)
	assert.Equal(t, expectedIncidents[0].Title, resp[0].Title)
}

func TestAssignIncident_AutoSuccess(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()
	technician := &models.User{ID: uuid.New(), Name: "Priya", Role: models.RoleTechnician}

	mockIncidents.EXPECT().
		AssignIncident(gomock.Any(), incidentID, gomock.Nil()).
		Return(&service.AssignmentResult{Technician: technician, ActiveLoad: 2}, nil).
		Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/assign", incidentID.String()), bytes.NewBufferString(`{}`), authHeaders(uuid.New()))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp AssignmentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, technician.ID, resp.TechnicianID)
	assert.Equal(t, technician.Name, resp.TechnicianName)
	assert.Equal(t, 2, resp.ActiveLoad)
}

func TestAssignIncident_ManualSuccess(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()
	technician := &models.User{ID: uuid.New(), Name: "Marcus", Role: models.RoleTechnician}
	reqBody := AssignIncidentRequest{TechnicianID: &technician.ID}

	mockIncidents.EXPECT().
		AssignIncident(gomock.Any(), incidentID, gomock.Eq(&technician.ID)).
		Return(&service.AssignmentResult{Technician: technician, ActiveLoad: 0}, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/assign", incidentID.String()), bytes.NewBuffer(bodyBytes), authHeaders(uuid.New()))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAssignIncident_AlreadyAssigned(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()

	mockIncidents.EXPECT().
		AssignIncident(gomock.Any(), incidentID, gomock.Nil()).
		Return(nil, &service.ConflictError{
			Message:  "incident #A1B2C3 is already assigned",
			EntityID: incidentID.String(),
		}).Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/assign", incidentID.String()), bytes.NewBufferString(`{}`), authHeaders(uuid.New()))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already assigned")
	assert.Contains(t, w.Body.String(), incidentID.String())
}

func TestAssignIncident_NoCandidates(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()

	mockIncidents.EXPECT().
		AssignIncident(gomock.Any(), incidentID, gomock.Nil()).
		Return(nil, service.ErrNoCandidate).
		Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/incidents/%s/assign", incidentID.String()), bytes.NewBufferString(`{}`), authHeaders(uuid.New()))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "no technicians available")
}

func TestUpdateStatus_Success(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()
	resolvedAt := time.Now()
	reqBody := UpdateStatusRequest{Status: "Resolved"}
	updated := &models.Incident{
		ID:         incidentID,
		Title:      "Leaking pipe in dorm B",
		Status:     models.StatusResolved,
		ResolvedAt: &resolvedAt,
	}

	mockIncidents.EXPECT().
		UpdateStatus(gomock.Any(), incidentID, models.StatusResolved).
		Return(updated, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PATCH", fmt.Sprintf("/api/v1/incidents/%s/status", incidentID.String()), bytes.NewBuffer(bodyBytes), authHeaders(uuid.New()))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "Resolved", resp.Status)
	require.NotNil(t, resp.ResolvedAt)
}

func TestUpdateStatus_InvalidLiteral(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()
	reqBody := UpdateStatusRequest{Status: "Closed"}

	mockIncidents.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PATCH", fmt.Sprintf("/api/v1/incidents/%s/status", incidentID.String()), bytes.NewBuffer(bodyBytes), authHeaders(uuid.New()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Status' failed on the 'oneof' tag")
}

func TestCreateUser_Success(t *testing.T) {
	_, _, mockUsers, _, router := newTestHandler(t)
	userID := uuid.New()
	reqBody := CreateUserRequest{
		Name:       "Priya",
		Email:      "priya@campus.edu",
		Role:       "technician",
		Department: "Plumbing",
	}

	mockUsers.EXPECT().
		CreateUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			assert.Equal(t, models.RoleTechnician, u.Role)
			u.ID = userID
			u.IsAvailable = true
			u.CreatedAt = time.Now()
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/users", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp UserResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, userID, resp.ID)
	assert.True(t, resp.IsAvailable)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	_, _, mockUsers, _, router := newTestHandler(t)
	reqBody := CreateUserRequest{
		Name:  "Sam",
		Email: "sam@campus.edu",
		Role:  "student",
	}

	mockUsers.EXPECT().
		CreateUser(gomock.Any(), gomock.Any()).
		Return(&service.ConflictError{Message: "email already registered"}).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/users", bytes.NewBuffer(bodyBytes), map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "email already registered")
}

func TestListTechnicians_Success(t *testing.T) {
	_, _, mockUsers, _, router := newTestHandler(t)
	technician := &models.User{ID: uuid.New(), Name: "Priya", Role: models.RoleTechnician, IsAvailable: true}
	loads := []*models.TechnicianLoad{{Technician: technician, ActiveLoad: 3}}

	mockUsers.EXPECT().ListTechnicianLoads(gomock.Any()).Return(loads, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/users/technicians", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []TechnicianLoadResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, technician.ID, resp[0].Technician.ID)
	assert.Equal(t, 3, resp[0].ActiveLoad)
}

func TestSetAvailability_Success(t *testing.T) {
	_, _, mockUsers, _, router := newTestHandler(t)
	technicianID := uuid.New()
	available := false
	reqBody := AvailabilityRequest{IsAvailable: &available}

	mockUsers.EXPECT().
		SetAvailability(gomock.Any(), technicianID, technicianID, false).
		Return(nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PATCH", "/api/v1/users/me/availability", bytes.NewBuffer(bodyBytes), authHeaders(technicianID))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetAvailability_MissingFlag(t *testing.T) {
	_, _, mockUsers, _, router := newTestHandler(t)

	mockUsers.EXPECT().SetAvailability(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "PATCH", "/api/v1/users/me/availability", bytes.NewBufferString(`{}`), authHeaders(uuid.New()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'IsAvailable' failed on the 'required' tag")
}

func TestListNotifications_Success(t *testing.T) {
	_, _, _, mockNotifications, router := newTestHandler(t)
	userID := uuid.New()
	notifications := []*models.Notification{
		{ID: uuid.New(), UserID: userID, Title: "Technician assigned", Type: models.NotificationAssigned},
	}

	mockNotifications.EXPECT().ListNotifications(gomock.Any(), userID).Return(notifications, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/notifications", nil, authHeaders(userID))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []NotificationResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, "Technician assigned", resp[0].Title)
}

func TestMarkNotificationRead_Success(t *testing.T) {
	_, _, _, mockNotifications, router := newTestHandler(t)
	notificationID := uuid.New()
	userID := uuid.New()

	mockNotifications.EXPECT().MarkRead(gomock.Any(), notificationID, userID).Return(nil).Times(1)

	w := makeRequest(router, "PATCH", fmt.Sprintf("/api/v1/notifications/%s/read", notificationID.String()), nil, authHeaders(userID))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMarkNotificationRead_NotOwned(t *testing.T) {
	_, _, _, mockNotifications, router := newTestHandler(t)
	notificationID := uuid.New()
	userID := uuid.New()

	mockNotifications.EXPECT().
		MarkRead(gomock.Any(), notificationID, userID).
		Return(&service.NotFoundError{Entity: "notification", ID: notificationID.String()}).
		Times(1)

	w := makeRequest(router, "PATCH", fmt.Sprintf("/api/v1/notifications/%s/read", notificationID.String()), nil, authHeaders(userID))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthCheck_Success(t *testing.T) {
	_, _, _, _, router := newTestHandler(t)

	// No API key needed for the health check
	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAPIKeyAuthMiddleware_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "valid-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuthMiddleware_MissingKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key required")
}

func TestAPIKeyAuthMiddleware_InvalidKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "invalid-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestBearerTokenAccepted(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()

	mockIncidents.EXPECT().
		GetIncident(gomock.Any(), incidentID).
		Return(&models.Incident{ID: incidentID, Status: models.StatusOpen}, nil).
		Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil, map[string]string{"Authorization": "Bearer test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetIncident_WrappedNotFound(t *testing.T) {
	_, mockIncidents, _, _, router := newTestHandler(t)
	incidentID := uuid.New()
	wrapped := fmt.Errorf("service: could not get incident: %w", &service.NotFoundError{Entity: "incident", ID: incidentID.String()})
	require.True(t, errors.As(wrapped, new(*service.NotFoundError)))

	mockIncidents.EXPECT().GetIncident(gomock.Any(), incidentID).Return(nil, wrapped).Times(1)

	w := makeRequest(router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil, authHeaders(uuid.New()))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
