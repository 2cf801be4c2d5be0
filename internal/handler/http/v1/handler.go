package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/campusfix/facility_incident_system/internal/config"
	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/campusfix/facility_incident_system/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService     service.IncidentService
	userService         service.UserService
	notificationService service.NotificationService
	logger              *logrus.Logger
	validate            *validator.Validate
	cfg                 *config.Config
}

func NewHandler(
	incidentService service.IncidentService,
	userService service.UserService,
	notificationService service.NotificationService,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		incidentService:     incidentService,
		userService:         userService,
		notificationService: notificationService,
		logger:              logger,
		validate:            validator.New(),
		cfg:                 cfg,
	}
}

// respondServiceError maps the service error taxonomy onto HTTP status codes.
// Conflict responses carry the conflicting entity's identity.
func respondServiceError(c *gin.Context, log *logrus.Entry, err error) {
	var conflict *service.ConflictError
	switch {
	case service.IsValidation(err):
		log.WithError(err).Warn("Validation failed in service")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case service.IsNotFound(err):
		log.WithError(err).Warn("Entity not found")
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &conflict):
		log.WithError(err).Warn("Conflict detected")
		c.JSON(http.StatusConflict, gin.H{
			"error":       conflict.Message,
			"conflict_id": conflict.EntityID,
		})
	case errors.Is(err, service.ErrNoCandidate):
		log.WithError(err).Warn("No assignment candidate")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": service.ErrNoCandidate.Error()})
	default:
		log.WithError(err).Error("Service call failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Report a new incident
// @Description Report a facility incident. Duplicate reports of the same category within the proximity window are rejected with the existing incident's identity. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param X-User-ID header string true "Reporting user ID"
// @Param incident body CreateIncidentRequest true "Incident creation request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Duplicate incident"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	log := h.logger.WithField("method", "createIncident")

	actorID, ok := h.actingUser(c)
	if !ok {
		return
	}

	var input CreateIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := DTOToIncidentModel(input, actorID)
	if err := h.incidentService.CreateIncident(c.Request.Context(), model); err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(model))
}

// @Summary Get a list of incidents
// @Description Get a paginated list of incidents with optional status and category filters. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Param status query string false "Filter by status"
// @Param category query string false "Filter by category"
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	filter := service.IncidentFilter{
		Status:   models.Status(c.Query("status")),
		Category: models.Category(c.Query("category")),
	}

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondServiceError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Assign a technician to an incident
// @Description Assign a technician. Without a technician_id the best candidate is selected by specialty, availability and workload. Auto-assignment refuses an already-assigned incident; an explicit technician overwrites the assignment. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param assignment body AssignIncidentRequest true "Assignment request"
// @Success 200 {object} AssignmentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident or technician not found"
// @Failure 409 {object} map[string]string "Incident already assigned"
// @Failure 422 {object} map[string]string "No technicians available"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/assign [post]
func (h *Handler) assignIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "assignIncident").WithField("id", id)

	var input AssignIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.incidentService.AssignIncident(c.Request.Context(), id, input.TechnicianID)
	if err != nil {
		respondServiceError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, AssignmentResponse{
		TechnicianID:   result.Technician.ID,
		TechnicianName: result.Technician.Name,
		ActiveLoad:     result.ActiveLoad,
	})
}

// @Summary Update incident status
// @Description Apply a status transition. Only the literals Open, In Progress and Resolved are accepted. Requires API key.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param status body UpdateStatusRequest true "Status update request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID, request body or status value"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/status [patch]
func (h *Handler) updateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "updateStatus").WithField("id", id)

	var input UpdateStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.incidentService.UpdateStatus(c.Request.Context(), id, models.Status(input.Status))
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Provision a user
// @Description Create a user or technician account. Emails are unique. Requires API key.
// @Tags Users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param user body CreateUserRequest true "User creation request"
// @Success 201 {object} UserResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Email already registered"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /users [post]
func (h *Handler) createUser(c *gin.Context) {
	log := h.logger.WithField("method", "createUser")

	var input CreateUserRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := DTOToUserModel(input)
	if err := h.userService.CreateUser(c.Request.Context(), model); err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToUserResponse(model))
}

// @Summary Get the technician roster
// @Description Get all technicians annotated with their current active incident count. Requires API key.
// @Tags Users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} TechnicianLoadResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /users/technicians [get]
func (h *Handler) listTechnicians(c *gin.Context) {
	log := h.logger.WithField("method", "listTechnicians")

	loads, err := h.userService.ListTechnicianLoads(c.Request.Context())
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToTechnicianLoadResponses(loads))
}

// @Summary Set own availability
// @Description Toggle the availability flag of the calling technician. Requires API key.
// @Tags Users
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param X-User-ID header string true "Acting technician ID"
// @Param availability body AvailabilityRequest true "Availability request"
// @Success 200 "OK"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /users/me/availability [patch]
func (h *Handler) setAvailability(c *gin.Context) {
	log := h.logger.WithField("method", "setAvailability")

	actorID, ok := h.actingUser(c)
	if !ok {
		return
	}

	var input AvailabilityRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.SetAvailability(c.Request.Context(), actorID, actorID, *input.IsAvailable); err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.Status(http.StatusOK)
}

// @Summary List own notifications
// @Description Get the calling user's notifications, newest first. Requires API key.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param X-User-ID header string true "Acting user ID"
// @Success 200 {array} NotificationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications [get]
func (h *Handler) listNotifications(c *gin.Context) {
	log := h.logger.WithField("method", "listNotifications")

	actorID, ok := h.actingUser(c)
	if !ok {
		return
	}

	notifications, err := h.notificationService.ListNotifications(c.Request.Context(), actorID)
	if err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToNotificationResponses(notifications))
}

// @Summary Mark a notification as read
// @Description Acknowledge a notification owned by the calling user. Requires API key.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param X-User-ID header string true "Acting user ID"
// @Param id path string true "Notification ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid notification ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Notification not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications/{id}/read [patch]
func (h *Handler) markNotificationRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}
	log := h.logger.WithField("method", "markNotificationRead").WithField("id", id)

	actorID, ok := h.actingUser(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, actorID); err != nil {
		respondServiceError(c, log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
