package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all API v1 routes. Everything except the health
// check sits behind the API-key middleware when keys are configured.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Health-check route
	api.GET("/system/health", h.healthCheck)

	secured := api.Group("")
	if len(h.cfg.APIKeys) > 0 {
		secured.Use(APIKeyAuthMiddleware(h.cfg, h.logger))
	}

	// Incident lifecycle routes
	incidents := secured.Group("/incidents")
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/assign", h.assignIncident)
		incidents.PATCH("/:id/status", h.updateStatus)
	}

	// User provisioning and roster routes
	users := secured.Group("/users")
	{
		users.POST("", h.createUser)
		users.GET("/technicians", h.listTechnicians)
		users.PATCH("/me/availability", h.setAvailability)
	}

	// Notification routes
	notifications := secured.Group("/notifications")
	{
		notifications.GET("", h.listNotifications)
		notifications.PATCH("/:id/read", h.markNotificationRead)
	}
}
