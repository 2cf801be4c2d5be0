package v1

import (
	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/google/uuid"
)

// DTOToIncidentModel converts a creation request into the domain model.
func DTOToIncidentModel(dto CreateIncidentRequest, reportedBy uuid.UUID) *models.Incident {
	incident := &models.Incident{
		Title:       dto.Title,
		Description: dto.Description,
		Category:    models.Category(dto.Category),
		Priority:    models.Priority(dto.Priority),
		Address:     dto.Address,
		Images:      dto.Images,
		ReportedBy:  reportedBy,
	}
	if incident.Images == nil {
		incident.Images = []string{}
	}
	if dto.Location != nil {
		incident.Location = &models.Location{
			Latitude:  dto.Location.Latitude,
			Longitude: dto.Location.Longitude,
		}
	}
	return incident
}

// DTOToUserModel converts a provisioning request into the domain model.
func DTOToUserModel(dto CreateUserRequest) *models.User {
	return &models.User{
		Name:       dto.Name,
		Email:      dto.Email,
		Role:       models.Role(dto.Role),
		Department: dto.Department,
	}
}

// ModelToIncidentResponse converts the domain model into a response DTO.
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	resp := &IncidentResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Category:    string(model.Category),
		Priority:    string(model.Priority),
		Status:      string(model.Status),
		Address:     model.Address,
		Images:      model.Images,
		ReportedBy:  model.ReportedBy,
		AssignedTo:  model.AssignedTo,
		CreatedAt:   model.CreatedAt,
		ResolvedAt:  model.ResolvedAt,
	}
	if model.Location != nil {
		resp.Location = &LocationDTO{
			Latitude:  model.Location.Latitude,
			Longitude: model.Location.Longitude,
		}
	}
	return resp
}

// ModelsToIncidentResponses converts a model slice into a response slice.
func ModelsToIncidentResponses(incidents []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(incidents))
	for i, incident := range incidents {
		responses[i] = ModelToIncidentResponse(incident)
	}
	return responses
}

// ModelToUserResponse converts the domain model into a response DTO.
func ModelToUserResponse(model *models.User) *UserResponse {
	return &UserResponse{
		ID:          model.ID,
		Name:        model.Name,
		Email:       model.Email,
		Role:        string(model.Role),
		Department:  model.Department,
		IsAvailable: model.IsAvailable,
		CreatedAt:   model.CreatedAt,
	}
}

// ModelsToTechnicianLoadResponses converts the roster into response DTOs.
func ModelsToTechnicianLoadResponses(loads []*models.TechnicianLoad) []*TechnicianLoadResponse {
	responses := make([]*TechnicianLoadResponse, len(loads))
	for i, load := range loads {
		responses[i] = &TechnicianLoadResponse{
			Technician: ModelToUserResponse(load.Technician),
			ActiveLoad: load.ActiveLoad,
		}
	}
	return responses
}

// ModelsToNotificationResponses converts a notification slice into response DTOs.
func ModelsToNotificationResponses(notifications []*models.Notification) []*NotificationResponse {
	responses := make([]*NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = &NotificationResponse{
			ID:         n.ID,
			UserID:     n.UserID,
			IncidentID: n.IncidentID,
			Title:      n.Title,
			Message:    n.Message,
			Type:       string(n.Type),
			IsRead:     n.IsRead,
			CreatedAt:  n.CreatedAt,
		}
	}
	return responses
}
