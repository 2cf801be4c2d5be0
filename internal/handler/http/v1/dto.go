package v1

import (
	"time"

	"github.com/google/uuid"
)

// LocationDTO is a WGS84 coordinate pair.
// @Description WGS84 coordinate pair
type LocationDTO struct {
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
}

// CreateIncidentRequest DTO for reporting an incident
// @Description DTO for reporting an incident
type CreateIncidentRequest struct {
	Title       string       `json:"title" validate:"required,min=2,max=255"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category" validate:"required,oneof=Water Electricity Internet Civil HVAC Other"`
	Priority    string       `json:"priority,omitempty" validate:"omitempty,oneof=Low Medium High"`
	Location    *LocationDTO `json:"location,omitempty"`
	Address     string       `json:"address,omitempty"`
	Images      []string     `json:"images,omitempty"`
}

// AssignIncidentRequest DTO for assigning a technician. A missing
// technician_id requests automatic selection.
// @Description DTO for assigning a technician
type AssignIncidentRequest struct {
	TechnicianID *uuid.UUID `json:"technician_id,omitempty"`
}

// UpdateStatusRequest DTO for a status transition
// @Description DTO for a status transition
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof='Open' 'In Progress' 'Resolved'"`
}

// CreateUserRequest DTO for provisioning a user or technician
// @Description DTO for provisioning a user or technician
type CreateUserRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=255"`
	Email      string `json:"email" validate:"required,email"`
	Role       string `json:"role" validate:"required,oneof=student admin technician"`
	Department string `json:"department,omitempty"`
}

// AvailabilityRequest DTO for toggling technician availability
// @Description DTO for toggling technician availability
type AvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

// IncidentResponse DTO with incident details
// @Description DTO with incident details
type IncidentResponse struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category"`
	Priority    string       `json:"priority"`
	Status      string       `json:"status"`
	Location    *LocationDTO `json:"location,omitempty"`
	Address     string       `json:"address,omitempty"`
	Images      []string     `json:"images"`
	ReportedBy  uuid.UUID    `json:"reported_by"`
	AssignedTo  *uuid.UUID   `json:"assigned_to,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
}

// AssignmentResponse DTO returned after a successful assignment
// @Description DTO returned after a successful assignment
type AssignmentResponse struct {
	TechnicianID   uuid.UUID `json:"technician_id"`
	TechnicianName string    `json:"technician_name"`
	ActiveLoad     int       `json:"active_load"`
}

// UserResponse DTO with user details
// @Description DTO with user details
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Department  string    `json:"department,omitempty"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

// TechnicianLoadResponse DTO with a technician and their active load
// @Description DTO with a technician and their active load
type TechnicianLoadResponse struct {
	Technician *UserResponse `json:"technician"`
	ActiveLoad int           `json:"active_load"`
}

// NotificationResponse DTO with notification details
// @Description DTO with notification details
type NotificationResponse struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	IncidentID uuid.UUID `json:"incident_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}
