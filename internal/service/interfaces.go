package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

import (
	"context"
	"time"

	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/google/uuid"
)

// IncidentFilter narrows incident listings.
type IncidentFilter struct {
	Status   models.Status
	Category models.Category
}

// IncidentRepository defines the contract for incident persistence.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	List(ctx context.Context, filter IncidentFilter, page, pageSize int) ([]*models.Incident, error)
	// FindNearbyActive returns the nearest Open/In Progress incident of the
	// given category within radiusMeters of the point, or nil when none match.
	FindNearbyActive(ctx context.Context, category models.Category, lat, lon float64, radiusMeters int) (*models.Incident, error)
	// AssignIfUnassigned sets assigned_to and status in one conditional update
	// keyed on assigned_to IS NULL. Returns false when the incident was
	// already assigned.
	AssignIfUnassigned(ctx context.Context, id, technicianID uuid.UUID) (bool, error)
	// Assign overwrites any existing assignment (admin override path).
	Assign(ctx context.Context, id, technicianID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, resolvedAt *time.Time) error

	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// UserRepository defines the contract for user persistence.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ListTechnicians returns technicians in insertion order. An empty
	// department returns all technicians.
	ListTechnicians(ctx context.Context, department string) ([]*models.User, error)
	ListAdmins(ctx context.Context) ([]*models.User, error)
	// CountActiveAssignments returns the number of Open/In Progress incidents
	// assigned to each of the given technicians. Technicians with no active
	// incidents are absent from the map.
	CountActiveAssignments(ctx context.Context, technicianIDs []uuid.UUID) (map[uuid.UUID]int, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
}

// NotificationRepository defines the contract for notification persistence.
type NotificationRepository interface {
	// CreateBatch inserts all notifications of one fan-out event together.
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

// Notifier fans out notifications for incident events. Failures are
// best-effort from the orchestrator's point of view: the incident mutation
// is the source of truth.
type Notifier interface {
	NotifyAssignment(ctx context.Context, incident *models.Incident, technician *models.User) error
	NotifyResolution(ctx context.Context, incident *models.Incident) error
}

// EmailSender delivers an email copy of a notification.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// AssignmentResult is returned to the caller for display after a successful
// assignment: the technician and their active load before this assignment.
type AssignmentResult struct {
	Technician *models.User
	ActiveLoad int
}

// IncidentService defines the contract for the incident lifecycle engine.
type IncidentService interface {
	CreateIncident(ctx context.Context, incident *models.Incident) error
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter, page, pageSize int) ([]*models.Incident, error)
	// AssignIncident assigns a technician. A nil technicianID selects one
	// automatically by specialty, availability and active load.
	AssignIncident(ctx context.Context, incidentID uuid.UUID, technicianID *uuid.UUID) (*AssignmentResult, error)
	UpdateStatus(ctx context.Context, incidentID uuid.UUID, status models.Status) (*models.Incident, error)
}

// UserService defines the contract for user provisioning and the roster.
type UserService interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListTechnicianLoads(ctx context.Context) ([]*models.TechnicianLoad, error)
	// SetAvailability toggles the availability flag. Only the owning
	// technician may change it.
	SetAvailability(ctx context.Context, actorID, technicianID uuid.UUID, available bool) error
}

// NotificationService defines the user-facing notification operations.
type NotificationService interface {
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}
