package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campusfix/facility_incident_system/internal/config"
	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/campusfix/facility_incident_system/internal/webhook"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type incidentService struct {
	repo             IncidentRepository
	userRepo         UserRepository
	notifier         Notifier
	webhookPublisher webhook.Publisher
	logger           *logrus.Logger
	cfg              *config.Config
}

func NewIncidentService(
	repo IncidentRepository,
	userRepo UserRepository,
	notifier Notifier,
	webhookPublisher webhook.Publisher,
	logger *logrus.Logger,
	cfg *config.Config,
) IncidentService {
	return &incidentService{
		repo:             repo,
		userRepo:         userRepo,
		notifier:         notifier,
		webhookPublisher: webhookPublisher,
		logger:           logger,
		cfg:              cfg,
	}
}

// CreateIncident persists a new incident with status Open after the duplicate
// gate. Incidents without coordinates skip the gate and are always created.
func (s *incidentService) CreateIncident(ctx context.Context, incident *models.Incident) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "CreateIncident",
		"title":    incident.Title,
		"category": incident.Category,
	})
	log.Info("Attempting to create a new incident")

	if !models.ValidCategory(incident.Category) {
		return &ValidationError{Message: fmt.Sprintf("invalid category: %s", incident.Category)}
	}
	if incident.Priority == "" {
		incident.Priority = models.PriorityMedium
	}

	if incident.Location != nil {
		existing, err := s.repo.FindNearbyActive(ctx,
			incident.Category,
			incident.Location.Latitude,
			incident.Location.Longitude,
			s.cfg.DuplicateRadiusMeters,
		)
		if err != nil {
			log.WithError(err).Error("Failed to run duplicate check")
			return fmt.Errorf("service: could not check for duplicates: %w", err)
		}
		if existing != nil {
			log.WithField("existing_id", existing.ID).Info("Duplicate incident detected, rejecting report")
			return &ConflictError{
				Message: fmt.Sprintf(
					"a %s incident has already been reported within %dm, track incident #%s instead",
					incident.Category, s.cfg.DuplicateRadiusMeters, existing.ShortID(),
				),
				EntityID:   existing.ID.String(),
				EntityName: existing.Title,
			}
		}
	}

	incident.Status = models.StatusOpen
	incident.AssignedTo = nil
	incident.ResolvedAt = nil
	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return fmt.Errorf("service: could not create incident: %w", err)
	}

	s.publishEvent(ctx, webhook.EventIncidentCreated, incident, nil)

	log.WithField("incident_id", incident.ID).Info("Incident created successfully")
	return nil
}

// GetIncident fetches an incident, trying the cache first.
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to read incident from cache")
	}
	if cached != nil {
		log.Debug("Incident served from cache")
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Failed to cache incident")
	}
	return incident, nil
}

// ListIncidents returns a filtered, paginated incident listing.
func (s *incidentService) ListIncidents(ctx context.Context, filter IncidentFilter, page, pageSize int) ([]*models.Incident, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "ListIncidents",
		"page":      page,
		"page_size": pageSize,
	})

	incidents, err := s.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, nil
}

// UpdateStatus applies a status transition. Only the three status literals
// are accepted. Setting Resolved stamps resolved_at; any other status clears
// it. The resolution fan-out fires only on a transition into Resolved.
func (s *incidentService) UpdateStatus(ctx context.Context, incidentID uuid.UUID, status models.Status) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateStatus",
		"incident_id": incidentID,
		"status":      status,
	})
	log.Info("Attempting status transition")

	if !models.ValidStatus(status) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid status: %q", status)}
	}

	incident, err := s.repo.GetByID(ctx, incidentID)
	if err != nil {
		log.WithError(err).Warn("Attempted to transition a non-existent incident")
		return nil, fmt.Errorf("service: could not get incident for status update: %w", err)
	}

	var resolvedAt *time.Time
	if status == models.StatusResolved {
		now := time.Now()
		resolvedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, incidentID, status, resolvedAt); err != nil {
		log.WithError(err).Error("Failed to update incident status in repository")
		return nil, fmt.Errorf("service: could not update status: %w", err)
	}
	if err := s.repo.InvalidateIncidentCache(ctx, incidentID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	wasResolved := incident.Status == models.StatusResolved
	incident.Status = status
	incident.ResolvedAt = resolvedAt

	if status == models.StatusResolved && !wasResolved {
		// Notifications are best-effort: the status change is the source of
		// truth and is never rolled back on fan-out failure.
		if err := s.notifier.NotifyResolution(ctx, incident); err != nil {
			log.WithError(err).Error("Failed to fan out resolution notifications")
		}
		s.publishEvent(ctx, webhook.EventIncidentResolved, incident, nil)
	}

	log.Info("Status transition applied")
	return incident, nil
}

// publishEvent enqueues a webhook event. Delivery is asynchronous and
// best-effort, so failures are only logged.
func (s *incidentService) publishEvent(ctx context.Context, eventType string, incident *models.Incident, technician *models.User) {
	event := webhook.Event{
		Type:       eventType,
		Incident:   incident,
		Technician: technician,
		Timestamp:  time.Now(),
	}
	if err := s.webhookPublisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Error("Failed to publish webhook event")
	}
}
