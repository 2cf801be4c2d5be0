package service

import (
	"context"
	"fmt"

	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type userService struct {
	repo   UserRepository
	logger *logrus.Logger
}

func NewUserService(repo UserRepository, logger *logrus.Logger) UserService {
	return &userService{
		repo:   repo,
		logger: logger,
	}
}

// CreateUser provisions a user. Role is fixed at creation and email
// uniqueness is enforced by the repository.
func (s *userService) CreateUser(ctx context.Context, user *models.User) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "CreateUser",
		"email":   user.Email,
		"role":    user.Role,
	})
	log.Info("Attempting to create a new user")

	if !models.ValidRole(user.Role) {
		return &ValidationError{Message: fmt.Sprintf("invalid role: %s", user.Role)}
	}
	if user.Role == models.RoleTechnician && user.Department == "" {
		return &ValidationError{Message: "technician requires a department"}
	}
	// Only technicians carry a meaningful availability flag
	if user.Role == models.RoleTechnician {
		user.IsAvailable = true
	}

	if err := s.repo.Create(ctx, user); err != nil {
		log.WithError(err).Error("Failed to create user in repository")
		return fmt.Errorf("service: could not create user: %w", err)
	}

	log.WithField("user_id", user.ID).Info("User created successfully")
	return nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: could not get user: %w", err)
	}
	return user, nil
}

// ListTechnicianLoads returns the technician roster annotated with each
// technician's active incident count.
func (s *userService) ListTechnicianLoads(ctx context.Context) ([]*models.TechnicianLoad, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "user",
		"method":  "ListTechnicianLoads",
	})

	technicians, err := s.repo.ListTechnicians(ctx, "")
	if err != nil {
		log.WithError(err).Error("Failed to list technicians from repository")
		return nil, fmt.Errorf("service: could not list technicians: %w", err)
	}

	ids := make([]uuid.UUID, len(technicians))
	for i, t := range technicians {
		ids[i] = t.ID
	}
	loads, err := s.repo.CountActiveAssignments(ctx, ids)
	if err != nil {
		log.WithError(err).Error("Failed to count technician workloads")
		return nil, fmt.Errorf("service: could not count technician workloads: %w", err)
	}

	roster := make([]*models.TechnicianLoad, len(technicians))
	for i, t := range technicians {
		roster[i] = &models.TechnicianLoad{Technician: t, ActiveLoad: loads[t.ID]}
	}
	return roster, nil
}

// SetAvailability toggles a technician's availability flag. Only the owning
// technician may change it.
func (s *userService) SetAvailability(ctx context.Context, actorID, technicianID uuid.UUID, available bool) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":       "user",
		"method":        "SetAvailability",
		"technician_id": technicianID,
		"available":     available,
	})

	if actorID != technicianID {
		return &ValidationError{Message: "availability can only be changed by the owning technician"}
	}

	technician, err := s.repo.GetByID(ctx, technicianID)
	if err != nil {
		log.WithError(err).Warn("Attempted to update availability of a non-existent user")
		return fmt.Errorf("service: could not resolve technician: %w", err)
	}
	if technician.Role != models.RoleTechnician {
		return &ValidationError{Message: fmt.Sprintf("user %s is not a technician", technicianID)}
	}

	if err := s.repo.SetAvailability(ctx, technicianID, available); err != nil {
		log.WithError(err).Error("Failed to update availability in repository")
		return fmt.Errorf("service: could not update availability: %w", err)
	}

	log.Info("Availability updated successfully")
	return nil
}
