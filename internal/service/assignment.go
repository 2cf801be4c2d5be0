package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/campusfix/facility_incident_system/internal/webhook"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// categoryDepartments maps an incident category to the technician department
// that handles it.
var categoryDepartments = map[models.Category]string{
	models.CategoryWater:       "Plumbing",
	models.CategoryElectricity: "Electrical",
	models.CategoryInternet:    "Internet",
	models.CategoryCivil:       "Civil",
	models.CategoryHVAC:        "HVAC",
	models.CategoryOther:       "General",
}

// candidate is a technician annotated with their current active load.
type candidate struct {
	technician *models.User
	activeLoad int
}

// AssignIncident assigns a technician to an incident. With a nil technicianID
// the best candidate is selected automatically; auto-assignment refuses an
// already-assigned incident, while an explicit technician id overwrites any
// existing assignment (admin override). On success the incident moves to
// In Progress and the assignment notifications are fanned out.
func (s *incidentService) AssignIncident(ctx context.Context, incidentID uuid.UUID, technicianID *uuid.UUID) (*AssignmentResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "AssignIncident",
		"incident_id": incidentID,
		"auto":        technicianID == nil,
	})
	log.Info("Attempting to assign incident")

	incident, err := s.repo.GetByID(ctx, incidentID)
	if err != nil {
		log.WithError(err).Warn("Attempted to assign a non-existent incident")
		return nil, fmt.Errorf("service: could not get incident for assignment: %w", err)
	}

	var result *AssignmentResult
	if technicianID == nil {
		result, err = s.autoAssign(ctx, incident)
	} else {
		result, err = s.manualAssign(ctx, incident, *technicianID)
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.InvalidateIncidentCache(ctx, incidentID); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	incident.AssignedTo = &result.Technician.ID
	incident.Status = models.StatusInProgress
	incident.ResolvedAt = nil

	// Fan-out is best-effort: the assignment itself is already persisted.
	if err := s.notifier.NotifyAssignment(ctx, incident, result.Technician); err != nil {
		log.WithError(err).Error("Failed to fan out assignment notifications")
	}
	s.publishEvent(ctx, webhook.EventIncidentAssigned, incident, result.Technician)

	log.WithFields(logrus.Fields{
		"technician_id": result.Technician.ID,
		"active_load":   result.ActiveLoad,
	}).Info("Incident assigned successfully")
	return result, nil
}

// autoAssign selects the best technician and claims the incident with a
// conditional update so two concurrent auto-assigns cannot both win.
func (s *incidentService) autoAssign(ctx context.Context, incident *models.Incident) (*AssignmentResult, error) {
	if incident.AssignedTo != nil {
		return nil, &ConflictError{
			Message:  fmt.Sprintf("incident #%s is already assigned", incident.ShortID()),
			EntityID: incident.ID.String(),
		}
	}

	best, err := s.selectBest(ctx, incident.Category)
	if err != nil {
		return nil, err
	}

	claimed, err := s.repo.AssignIfUnassigned(ctx, incident.ID, best.technician.ID)
	if err != nil {
		return nil, fmt.Errorf("service: could not assign incident: %w", err)
	}
	if !claimed {
		return nil, &ConflictError{
			Message:  fmt.Sprintf("incident #%s is already assigned", incident.ShortID()),
			EntityID: incident.ID.String(),
		}
	}
	return &AssignmentResult{Technician: best.technician, ActiveLoad: best.activeLoad}, nil
}

// manualAssign assigns an explicit technician, overwriting any existing
// assignment.
func (s *incidentService) manualAssign(ctx context.Context, incident *models.Incident, technicianID uuid.UUID) (*AssignmentResult, error) {
	technician, err := s.userRepo.GetByID(ctx, technicianID)
	if err != nil {
		return nil, fmt.Errorf("service: could not resolve technician: %w", err)
	}
	if technician.Role != models.RoleTechnician {
		return nil, &ValidationError{Message: fmt.Sprintf("user %s is not a technician", technicianID)}
	}

	loads, err := s.userRepo.CountActiveAssignments(ctx, []uuid.UUID{technician.ID})
	if err != nil {
		return nil, fmt.Errorf("service: could not count technician workload: %w", err)
	}

	if err := s.repo.Assign(ctx, incident.ID, technician.ID); err != nil {
		return nil, fmt.Errorf("service: could not assign incident: %w", err)
	}
	return &AssignmentResult{Technician: technician, ActiveLoad: loads[technician.ID]}, nil
}

// selectBest picks the technician for a category: specialty pool first, all
// technicians as fallback, ranked by availability then active load. The sort
// is stable so equal candidates keep their repository order.
func (s *incidentService) selectBest(ctx context.Context, category models.Category) (*candidate, error) {
	department := categoryDepartments[category]

	pool, err := s.userRepo.ListTechnicians(ctx, department)
	if err != nil {
		return nil, fmt.Errorf("service: could not list technicians: %w", err)
	}
	if len(pool) == 0 {
		pool, err = s.userRepo.ListTechnicians(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("service: could not list technicians: %w", err)
		}
	}
	if len(pool) == 0 {
		return nil, ErrNoCandidate
	}

	ids := make([]uuid.UUID, len(pool))
	for i, t := range pool {
		ids[i] = t.ID
	}
	loads, err := s.userRepo.CountActiveAssignments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service: could not count technician workloads: %w", err)
	}

	candidates := make([]candidate, len(pool))
	for i, t := range pool {
		candidates[i] = candidate{technician: t, activeLoad: loads[t.ID]}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].technician.IsAvailable != candidates[j].technician.IsAvailable {
			return candidates[i].technician.IsAvailable
		}
		return candidates[i].activeLoad < candidates[j].activeLoad
	})

	best := candidates[0]
	return &best, nil
}
