package service

import (
	"context"
	"fmt"

	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type notificationService struct {
	repo     NotificationRepository
	userRepo UserRepository
	email    EmailSender
	logger   *logrus.Logger
}

// NewNotificationService creates the notification fan-out service. The email
// sender may be nil, which disables email copies.
func NewNotificationService(repo NotificationRepository, userRepo UserRepository, email EmailSender, logger *logrus.Logger) *notificationService {
	return &notificationService{
		repo:     repo,
		userRepo: userRepo,
		email:    email,
		logger:   logger,
	}
}

// NotifyAssignment creates the assignment notification batch: one for the
// reporter, one for the technician, and one per admin. The batch is inserted
// in a single round trip.
func (s *notificationService) NotifyAssignment(ctx context.Context, incident *models.Incident, technician *models.User) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "notification",
		"method":      "NotifyAssignment",
		"incident_id": incident.ID,
	})

	admins, err := s.userRepo.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("service: could not list admins for fan-out: %w", err)
	}

	batch := []*models.Notification{
		{
			UserID:     incident.ReportedBy,
			IncidentID: incident.ID,
			Title:      "Technician assigned",
			Message:    fmt.Sprintf("%s has been assigned to your report %q", technician.Name, incident.Title),
			Type:       models.NotificationAssigned,
		},
		{
			UserID:     technician.ID,
			IncidentID: incident.ID,
			Title:      "New work order",
			Message:    fmt.Sprintf("You have been assigned to incident %q", incident.Title),
			Type:       models.NotificationInfo,
		},
	}
	for _, admin := range admins {
		batch = append(batch, &models.Notification{
			UserID:     admin.ID,
			IncidentID: incident.ID,
			Title:      "Incident assigned",
			Message:    fmt.Sprintf("%s was assigned to incident #%s", technician.Name, incident.ShortID()),
			Type:       models.NotificationInfo,
		})
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return fmt.Errorf("service: could not create assignment notifications: %w", err)
	}

	log.WithField("count", len(batch)).Info("Assignment notifications created")
	s.sendEmailCopies(ctx, batch)
	return nil
}

// NotifyResolution creates the resolution notification batch: one for the
// reporter and one per admin. The assigned technician receives none.
func (s *notificationService) NotifyResolution(ctx context.Context, incident *models.Incident) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "notification",
		"method":      "NotifyResolution",
		"incident_id": incident.ID,
	})

	reporter, err := s.userRepo.GetByID(ctx, incident.ReportedBy)
	if err != nil {
		return fmt.Errorf("service: could not resolve reporter for fan-out: %w", err)
	}
	admins, err := s.userRepo.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("service: could not list admins for fan-out: %w", err)
	}

	batch := []*models.Notification{
		{
			UserID:     incident.ReportedBy,
			IncidentID: incident.ID,
			Title:      "Incident resolved",
			Message:    fmt.Sprintf("Your report %q has been resolved", incident.Title),
			Type:       models.NotificationResolved,
		},
	}
	for _, admin := range admins {
		batch = append(batch, &models.Notification{
			UserID:     admin.ID,
			IncidentID: incident.ID,
			Title:      "Incident resolved",
			Message:    fmt.Sprintf("Incident %q reported by %s has been resolved", incident.Title, reporter.Name),
			Type:       models.NotificationResolved,
		})
	}

	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return fmt.Errorf("service: could not create resolution notifications: %w", err)
	}

	log.WithField("count", len(batch)).Info("Resolution notifications created")
	s.sendEmailCopies(ctx, batch)
	return nil
}

// sendEmailCopies delivers email copies of persisted notifications. Email is
// best-effort: the notification rows are the source of truth.
func (s *notificationService) sendEmailCopies(ctx context.Context, batch []*models.Notification) {
	if s.email == nil {
		return
	}
	for _, n := range batch {
		user, err := s.userRepo.GetByID(ctx, n.UserID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", n.UserID).Warn("Failed to resolve email recipient")
			continue
		}
		body := fmt.Sprintf("<p>%s</p>", n.Message)
		if err := s.email.Send(ctx, user.Email, n.Title, body); err != nil {
			s.logger.WithError(err).WithField("email", user.Email).Warn("Failed to send notification email")
		}
	}
}

// ListNotifications returns the user's notifications, newest first.
func (s *notificationService) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	notifications, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: could not list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead sets the read flag on a notification owned by userID.
func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return fmt.Errorf("service: could not mark notification read: %w", err)
	}
	return nil
}
