package repository

import (
	"context"
	"fmt"

	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/campusfix/facility_incident_system/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) service.NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateBatch inserts all notifications of one fan-out event in a single
// batched round trip, keeping the window for partial inserts as small as
// possible.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	query := `
		INSERT INTO notifications (user_id, incident_id, title, message, type)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at;
	`
	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(query, n.UserID, n.IncidentID, n.Title, n.Message, n.Type)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for _, n := range notifications {
		if err := br.QueryRow().Scan(&n.ID, &n.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert notification batch: %w", err)
		}
	}
	return nil
}

// ListByUser returns the user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, incident_id, title, message, type, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n := &models.Notification{}
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.IncidentID,
			&n.Title,
			&n.Message,
			&n.Type,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error notification iteration: %w", err)
	}
	return notifications, nil
}

// MarkRead sets the read flag. The user filter keeps one user from
// acknowledging another user's notification.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND user_id = $2;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return &service.NotFoundError{Entity: "notification", ID: id.String()}
	}
	return nil
}
