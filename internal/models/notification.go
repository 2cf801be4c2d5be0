package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationAssigned NotificationType = "assigned"
	NotificationResolved NotificationType = "resolved"
	NotificationInfo     NotificationType = "info"
)

// Notification is created only as a side effect of an incident event.
// The engine never mutates it afterwards except for the read flag.
type Notification struct {
	ID         uuid.UUID        `json:"id"`
	UserID     uuid.UUID        `json:"user_id"`
	IncidentID uuid.UUID        `json:"incident_id"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Type       NotificationType `json:"type"`
	IsRead     bool             `json:"is_read"`
	CreatedAt  time.Time        `json:"created_at"`
}
