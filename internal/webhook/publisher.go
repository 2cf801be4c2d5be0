package webhook

//go:generate mockgen -source=publisher.go -destination=mocks/mock_publisher.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	webhookQueueKey = "webhook_events"
)

// Incident lifecycle event types delivered to the configured webhook.
const (
	EventIncidentCreated  = "incident.created"
	EventIncidentAssigned = "incident.assigned"
	EventIncidentResolved = "incident.resolved"
)

// Event is the webhook payload for an incident lifecycle event.
type Event struct {
	Type       string           `json:"type"`
	Incident   *models.Incident `json:"incident"`
	Technician *models.User     `json:"technician,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Publisher enqueues webhook events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher is a Publisher backed by a Redis list.
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish pushes the event onto the Redis-backed webhook queue.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	// LPUSH pairs with the worker's BRPOP so events are delivered in order
	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}
