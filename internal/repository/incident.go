package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/campusfix/facility_incident_system/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const incidentColumns = `
	id,
	title,
	description,
	category,
	priority,
	status,
	ST_Y(location::geometry) as latitude,
	ST_X(location::geometry) as longitude,
	address,
	images,
	reported_by,
	assigned_to,
	created_at,
	resolved_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// Create inserts a new incident record. Location is optional.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (title, description, category, priority, status, location, address, images, reported_by)
		VALUES ($1, $2, $3, $4, $5,
			CASE WHEN $6::float8 IS NULL THEN NULL
			     ELSE ST_SetSRID(ST_MakePoint($6, $7), 4326)::geography END,
			$8, $9, $10)
		RETURNING id, created_at;
	`
	var lon, lat *float64
	if incident.Location != nil {
		lon = &incident.Location.Longitude
		lat = &incident.Location.Latitude
	}
	err := r.db.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		incident.Category,
		incident.Priority,
		incident.Status,
		lon,
		lat,
		incident.Address,
		incident.Images,
		incident.ReportedBy,
	).Scan(&incident.ID, &incident.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID returns an incident by its UUID.
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT` + incidentColumns + ` FROM incidents WHERE id = $1;`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &service.NotFoundError{Entity: "incident", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// List returns incidents with optional status/category filters and pagination.
func (r *IncidentRepository) List(ctx context.Context, filter service.IncidentFilter, page, pageSize int) ([]*models.Incident, error) {
	offset := (page - 1) * pageSize

	query := `
		SELECT` + incidentColumns + `
		FROM incidents
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4;
	`
	rows, err := r.db.Query(ctx, query, string(filter.Status), string(filter.Category), pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

// FindNearbyActive returns the nearest Open/In Progress incident of the
// category within radiusMeters of the point, or nil when none match.
// Incidents without a stored location never match.
func (r *IncidentRepository) FindNearbyActive(ctx context.Context, category models.Category, lat, lon float64, radiusMeters int) (*models.Incident, error) {
	query := `
		SELECT` + incidentColumns + `
		FROM incidents
		WHERE
			category = $1
			AND status IN ('Open', 'In Progress')
			AND location IS NOT NULL
			AND ST_DWithin(
				location,
				ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography,
				$4
			)
		ORDER BY ST_Distance(location, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography)
		LIMIT 1;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, category, lon, lat, radiusMeters))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find nearby active incident: %w", err)
	}
	return incident, nil
}

// AssignIfUnassigned claims the incident for the technician in a single
// conditional update. Returns false when another assignment already exists.
func (r *IncidentRepository) AssignIfUnassigned(ctx context.Context, id, technicianID uuid.UUID) (bool, error) {
	query := `
		UPDATE incidents SET
			assigned_to = $2,
			status = 'In Progress',
			resolved_at = NULL
		WHERE id = $1 AND assigned_to IS NULL;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, technicianID)
	if err != nil {
		return false, fmt.Errorf("failed to assign incident: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// Assign sets the technician unconditionally, overwriting any previous
// assignment.
func (r *IncidentRepository) Assign(ctx context.Context, id, technicianID uuid.UUID) error {
	query := `
		UPDATE incidents SET
			assigned_to = $2,
			status = 'In Progress',
			resolved_at = NULL
		WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, technicianID)
	if err != nil {
		return fmt.Errorf("failed to assign incident: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return &service.NotFoundError{Entity: "incident", ID: id.String()}
	}
	return nil
}

// UpdateStatus persists a status transition together with its resolved_at
// value (set for Resolved, NULL otherwise).
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, resolvedAt *time.Time) error {
	query := `
		UPDATE incidents SET
			status = $2,
			resolved_at = $3
		WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, status, resolvedAt)
	if err != nil {
		return fmt.Errorf("failed to update incident status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return &service.NotFoundError{Entity: "incident", ID: id.String()}
	}
	return nil
}

// GetIncidentFromCache tries to read the incident from Redis.
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache stores the incident in Redis.
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, val, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache removes the incident from the Redis cache.
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

// scanIncident scans one incident row, folding the nullable coordinate pair
// into the optional Location.
func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	var lat, lon *float64
	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Category,
		&incident.Priority,
		&incident.Status,
		&lat,
		&lon,
		&incident.Address,
		&incident.Images,
		&incident.ReportedBy,
		&incident.AssignedTo,
		&incident.CreatedAt,
		&incident.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lon != nil {
		incident.Location = &models.Location{Latitude: *lat, Longitude: *lon}
	}
	return incident, nil
}
