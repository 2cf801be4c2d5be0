package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusfix/facility_incident_system/internal/models"
	"github.com/campusfix/facility_incident_system/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) service.UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. Email uniqueness is enforced by the database
// and surfaced as a conflict error.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, role, department, is_available)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Role,
		user.Department,
		user.IsAvailable,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return &service.ConflictError{
				Message:    fmt.Sprintf("user with email %s already exists", user.Email),
				EntityName: user.Email,
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns a user by their UUID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, name, email, role, department, is_available, created_at
		FROM users
		WHERE id = $1;
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Department,
		&user.IsAvailable,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &service.NotFoundError{Entity: "user", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

// ListTechnicians returns technicians in insertion order. An empty department
// matches all technicians.
func (r *UserRepository) ListTechnicians(ctx context.Context, department string) ([]*models.User, error) {
	query := `
		SELECT id, name, email, role, department, is_available, created_at
		FROM users
		WHERE role = 'technician'
		  AND ($1 = '' OR department = $1)
		ORDER BY created_at, id;
	`
	return r.listUsers(ctx, query, department)
}

// ListAdmins returns all admin users.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, name, email, role, department, is_available, created_at
		FROM users
		WHERE role = 'admin'
		ORDER BY created_at, id;
	`
	return r.listUsers(ctx, query)
}

// CountActiveAssignments counts Open/In Progress incidents per technician.
// Counts are computed fresh on every call, never cached.
func (r *UserRepository) CountActiveAssignments(ctx context.Context, technicianIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(technicianIDs))
	if len(technicianIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT assigned_to, COUNT(*)
		FROM incidents
		WHERE assigned_to = ANY($1)
		  AND status IN ('Open', 'In Progress')
		GROUP BY assigned_to;
	`
	rows, err := r.db.Query(ctx, query, technicianIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count active assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("failed to scan assignment count row: %w", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error count iteration: %w", err)
	}
	return counts, nil
}

// SetAvailability updates the technician's availability flag.
func (r *UserRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	query := `
		UPDATE users SET is_available = $2
		WHERE id = $1;
	`
	cmdTag, err := r.db.Exec(ctx, query, id, available)
	if err != nil {
		return fmt.Errorf("failed to update availability: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return &service.NotFoundError{Entity: "user", ID: id.String()}
	}
	return nil
}

func (r *UserRepository) listUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Role,
			&user.Department,
			&user.IsAvailable,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error user iteration: %w", err)
	}
	return users, nil
}
