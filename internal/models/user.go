package models

import (
	"time"

	"github.com/google/uuid"
)

// Role of a user. Roles are mutually exclusive and fixed at creation.
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleAdmin, RoleTechnician:
		return true
	}
	return false
}

type User struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	Department  string    `json:"department,omitempty"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

// TechnicianLoad pairs a technician with the count of incidents currently
// assigned to them in Open or In Progress status.
type TechnicianLoad struct {
	Technician *User `json:"technician"`
	ActiveLoad int   `json:"active_load"`
}
