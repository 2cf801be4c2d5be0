package models

import (
	"time"

	"github.com/google/uuid"
)

// Category of a reported facility problem.
type Category string

const (
	CategoryWater       Category = "Water"
	CategoryElectricity Category = "Electricity"
	CategoryInternet    Category = "Internet"
	CategoryCivil       Category = "Civil"
	CategoryHVAC        Category = "HVAC"
	CategoryOther       Category = "Other"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Status of an incident. The normal flow is Open -> In Progress -> Resolved,
// but an admin may move an incident backwards to correct a mistaken resolution.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

// ValidStatus reports whether s is one of the three allowed status literals.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// ValidCategory reports whether c is one of the fixed category values.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryWater, CategoryElectricity, CategoryInternet, CategoryCivil, CategoryHVAC, CategoryOther:
		return true
	}
	return false
}

// Location is a WGS84 point. Incidents without coordinates carry a nil Location.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Incident struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	Location    *Location  `json:"location,omitempty"`
	Address     string     `json:"address,omitempty"`
	Images      []string   `json:"images"`
	ReportedBy  uuid.UUID  `json:"reported_by"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// ShortID returns the human-readable suffix of the incident id used in
// admin-facing notification text, e.g. "A1B2C3".
func (i *Incident) ShortID() string {
	s := i.ID.String()
	return trimToUpper(s, 6)
}

func trimToUpper(s string, n int) string {
	if len(s) > n {
		s = s[len(s)-n:]
	}
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
