// Package visit provides the field-service visit model, the scheduling
// engine that guards it, and its data access.
package visit

import (
	"time"

	"cloud.google.com/go/civil"
)

// State is the lifecycle state of a visit.
type State string

const (
	Scheduled State = "scheduled"
	Completed State = "completed"
	Cancelled State = "cancelled"
)

// ValidStates is the set of allowed visit states.
var ValidStates = []State{Scheduled, Completed, Cancelled}

// IsValid checks if a state is recognized.
func (s State) IsValid() bool {
	for _, v := range ValidStates {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the state.
func (s State) Label() string {
	switch s {
	case Scheduled:
		return "Scheduled"
	case Completed:
		return "Completed"
	case Cancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Visit is a scheduled appointment linking one technician and one client to
// a time interval on a date.
type Visit struct {
	ID           int64
	TechnicianID int64
	ClientID     int64
	Date         civil.Date
	Start        civil.Time
	End          civil.Time
	ServiceType  string
	Description  string
	State        State
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Populated by reads that join the reference tables.
	Technician *TechnicianSummary
	Client     *ClientSummary
}

// TechnicianSummary is the technician data embedded in visit listings.
type TechnicianSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Specialty string `json:"specialty"`
}

// ClientSummary is the client data embedded in visit listings.
type ClientSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// Record is the flattened, JSON-ready form of a visit.
type Record struct {
	ID           int64              `json:"id"`
	TechnicianID int64              `json:"technician_id"`
	ClientID     int64              `json:"client_id"`
	VisitDate    string             `json:"visit_date"` // YYYY-MM-DD
	StartTime    string             `json:"start_time"` // HH:MM:SS
	EndTime      string             `json:"end_time"`
	ServiceType  string             `json:"service_type"`
	Description  string             `json:"description"`
	State        State              `json:"state"`
	Notes        string             `json:"notes"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Technician   *TechnicianSummary `json:"technician,omitempty"`
	Client       *ClientSummary     `json:"client,omitempty"`
}

// Flatten converts v into its plain record form.
func (v *Visit) Flatten() Record {
	return Record{
		ID:           v.ID,
		TechnicianID: v.TechnicianID,
		ClientID:     v.ClientID,
		VisitDate:    v.Date.String(),
		StartTime:    FormatTime(v.Start),
		EndTime:      FormatTime(v.End),
		ServiceType:  v.ServiceType,
		Description:  v.Description,
		State:        v.State,
		Notes:        v.Notes,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
		Technician:   v.Technician,
		Client:       v.Client,
	}
}

// TechnicianStats is the per-technician aggregate over a date range.
type TechnicianStats struct {
	TechnicianID int64  `json:"technician_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Total        int    `json:"total"`
	Completed    int    `json:"completed"`
	Scheduled    int    `json:"scheduled"`
}
