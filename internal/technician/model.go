// Package technician provides the technician directory model and data
// access.
package technician

import (
	"net/mail"
	"strings"
	"time"

	"github.com/evcraddock/field-scheduler/internal/visit"
)

// Technician is a field worker who can be booked for visits.
type Technician struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Specialty string    `json:"specialty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName returns "First Last".
func (t *Technician) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// normalize trims every text field in place.
func (t *Technician) normalize() {
	t.FirstName = strings.TrimSpace(t.FirstName)
	t.LastName = strings.TrimSpace(t.LastName)
	t.Phone = strings.TrimSpace(t.Phone)
	t.Email = strings.ToLower(strings.TrimSpace(t.Email))
	t.Specialty = strings.TrimSpace(t.Specialty)
}

// Validate checks required fields and the email format.
func (t *Technician) Validate() error {
	t.normalize()
	switch {
	case t.FirstName == "":
		return &visit.ValidationError{Field: "first_name", Message: "is required"}
	case t.LastName == "":
		return &visit.ValidationError{Field: "last_name", Message: "is required"}
	case t.Phone == "":
		return &visit.ValidationError{Field: "phone", Message: "is required"}
	case t.Email == "":
		return &visit.ValidationError{Field: "email", Message: "is required"}
	case t.Specialty == "":
		return &visit.ValidationError{Field: "specialty", Message: "is required"}
	}
	if addr, err := mail.ParseAddress(t.Email); err != nil || addr.Address != t.Email {
		return &visit.ValidationError{Field: "email", Message: "is not a valid email address"}
	}
	return nil
}
