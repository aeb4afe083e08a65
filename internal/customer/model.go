// Package customer provides the client directory: the people and
// businesses that visits are booked for.
package customer

import (
	"net/mail"
	"strings"
	"time"

	"github.com/evcraddock/field-scheduler/internal/visit"
)

// Customer is a client record. VisitCount and LastVisit are filled by List.
type Customer struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Company    string    `json:"company"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	CreatedAt  time.Time `json:"created_at"`
	VisitCount int       `json:"visit_count"`
	LastVisit  string    `json:"last_visit,omitempty"` // YYYY-MM-DD
}

// DisplayName returns the client's name, with the company in parentheses
// when there is one.
func (c *Customer) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if c.Company != "" {
		return name + " (" + c.Company + ")"
	}
	return name
}

// Validate trims fields and checks the required ones. Email is optional.
func (c *Customer) Validate() error {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Company = strings.TrimSpace(c.Company)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Address = strings.TrimSpace(c.Address)
	c.City = strings.TrimSpace(c.City)

	switch {
	case c.FirstName == "":
		return &visit.ValidationError{Field: "first_name", Message: "is required"}
	case c.LastName == "":
		return &visit.ValidationError{Field: "last_name", Message: "is required"}
	case c.Phone == "":
		return &visit.ValidationError{Field: "phone", Message: "is required"}
	case c.Address == "":
		return &visit.ValidationError{Field: "address", Message: "is required"}
	}
	if c.Email != "" {
		if addr, err := mail.ParseAddress(c.Email); err != nil || addr.Address != c.Email {
			return &visit.ValidationError{Field: "email", Message: "is not a valid email address"}
		}
	}
	return nil
}
