package web

import (
	"net/http"
	"strings"

	"github.com/evcraddock/field-scheduler/internal/customer"
	"github.com/evcraddock/field-scheduler/internal/technician"
)

// technicianRequest is the writable part of a technician.
type technicianRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Specialty string `json:"specialty"`
}

func (req technicianRequest) technician(id int64) *technician.Technician {
	return &technician.Technician{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		Specialty: req.Specialty,
	}
}

// handleAPITechnicians routes /api/technicians requests.
func (s *Server) handleAPITechnicians(w http.ResponseWriter, r *http.Request) {
	if s.technicians == nil {
		apiError(w, "technician directory not available on this server", http.StatusServiceUnavailable)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/technicians"), "/")
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			techs, err := s.technicians.List(r.Context(), r.URL.Query().Get("all") == "true")
			if err != nil {
				apiFail(w, r, err)
				return
			}
			if techs == nil {
				techs = []*technician.Technician{}
			}
			apiJSON(w, techs, http.StatusOK)
		case http.MethodPost:
			var req technicianRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			tech, err := s.technicians.Create(r.Context(), req.technician(0))
			if err != nil {
				apiFail(w, r, err)
				return
			}
			apiJSON(w, tech, http.StatusCreated)
		default:
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, err := splitID(path)
	if err != nil || action != "" {
		apiError(w, "invalid technician ID", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		tech, err := s.technicians.Get(r.Context(), id)
		if err != nil {
			apiFail(w, r, err)
			return
		}
		apiJSON(w, tech, http.StatusOK)
	case http.MethodPut:
		var req technicianRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		tech, err := s.technicians.Update(r.Context(), req.technician(id))
		if err != nil {
			apiFail(w, r, err)
			return
		}
		apiJSON(w, tech, http.StatusOK)
	case http.MethodDelete:
		if err := s.technicians.Deactivate(r.Context(), id); err != nil {
			apiFail(w, r, err)
			return
		}
		apiJSON(w, map[string]any{"id": id, "active": false}, http.StatusOK)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// clientRequest is the writable part of a client.
type clientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
}

func (req clientRequest) customer(id int64) *customer.Customer {
	return &customer.Customer{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Company:   req.Company,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		City:      req.City,
	}
}

// handleAPIClients routes /api/clients requests.
func (s *Server) handleAPIClients(w http.ResponseWriter, r *http.Request) {
	if s.customers == nil {
		apiError(w, "client directory not available on this server", http.StatusServiceUnavailable)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/clients"), "/")
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			var (
				list []*customer.Customer
				err  error
			)
			if q, ok := r.URL.Query()["q"]; ok {
				list, err = s.customers.Search(r.Context(), strings.Join(q, " "))
			} else {
				list, err = s.customers.List(r.Context())
			}
			if err != nil {
				apiFail(w, r, err)
				return
			}
			if list == nil {
				list = []*customer.Customer{}
			}
			apiJSON(w, list, http.StatusOK)
		case http.MethodPost:
			var req clientRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			c, err := s.customers.Create(r.Context(), req.customer(0))
			if err != nil {
				apiFail(w, r, err)
				return
			}
			apiJSON(w, c, http.StatusCreated)
		default:
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, err := splitID(path)
	if err != nil || action != "" {
		apiError(w, "invalid client ID", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := s.customers.Get(r.Context(), id)
		if err != nil {
			apiFail(w, r, err)
			return
		}
		apiJSON(w, c, http.StatusOK)
	case http.MethodPut:
		var req clientRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		c, err := s.customers.Update(r.Context(), req.customer(id))
		if err != nil {
			apiFail(w, r, err)
			return
		}
		apiJSON(w, c, http.StatusOK)
	case http.MethodDelete:
		if err := s.customers.Delete(r.Context(), id); err != nil {
			apiFail(w, r, err)
			return
		}
		apiJSON(w, map[string]any{"id": id, "removed": true}, http.StatusOK)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
