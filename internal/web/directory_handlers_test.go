package web

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/evcraddock/field-scheduler/internal/auth"
	"github.com/evcraddock/field-scheduler/internal/customer"
	"github.com/evcraddock/field-scheduler/internal/technician"
)

func TestAPITechnicians(t *testing.T) {
	env := testAPIServer(t)

	w := env.do(t, http.MethodPost, "/api/technicians", map[string]string{
		"first_name": "Bo", "last_name": "Chen", "phone": "555-0101", "email": "BO@example.com", "specialty": "plumbing",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", w.Code, w.Body.String())
	}
	var created technician.Technician
	decode(t, w, &created)
	if created.Email != "bo@example.com" || !created.Active {
		t.Errorf("created = %+v", created)
	}

	// Duplicate email
	w = env.do(t, http.MethodPost, "/api/technicians", map[string]string{
		"first_name": "Bob", "last_name": "Chen", "phone": "555-0102", "email": "bo@example.com", "specialty": "plumbing",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate email: status %d, want 409", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/technicians", map[string]string{"first_name": "Bo"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing fields: status %d, want 400", w.Code)
	}

	path := fmt.Sprintf("/api/technicians/%d", created.ID)
	w = env.do(t, http.MethodPut, path, map[string]string{
		"first_name": "Bo", "last_name": "Chen", "phone": "555-0199", "email": "bo@example.com", "specialty": "hvac",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d: %s", w.Code, w.Body.String())
	}

	if w := env.do(t, http.MethodDelete, path, nil); w.Code != http.StatusOK {
		t.Fatalf("deactivate: status %d", w.Code)
	}

	var active []technician.Technician
	decode(t, env.do(t, http.MethodGet, "/api/technicians", nil), &active)
	if len(active) != 1 {
		t.Errorf("active technicians = %d, want 1", len(active))
	}
	var all []technician.Technician
	decode(t, env.do(t, http.MethodGet, "/api/technicians?all=true", nil), &all)
	if len(all) != 2 {
		t.Errorf("all technicians = %d, want 2", len(all))
	}

	// An inactive technician cannot be booked.
	body := env.visitBody("2030-06-15", "09:00", "10:00")
	body["technician_id"] = created.ID
	if w := env.do(t, http.MethodPost, "/api/visits", body); w.Code != http.StatusConflict {
		t.Errorf("book inactive: status %d, want 409", w.Code)
	}

	if w := env.do(t, http.MethodGet, "/api/technicians/9999", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing: status %d, want 404", w.Code)
	}
}

func TestAPIClients(t *testing.T) {
	env := testAPIServer(t)

	w := env.do(t, http.MethodPost, "/api/clients", map[string]string{
		"first_name": "Maya", "last_name": "Stone", "company": "Stone Bakery",
		"phone": "555-0300", "address": "9 Oak Ave",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", w.Code, w.Body.String())
	}
	var created customer.Customer
	decode(t, w, &created)

	var found []customer.Customer
	decode(t, env.do(t, http.MethodGet, "/api/clients?q=bakery", nil), &found)
	if len(found) != 1 || found[0].ID != created.ID {
		t.Errorf("search = %+v", found)
	}
	if w := env.do(t, http.MethodGet, "/api/clients?q=a", nil); w.Code != http.StatusBadRequest {
		t.Errorf("short search: status %d, want 400", w.Code)
	}

	env.createVisit(t, "2030-06-15", "09:00", "10:00")
	var list []customer.Customer
	decode(t, env.do(t, http.MethodGet, "/api/clients", nil), &list)
	if len(list) != 2 {
		t.Fatalf("clients = %d, want 2", len(list))
	}

	// The seeded client has a visit on record.
	if w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/clients/%d", env.clientID), nil); w.Code != http.StatusConflict {
		t.Errorf("delete with visits: status %d, want 409", w.Code)
	}
	if w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/clients/%d", created.ID), nil); w.Code != http.StatusOK {
		t.Errorf("delete: status %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, fmt.Sprintf("/api/clients/%d", created.ID), nil); w.Code != http.StatusNotFound {
		t.Errorf("get deleted: status %d, want 404", w.Code)
	}
}

func TestAPIDirectoryUnavailable(t *testing.T) {
	env := testAPIServer(t)
	srv := NewServer(Deps{
		Visits:  env.srv.visits,
		APIKeys: auth.NewAPIKeyStore(env.db),
		Now:     clock,
	})

	for _, path := range []string{"/api/technicians", "/api/clients/1"} {
		w := apiRequest(t, srv, http.MethodGet, path, env.token, nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status %d, want 503", path, w.Code)
		}
	}
	if w := apiRequest(t, srv, http.MethodGet, "/api/visits", env.token, nil); w.Code != http.StatusOK {
		t.Errorf("visits: status %d, want 200", w.Code)
	}
}
