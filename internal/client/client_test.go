package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evcraddock/field-scheduler/internal/customer"
	"github.com/evcraddock/field-scheduler/internal/technician"
	"github.com/evcraddock/field-scheduler/internal/visit"
)

func writeJSON(t *testing.T, w http.ResponseWriter, code int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode: %v", err)
	}
}

func TestListVisits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/visits" {
			t.Errorf("path = %q, want /api/visits", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer testkey" {
			t.Error("expected Bearer testkey")
		}
		if r.URL.Query().Get("start") != "2030-06-01" || r.URL.Query().Get("end") != "2030-06-30" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		writeJSON(t, w, http.StatusOK, []visit.Record{{ID: 1, VisitDate: "2030-06-12", StartTime: "09:00:00"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey")
	records, err := c.ListVisits("2030-06-01", "2030-06-30")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].VisitDate != "2030-06-12" {
		t.Errorf("records = %+v", records)
	}
}

func TestListVisitsDefaultRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("query = %q, want empty", r.URL.RawQuery)
		}
		writeJSON(t, w, http.StatusOK, []visit.Record{})
	}))
	defer srv.Close()

	if _, err := New(srv.URL, "testkey").ListVisits("", ""); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestCreateVisit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var req visit.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.TechnicianID != 3 || req.StartTime != "09:00" {
			t.Errorf("request = %+v", req)
		}
		writeJSON(t, w, http.StatusCreated, visit.Record{ID: 7, State: visit.Scheduled})
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey")
	rec, err := c.CreateVisit(visit.Request{
		TechnicianID: 3, ClientID: 4, VisitDate: "2030-06-12",
		StartTime: "09:00", EndTime: "10:00", ServiceType: "repair",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID != 7 || rec.State != visit.Scheduled {
		t.Errorf("record = %+v", rec)
	}
}

func TestVisitActions(t *testing.T) {
	tests := []struct {
		name       string
		wantMethod string
		wantPath   string
		call       func(c *Client) error
	}{
		{"get", http.MethodGet, "/api/visits/5", func(c *Client) error { _, err := c.GetVisit(5); return err }},
		{"update", http.MethodPut, "/api/visits/5", func(c *Client) error {
			_, err := c.UpdateVisit(5, visit.Request{Notes: "x"})
			return err
		}},
		{"cancel", http.MethodPost, "/api/visits/5/cancel", func(c *Client) error { _, err := c.CancelVisit(5); return err }},
		{"complete", http.MethodPost, "/api/visits/5/complete", func(c *Client) error { _, err := c.CompleteVisit(5); return err }},
		{"delete", http.MethodDelete, "/api/visits/5", func(c *Client) error { return c.DeleteVisit(5) }},
		{"deactivate technician", http.MethodDelete, "/api/technicians/2", func(c *Client) error { return c.DeactivateTechnician(2) }},
		{"delete client", http.MethodDelete, "/api/clients/9", func(c *Client) error { return c.DeleteClient(9) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tt.wantMethod {
					t.Errorf("method = %s, want %s", r.Method, tt.wantMethod)
				}
				if r.URL.Path != tt.wantPath {
					t.Errorf("path = %q, want %q", r.URL.Path, tt.wantPath)
				}
				writeJSON(t, w, http.StatusOK, map[string]any{"id": 5})
			}))
			defer srv.Close()

			if err := tt.call(New(srv.URL, "testkey")); err != nil {
				t.Fatalf("call: %v", err)
			}
		})
	}
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stats" {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeJSON(t, w, http.StatusOK, []visit.TechnicianStats{{TechnicianID: 1, Total: 3, Completed: 1, Scheduled: 2}})
	}))
	defer srv.Close()

	stats, err := New(srv.URL, "testkey").Stats("2030-06-01", "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 || stats[0].Total != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/technicians":
			if r.Method == http.MethodPost {
				writeJSON(t, w, http.StatusCreated, technician.Technician{ID: 2, FirstName: "Ana", Active: true})
				return
			}
			if r.URL.Query().Get("all") != "true" {
				t.Errorf("all = %q, want true", r.URL.Query().Get("all"))
			}
			writeJSON(t, w, http.StatusOK, []technician.Technician{{ID: 2}})
		case "/api/clients":
			if r.Method == http.MethodPost {
				writeJSON(t, w, http.StatusCreated, customer.Customer{ID: 9, LastName: "Gomez"})
				return
			}
			if q := r.URL.Query().Get("q"); q != "" && q != "stone bakery" {
				t.Errorf("q = %q", q)
			}
			writeJSON(t, w, http.StatusOK, []customer.Customer{{ID: 9}})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey")
	if techs, err := c.ListTechnicians(true); err != nil || len(techs) != 1 {
		t.Errorf("list technicians = %v, %v", techs, err)
	}
	if tech, err := c.AddTechnician(&technician.Technician{FirstName: "Ana"}); err != nil || tech.ID != 2 {
		t.Errorf("add technician = %+v, %v", tech, err)
	}
	if list, err := c.ListClients(); err != nil || len(list) != 1 {
		t.Errorf("list clients = %v, %v", list, err)
	}
	if list, err := c.SearchClients("stone bakery"); err != nil || len(list) != 1 {
		t.Errorf("search clients = %v, %v", list, err)
	}
	if cu, err := c.AddClient(&customer.Customer{LastName: "Gomez"}); err != nil || cu.ID != 9 {
		t.Errorf("add client = %+v, %v", cu, err)
	}
}

func TestValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]string{
			"error": "visit_date: must not be in the past", "field": "visit_date",
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "testkey").CreateVisit(visit.Request{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Field != "visit_date" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.Error() != "visit_date: must not be in the past" {
		t.Errorf("message = %q", apiErr.Error())
	}
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "testkey").ListVisits("", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "internal error" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "badkey").ListVisits("", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("error = %v, want 401 APIError", err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeJSON(t, w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	if err := New(srv.URL, "").Health(); err != nil {
		t.Fatalf("health: %v", err)
	}
}
