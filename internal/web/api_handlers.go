package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/evcraddock/field-scheduler/internal/visit"
)

// defaultRangeDays is the span of a visit listing with no end date.
const defaultRangeDays = 7

const maxBodyBytes = 1 << 20

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// apiFail maps an error kind to its status code. Store failures are logged
// and answered with a generic message.
func apiFail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *visit.ValidationError
	switch {
	case errors.As(err, &verr):
		body := map[string]string{"error": verr.Error()}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		apiJSON(w, body, http.StatusBadRequest)
	case errors.Is(err, visit.ErrConflict):
		apiError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, visit.ErrNotFound):
		apiError(w, err.Error(), http.StatusNotFound)
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		apiError(w, "internal error", http.StatusInternalServerError)
	}
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		apiError(w, fmt.Sprintf("invalid JSON body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// splitID parses "{id}" or "{id}/{action}" from a path suffix.
func splitID(path string) (int64, string, error) {
	idStr, action, _ := strings.Cut(path, "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("invalid ID %q", idStr)
	}
	return id, action, nil
}

// handleAPIVisits routes /api/visits requests.
func (s *Server) handleAPIVisits(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/visits")
	path = strings.Trim(path, "/")

	// /api/visits: list or add
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			s.apiListVisits(w, r)
		case http.MethodPost:
			s.apiCreateVisit(w, r)
		default:
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id, action, err := splitID(path)
	if err != nil {
		apiError(w, "invalid visit ID", http.StatusBadRequest)
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.apiGetVisit(w, r, id)
		case http.MethodPut:
			s.apiUpdateVisit(w, r, id)
		case http.MethodDelete:
			s.apiDeleteVisit(w, r, id)
		default:
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "cancel", "complete":
		if r.Method != http.MethodPost {
			apiError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.apiTransitionVisit(w, r, id, action)
	default:
		apiError(w, "not found", http.StatusNotFound)
	}
}

// apiListVisits returns visits in ?start=&end=, defaulting to the coming week.
func (s *Server) apiListVisits(w http.ResponseWriter, r *http.Request) {
	start, end := s.dateRange(r)
	records, err := s.visits.ListByRange(r.Context(), start, end)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, records, http.StatusOK)
}

func (s *Server) apiCreateVisit(w http.ResponseWriter, r *http.Request) {
	var req visit.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := s.visits.Create(r.Context(), req)
	if err != nil {
		apiFail(w, r, err)
		return
	}

	rec, err := s.visits.Get(r.Context(), id)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, rec, http.StatusCreated)
}

func (s *Server) apiGetVisit(w http.ResponseWriter, r *http.Request, id int64) {
	rec, err := s.visits.Get(r.Context(), id)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, rec, http.StatusOK)
}

func (s *Server) apiUpdateVisit(w http.ResponseWriter, r *http.Request, id int64) {
	var req visit.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.visits.Update(r.Context(), id, req); err != nil {
		apiFail(w, r, err)
		return
	}

	rec, err := s.visits.Get(r.Context(), id)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, rec, http.StatusOK)
}

func (s *Server) apiDeleteVisit(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.visits.DeletePermanently(r.Context(), id); err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, map[string]any{"id": id, "removed": true}, http.StatusOK)
}

func (s *Server) apiTransitionVisit(w http.ResponseWriter, r *http.Request, id int64, action string) {
	var err error
	if action == "cancel" {
		err = s.visits.Cancel(r.Context(), id)
	} else {
		err = s.visits.Complete(r.Context(), id)
	}
	if err != nil {
		apiFail(w, r, err)
		return
	}

	rec, err := s.visits.Get(r.Context(), id)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, rec, http.StatusOK)
}

// handleAPIStats returns per-technician counts for ?start=&end=.
func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start, end := s.dateRange(r)
	stats, err := s.visits.Statistics(r.Context(), start, end)
	if err != nil {
		apiFail(w, r, err)
		return
	}
	apiJSON(w, stats, http.StatusOK)
}

// dateRange reads ?start= and ?end=. A missing start is today; a missing
// end is a week after the start, or after today when the start is invalid.
func (s *Server) dateRange(r *http.Request) (string, string) {
	today := visit.Today(s.now())
	start := strings.TrimSpace(r.URL.Query().Get("start"))
	end := strings.TrimSpace(r.URL.Query().Get("end"))

	if start == "" {
		start = today.String()
	}
	if end == "" {
		from := today
		if d, err := visit.ParseDate(start); err == nil {
			from = d
		}
		end = from.AddDays(defaultRangeDays).String()
	}
	return start, end
}
