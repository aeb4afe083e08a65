// Package web provides the JSON HTTP API for the scheduling engine.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/evcraddock/field-scheduler/internal/auth"
	"github.com/evcraddock/field-scheduler/internal/customer"
	"github.com/evcraddock/field-scheduler/internal/logging"
	"github.com/evcraddock/field-scheduler/internal/technician"
	"github.com/evcraddock/field-scheduler/internal/visit"
)

// Deps are the services the API is built on. Technicians and Customers may
// be nil when the directory lives outside this server; their endpoints then
// answer 503.
type Deps struct {
	Visits      *visit.Service
	Technicians *technician.Repository
	Customers   *customer.Repository
	APIKeys     auth.Validator
	Limiter     *auth.FailureLimiter
	// Now overrides the clock used for default date ranges.
	Now func() time.Time
}

// Server is the API HTTP server.
type Server struct {
	visits      *visit.Service
	technicians *technician.Repository
	customers   *customer.Repository
	now         func() time.Time
	mux         *http.ServeMux
	handler     http.Handler
}

// NewServer wires the API routes and middleware.
func NewServer(d Deps) *Server {
	s := &Server{
		visits:      d.Visits,
		technicians: d.Technicians,
		customers:   d.Customers,
		now:         d.Now,
		mux:         http.NewServeMux(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	limiter := d.Limiter
	if limiter == nil {
		limiter = auth.NewFailureLimiter(0)
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/visits", s.handleAPIVisits)
	s.mux.HandleFunc("/api/visits/", s.handleAPIVisits)
	s.mux.HandleFunc("/api/stats", s.handleAPIStats)
	s.mux.HandleFunc("/api/technicians", s.handleAPITechnicians)
	s.mux.HandleFunc("/api/technicians/", s.handleAPITechnicians)
	s.mux.HandleFunc("/api/clients", s.handleAPIClients)
	s.mux.HandleFunc("/api/clients/", s.handleAPIClients)
	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		apiError(w, "not found", http.StatusNotFound)
	})

	var h http.Handler = s.mux
	h = auth.RequireAPIKey(d.APIKeys, limiter, h)
	h = otelhttp.NewHandler(h, "fsched",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/health" }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + routeName(r.URL.Path)
		}),
	)
	s.handler = logging.RequestLogger(h)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on port until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// routeName collapses numeric path segments so span names stay bounded.
func routeName(path string) string {
	out := make([]byte, 0, len(path))
	inDigits := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c >= '0' && c <= '9' && (i == 0 || path[i-1] == '/' || inDigits) {
			if !inDigits {
				out = append(out, "{id}"...)
				inDigits = true
			}
			continue
		}
		inDigits = false
		out = append(out, c)
	}
	return string(out)
}
