package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Validator checks raw API keys.
type Validator interface {
	Validate(ctx context.Context, rawKey string) (bool, error)
}

// FailureLimiter throttles clients that keep presenting bad API keys.
// Each IP gets a token bucket refilled at perMinute tokens per minute;
// only failed attempts spend tokens, so valid keys are never throttled.
type FailureLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perMinute int
	now       func() time.Time
}

// NewFailureLimiter allows perMinute failed attempts per IP per minute.
func NewFailureLimiter(perMinute int) *FailureLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &FailureLimiter{
		limiters:  make(map[string]*rate.Limiter),
		perMinute: perMinute,
		now:       time.Now,
	}
}

func (fl *FailureLimiter) limiter(ip string) *rate.Limiter {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	l, ok := fl.limiters[ip]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(fl.perMinute)), fl.perMinute)
		fl.limiters[ip] = l
	}
	return l
}

// Blocked reports whether ip has used up its failure budget.
func (fl *FailureLimiter) Blocked(ip string) bool {
	return fl.limiter(ip).TokensAt(fl.now()) < 1
}

// RecordFailure spends one token for ip.
func (fl *FailureLimiter) RecordFailure(ip string) {
	fl.limiter(ip).AllowN(fl.now(), 1)
}

// RequireAPIKey is middleware that validates Bearer token auth for /api/ routes.
// Non-API routes pass through untouched.
// Returns 401 for missing/invalid keys, 429 for rate-limited IPs.
func RequireAPIKey(keys Validator, limiter *FailureLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only intercept /api/ paths
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if limiter.Blocked(ip) {
			writeError(w, http.StatusTooManyRequests, "too many failed attempts")
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			limiter.RecordFailure(ip)
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		key := strings.TrimPrefix(authHeader, "Bearer ")
		valid, err := keys.Validate(r.Context(), key)
		if err != nil {
			slog.ErrorContext(r.Context(), "validating api key", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !valid {
			limiter.RecordFailure(ip)
			slog.WarnContext(r.Context(), "invalid api key", "ip", ip)
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of the request's remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		slog.Error("encoding error response", "error", err)
	}
}
