package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dotproduct/internal/log"
	"dotproduct/internal/session"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)
	fail := func(name string, err error) {
		checks[name] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", fmt.Errorf("templates not loaded"))
	} else {
		checks["templates"] = "ok"
	}

	if err := s.backend.Health(ctx); err != nil {
		fail("backend", err)
	} else {
		checks["backend"] = "ok"
	}

	if s.activity.Ping != nil {
		if err := s.activity.Ping(ctx); err != nil {
			fail("activity", err)
		} else {
			checks["activity"] = "ok"
		}
	} else {
		checks["activity"] = s.activity.Type.String()
	}

	checks["controllers"] = map[string]any{
		"entries": s.registry.Size(),
		"status":  "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	if httpStatus != http.StatusOK {
		s.logger.WarnContext(ctx, "Readiness check failed", "checks", checks)
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "Total number of 5xx responses", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("mutations_total", "Successful backend create, update and delete calls", "counter", s.appMetrics.mutations.Load())
	metric("list_controllers", "Cached per-session transaction list controllers", "gauge", s.registry.Size())
	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("activity_recorded_total", "Activity events recorded", "counter", s.appMetrics.activityRecorded.Load())
	metric("activity_failed_total", "Activity events that could not be recorded", "counter", s.appMetrics.activityFailed.Load())
	metric("uptime_seconds", "Application uptime in seconds", "gauge", fmt.Sprintf("%.0f", time.Since(s.appMetrics.uptime).Seconds()))
}

// handleIndex sends the browser to the dashboard or the login page. While
// the identity cannot be determined nothing is rendered.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	switch sess.Resolve(r.Context()) {
	case session.Authenticated:
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	case session.Unauthenticated:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	default:
		s.logger.WarnContext(r.Context(), "Session state unknown, rendering nothing",
			log.FieldPath, r.URL.Path,
			log.FieldOperation, log.OpResolve)
		w.WriteHeader(http.StatusNoContent)
	}
}
