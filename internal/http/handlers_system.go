package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	})
}

// handleReady checks the templates and the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"templates": "ok"}
	if len(s.templates) != len(pageNames) {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if s.store == nil {
		checks["store"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	trace := s.tracer.GetMetrics()
	rl := s.rateLimiter.GetMetrics()
	sec := s.detector.GetMetrics()
	var cacheHits, cacheMisses int64
	if s.expenses != nil {
		cacheHits, cacheMisses = s.expenses.CacheStats()
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total HTTP requests.", trace.TotalRequests)
	metric("http_requests_in_flight", "gauge", "Requests currently being served.", trace.InFlight)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status.", trace.ServerErrors)
	metric("http_request_duration_avg_seconds", "gauge", "Mean request latency.", trace.AverageLatency.Seconds())
	metric("expenses_created_total", "counter", "Expenses created.", s.metrics.expensesCreated.Load())
	metric("expenses_updated_total", "counter", "Expenses updated.", s.metrics.expensesUpdated.Load())
	metric("expenses_deleted_total", "counter", "Delete requests served.", s.metrics.expensesDeleted.Load())
	metric("limit_rejections_total", "counter", "Writes rejected by a category limit.", s.metrics.limitRejections.Load())
	metric("exports_total", "counter", "CSV month exports.", s.metrics.exports.Load())
	metric("logins_total", "counter", "Successful logins.", s.metrics.logins.Load())
	metric("login_failures_total", "counter", "Rejected logins.", s.metrics.failedLogins.Load())
	metric("registrations_total", "counter", "Accounts created.", s.metrics.registrations.Load())
	metric("cache_hits_total", "counter", "Summary cache hits.", cacheHits)
	metric("cache_misses_total", "counter", "Summary cache misses.", cacheMisses)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter.", rl.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Clients tracked by the rate limiter.", rl.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests matching probe patterns.", sec.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Process uptime.", int64(time.Since(s.metrics.started).Seconds()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
