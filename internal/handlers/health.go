package handlers

import (
	"net/http"
	"time"

	domain "github.com/lojafacil/api/internal/domain"
	"github.com/lojafacil/api/internal/services"
)

var startTime = time.Now()

// HealthHandlers serves the liveness and readiness endpoints. Liveness is a
// static payload; readiness asks the system service to probe dependencies.
type HealthHandlers struct {
	system services.SystemService
}

// NewHealthHandlers constructs health handlers. The system service is
// optional; without it readiness degrades to the liveness payload.
func NewHealthHandlers(system services.SystemService) *HealthHandlers {
	return &HealthHandlers{system: system}
}

// Healthz responds with a simple status payload for monitoring.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type healthCheckPayload struct {
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type readinessPayload struct {
	Status      string                        `json:"status"`
	Checks      map[string]healthCheckPayload `json:"checks,omitempty"`
	GeneratedAt time.Time                     `json:"generatedAt"`
}

// Readyz reports aggregated dependency health.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		h.Healthz(w, r)
		return
	}

	report, err := h.system.Health(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, readinessPayload{
			Status:      string(domain.HealthStatusError),
			GeneratedAt: time.Now().UTC(),
		})
		return
	}

	payload := readinessPayload{
		Status:      string(report.Status),
		GeneratedAt: report.GeneratedAt,
	}
	if len(report.Checks) > 0 {
		payload.Checks = make(map[string]healthCheckPayload, len(report.Checks))
		for name, check := range report.Checks {
			entry := healthCheckPayload{
				Status: string(check.Status),
				Detail: check.Detail,
				Error:  check.Error,
			}
			if check.Latency > 0 {
				entry.Latency = check.Latency.String()
			}
			payload.Checks[name] = entry
		}
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, payload)
}
