package domain

import "time"

// Health status values reported by the readiness endpoint.
const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but the service keeps running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck records the outcome of a single dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	GeneratedAt time.Time
}
