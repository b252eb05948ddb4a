package types

import "time"

// HealthState describes the outcome of a component health check.
type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateUnhealthy HealthState = "unhealthy"
)

// String returns the string representation of the state.
func (s HealthState) String() string {
	return string(s)
}

// HealthStatus is the result of a health check.
type HealthStatus struct {
	State     HealthState `json:"state"`
	Message   string      `json:"message,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// Healthy returns a healthy status stamped with the current time.
func Healthy(message string) HealthStatus {
	return HealthStatus{State: HealthStateHealthy, Message: message, CheckedAt: time.Now()}
}

// Unhealthy returns an unhealthy status stamped with the current time.
func Unhealthy(message string) HealthStatus {
	return HealthStatus{State: HealthStateUnhealthy, Message: message, CheckedAt: time.Now()}
}

// IsHealthy reports whether the check passed.
func (h HealthStatus) IsHealthy() bool {
	return h.State == HealthStateHealthy
}
