package domain

// HealthStatus is the outcome of one doctor check against the store.
type HealthStatus string

const (
	HealthOK    HealthStatus = "ok"
	HealthWarn  HealthStatus = "warn"
	HealthError HealthStatus = "error"
)

// HealthCheck is one named diagnostic, e.g. "ID counter" or "Version history gaps".
type HealthCheck struct {
	Name    string
	Status  HealthStatus
	Details string
}

// HealthReport is the ordered result of a doctor run.
type HealthReport struct {
	Checks []HealthCheck
}

// Count returns how many checks ended with status.
func (r HealthReport) Count(status HealthStatus) int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == status {
			n++
		}
	}
	return n
}

// Healthy reports whether no check failed.
func (r HealthReport) Healthy() bool {
	for _, c := range r.Checks {
		if c.Status == HealthError {
			return false
		}
	}
	return true
}
