package engine

// Status is the derived health of an engine.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOK        Status = "OK"
	StatusUnhealthy Status = "UNHEALTHY"
	StatusNoMetrics Status = "NO_METRICS"
)

// Check names one of the two polling cycles of an entry.
type Check string

const (
	CheckHealth  Check = "health"
	CheckMetrics Check = "metrics"
)

// outcome is the most recent resolution of one polling cycle.
type outcome struct {
	done    bool
	payload any
	err     error
}

// deriveStatus applies the status rule: a failed health check wins over a
// failed metrics check; a cycle that has not resolved yet counts as passing.
func deriveStatus(health, metrics outcome) Status {
	if !health.done && !metrics.done {
		return StatusPending
	}
	if health.done && health.err != nil {
		return StatusUnhealthy
	}
	if metrics.done && metrics.err != nil {
		return StatusNoMetrics
	}
	return StatusOK
}
