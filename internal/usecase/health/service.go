package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means searches are served but the index may go stale.
	Degraded Status = "degraded"
	// Unhealthy means the index store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index  Pinger
	source Pinger
}

// New creates a Service. source can be nil when no system of record is wired.
func New(index, source Pinger) *Service {
	return &Service{index: index, source: source}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["index"] = probe(ctx, s.index)
	if s.source != nil {
		checks["source"] = probe(ctx, s.source)
	}

	status := Healthy
	switch {
	case checks["index"] == CheckError:
		status = Unhealthy
	case checks["source"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func probe(ctx context.Context, p Pinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
