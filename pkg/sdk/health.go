package staysearch

import (
	"context"

	healthuc "github.com/kailas-cloud/staysearch/internal/usecase/health"
)

// HealthStatus is the aggregated health. "degraded" means searches work but
// the source database is unreachable, so the index may go stale.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

// Healthy reports whether searches can be served.
func (h HealthStatus) Healthy() bool { return h.Status != string(healthuc.Unhealthy) }

// Health checks the index store and, when configured, the source database.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
