package staysearch

import (
	"context"
	"testing"

	healthuc "github.com/kailas-cloud/staysearch/internal/usecase/health"
)

func TestClient_Health(t *testing.T) {
	c := &Client{healthSvc: &mockHealthUC{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK, "source": healthuc.CheckError},
	}}}

	h := c.Health(context.Background())
	if h.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", h.Status)
	}
	if h.Checks["index"] != "ok" || h.Checks["source"] != "error" {
		t.Errorf("Checks = %v", h.Checks)
	}
	if !h.Healthy() {
		t.Error("degraded client should still serve searches")
	}
	if (HealthStatus{Status: "error"}).Healthy() {
		t.Error("error status reported healthy")
	}
}
