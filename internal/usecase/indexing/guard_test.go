package indexing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/staysearch/internal/event"
	"github.com/kailas-cloud/staysearch/internal/logger"
	"github.com/kailas-cloud/staysearch/internal/metrics"
)

var _ event.Indexer = (*Guard)(nil)

// countingHooks counts invocations of OnUnitUpdated.
type countingHooks struct {
	Hooks
	mu    sync.Mutex
	calls int
}

func (c *countingHooks) OnUnitUpdated(ctx context.Context, unitID string) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.Hooks.OnUnitUpdated(ctx, unitID)
}

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func criticalEntries(logs *observer.ObservedLogs) int {
	return logs.FilterField(zap.String("severity", logger.SeverityCritical)).Len()
}

func TestGuard_RetryBound(t *testing.T) {
	f := newFixture(t)
	f.source.put(sourceUnit("U1", "P1"))
	f.store.SetFailure(errors.New("store down"))

	core, logs := observer.New(zapcore.InfoLevel)
	hooks := &countingHooks{Hooks: f.svc}
	sleeps := &recordedSleeps{}
	g := NewGuard(hooks, 2, time.Second, zap.New(core)).WithSleeper(sleeps.sleep)

	exhausted := metrics.IndexingRetriesExhaustedTotal.WithLabelValues("unit_updated")
	before := testutil.ToFloat64(exhausted)

	g.OnUnitUpdated(context.Background(), "U1")

	if hooks.calls != 2 {
		t.Errorf("attempts = %d, want 2", hooks.calls)
	}
	if n := criticalEntries(logs); n != 1 {
		t.Errorf("critical entries = %d, want 1", n)
	}
	if len(sleeps.delays) != 1 || sleeps.delays[0] != time.Second {
		t.Errorf("delays = %v, want [1s]", sleeps.delays)
	}
	if got := testutil.ToFloat64(exhausted) - before; got != 1 {
		t.Errorf("exhausted counter grew by %v, want 1", got)
	}

	entry := logs.FilterField(zap.String("severity", logger.SeverityCritical)).All()[0]
	fields := entry.ContextMap()
	if fields["entity"] != "unit" || fields["id"] != "U1" || fields["operation"] != "unit_updated" {
		t.Errorf("critical entry fields = %v", fields)
	}
}

func TestGuard_SucceedsAfterRetry(t *testing.T) {
	f := newFixture(t)
	f.source.put(sourceUnit("U1", "P1"))

	core, logs := observer.New(zapcore.InfoLevel)
	flaky := &flakyHooks{Hooks: f.svc, failures: 1}
	g := NewGuard(flaky, 3, time.Millisecond, zap.New(core)).WithSleeper(func(context.Context, time.Duration) error { return nil })

	g.OnUnitCreated(context.Background(), "U1")

	if flaky.calls != 2 {
		t.Errorf("calls = %d, want 2", flaky.calls)
	}
	if n := criticalEntries(logs); n != 0 {
		t.Errorf("critical entries = %d, want 0", n)
	}
	if logs.FilterMessage("indexing attempt failed, retrying").Len() != 1 {
		t.Error("expected one retry warning")
	}
	if f.doc(t, 1, "U1") == nil {
		t.Error("unit not indexed")
	}
}

func TestGuard_CancelledContextIsNotCritical(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.InfoLevel)
	g := NewGuard(f.svc, 3, time.Second, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g.OnPropertyUpdated(ctx, "P1")

	if n := criticalEntries(logs); n != 0 {
		t.Errorf("critical entries = %d, want 0", n)
	}
	if logs.FilterMessage("indexing cancelled").Len() != 1 {
		t.Error("expected a cancellation warning")
	}
}

func TestGuard_RoutesEveryHook(t *testing.T) {
	f := newFixture(t)
	g := NewGuard(f.svc, 1, time.Millisecond, zap.NewNop())
	ctx := context.Background()
	f.source.put(sourceUnit("U1", "P1"))

	g.OnPropertyCreated(ctx, "P1")
	if f.doc(t, 1, "U1") == nil {
		t.Fatal("property created did not index U1")
	}
	g.OnUnitTypeFieldDeleted(ctx, "ut-apartment", "view")
	if _, ok := f.doc(t, 1, "U1").Fields["view"]; ok {
		t.Error("field deletion not routed")
	}
	g.OnAvailabilityChanged(ctx, "U1")
	g.OnDynamicFieldChanged(ctx, "P1", "view")
	g.OnUnitTypeDeleted(ctx, "ut-apartment")
	if f.doc(t, 1, "U1") != nil {
		t.Error("unit type deletion not routed")
	}
	g.OnUnitUpdated(ctx, "U1")
	if f.doc(t, 1, "U1") == nil {
		t.Fatal("unit update not routed")
	}
	f.source.drop("U1")
	g.OnUnitDeleted(ctx, "U1", "P1")
	g.OnPropertyUpdated(ctx, "P1")
	g.OnPropertyDeleted(ctx, "P1")
	if f.doc(t, 1, "U1") != nil {
		t.Error("unit deletion not routed")
	}
}

type flakyHooks struct {
	Hooks
	failures int
	calls    int
}

func (h *flakyHooks) OnUnitCreated(ctx context.Context, unitID string) error {
	h.calls++
	if h.calls <= h.failures {
		return errors.New("transient")
	}
	return h.Hooks.OnUnitCreated(ctx, unitID)
}
