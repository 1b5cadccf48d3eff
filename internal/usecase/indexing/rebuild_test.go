package indexing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

func seedUnits(t *testing.T, f *fixture, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("U%d", i)
		f.source.put(sourceUnit(id, "P1"))
		ids = append(ids, id)
	}
	return ids
}

func TestRebuildFullIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	want := seedUnits(t, f, 5)

	// A stale document the source no longer knows about.
	f.source.put(sourceUnit("GHOST", "P9"))
	if err := f.svc.OnUnitCreated(ctx, "GHOST"); err != nil {
		t.Fatalf("seed ghost: %v", err)
	}
	f.source.drop("GHOST")

	report, err := f.svc.RebuildFullIndex(ctx, 0, 0)
	if err != nil {
		t.Fatalf("RebuildFullIndex: %v", err)
	}
	if report.Generation != 2 || report.PreviousGeneration != 1 {
		t.Errorf("generation %d, previous %d", report.Generation, report.PreviousGeneration)
	}
	if report.Indexed != 5 || report.Skipped != 0 || report.Pages != 3 {
		t.Errorf("report = %+v", report)
	}

	active, _ := f.repo.ActiveGeneration(ctx)
	if active != 2 {
		t.Fatalf("active generation = %d, want 2", active)
	}
	if got := f.docIDs(t, 2); !reflect.DeepEqual(got, want) {
		t.Errorf("gen 2 = %v, want %v", got, want)
	}
	for _, k := range f.store.Keys() {
		if strings.HasPrefix(k, "t:g1:") {
			t.Errorf("old generation key survived: %s", k)
		}
	}
	if _, ok, _ := f.repo.BuildingGeneration(ctx); ok {
		t.Error("building generation still announced")
	}
}

func TestRebuildFullIndex_CancelKeepsActiveGeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedUnits(t, f, 3)
	for _, id := range []string{"U1", "U2", "U3"} {
		if err := f.svc.OnUnitCreated(ctx, id); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	seedUnits(t, f, 6)

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	f.source.onPage = func(afterID string) {
		if afterID != "" {
			cancel()
		}
	}

	_, err := f.svc.RebuildFullIndex(rctx, 2, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	active, _ := f.repo.ActiveGeneration(ctx)
	if active != 1 {
		t.Fatalf("active generation = %d, want 1", active)
	}
	if got := f.docIDs(t, 1); !reflect.DeepEqual(got, []string{"U1", "U2", "U3"}) {
		t.Errorf("active generation changed: %v", got)
	}
	for _, id := range []string{"U1", "U2", "U3"} {
		if f.doc(t, 1, id) == nil {
			t.Errorf("document %s missing from the active generation", id)
		}
	}
	for _, k := range f.store.Keys() {
		if strings.HasPrefix(k, "t:g2:") {
			t.Errorf("partial generation key survived: %s", k)
		}
	}
	if _, ok, _ := f.repo.BuildingGeneration(ctx); ok {
		t.Error("building generation still announced")
	}
}

func TestRebuildFullIndex_AlreadyRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lease, err := f.repo.LockRebuild(ctx, time.Minute)
	if err != nil {
		t.Fatalf("LockRebuild: %v", err)
	}
	defer func() { _ = lease.Release(ctx) }()

	_, err = f.svc.RebuildFullIndex(ctx, 10, 1)
	if !errors.Is(err, domain.ErrRebuildInProgress) {
		t.Errorf("expected ErrRebuildInProgress, got %v", err)
	}
}

func TestRebuildFullIndex_RenewsLeaseBetweenPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedUnits(t, f, 4)

	var secondLock error
	f.source.onPage = func(afterID string) {
		if afterID == "" {
			return
		}
		// Each page lands 40s after the last renewal; the lease is 1m.
		f.clock.advance(40 * time.Second)
		if afterID != "U4" {
			return
		}
		// 80s past BeginBuild: only a renewed marker still routes writes.
		f.source.update("U1", func(src *unit.Source) { src.BasePrice = 999 })
		if err := f.svc.OnUnitUpdated(ctx, "U1"); err != nil {
			t.Errorf("OnUnitUpdated during rebuild: %v", err)
		}
		_, secondLock = f.repo.LockRebuild(ctx, time.Minute)
	}

	report, err := f.svc.RebuildFullIndex(ctx, 2, 1)
	if err != nil {
		t.Fatalf("RebuildFullIndex: %v", err)
	}
	if !errors.Is(secondLock, domain.ErrRebuildInProgress) {
		t.Errorf("second rebuild lock: expected ErrRebuildInProgress, got %v", secondLock)
	}
	active, _ := f.repo.ActiveGeneration(ctx)
	if active != report.Generation {
		t.Fatalf("active generation = %d, want %d", active, report.Generation)
	}
	if d := f.doc(t, active, "U1"); d == nil || d.Price != 999 {
		t.Errorf("update made during the rebuild was lost: %+v", d)
	}
}

func TestRebuildFullIndex_LeaseLostStops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedUnits(t, f, 6)
	for _, id := range []string{"U1", "U2"} {
		if err := f.svc.OnUnitCreated(ctx, id); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	f.source.onPage = func(afterID string) {
		if afterID == "U2" {
			f.clock.advance(2 * time.Minute)
		}
	}

	_, err := f.svc.RebuildFullIndex(ctx, 2, 1)
	if !errors.Is(err, domain.ErrLeaseLost) {
		t.Fatalf("expected ErrLeaseLost, got %v", err)
	}
	active, _ := f.repo.ActiveGeneration(ctx)
	if active != 1 {
		t.Errorf("active generation = %d, want 1", active)
	}
	if got := f.docIDs(t, 1); !reflect.DeepEqual(got, []string{"U1", "U2"}) {
		t.Errorf("active generation changed: %v", got)
	}
}

func TestRebuildFullIndex_SourceErrorAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedUnits(t, f, 2)
	f.source.err = errors.New("source down")

	if _, err := f.svc.RebuildFullIndex(ctx, 10, 1); err == nil {
		t.Fatal("expected error")
	}
	active, _ := f.repo.ActiveGeneration(ctx)
	if active != 1 {
		t.Errorf("active generation = %d, want 1", active)
	}
	if _, ok, _ := f.repo.BuildingGeneration(ctx); ok {
		t.Error("building generation still announced")
	}
}

func TestRebuildFullIndex_Empty(t *testing.T) {
	f := newFixture(t)
	report, err := f.svc.RebuildFullIndex(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("RebuildFullIndex: %v", err)
	}
	if report.Indexed != 0 || report.Pages != 0 || report.Generation != 2 {
		t.Errorf("report = %+v", report)
	}
}
