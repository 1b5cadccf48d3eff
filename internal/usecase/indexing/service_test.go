package indexing

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// --- scenario ---

func TestScenario_PropertyAndUnitLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.OnPropertyCreated(ctx, "P1"); err != nil {
		t.Fatalf("OnPropertyCreated: %v", err)
	}
	if got := f.docIDs(t, 1); len(got) != 0 {
		t.Fatalf("expected empty index, got %v", got)
	}

	f.source.put(sourceUnit("U1", "P1"))
	if err := f.svc.OnUnitCreated(ctx, "U1"); err != nil {
		t.Fatalf("OnUnitCreated: %v", err)
	}
	if got := f.docIDs(t, 1); !reflect.DeepEqual(got, []string{"U1"}) {
		t.Fatalf("expected exactly U1, got %v", got)
	}

	f.source.update("U1", func(s *unit.Source) { s.PropertyDeleted = true })
	if err := f.svc.OnPropertyDeleted(ctx, "P1"); err != nil {
		t.Fatalf("OnPropertyDeleted: %v", err)
	}
	if got := f.docIDs(t, 1); len(got) != 0 {
		t.Errorf("expected no documents, got %v", got)
	}
	if d := f.doc(t, 1, "U1"); d != nil {
		t.Errorf("document of U1 survived property deletion")
	}
}

func TestPropertyDeleted_CleansUnitsMissingFromSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.source.put(sourceUnit("U1", "P1"))
	f.source.put(sourceUnit("U2", "P1"))
	if err := f.svc.OnPropertyCreated(ctx, "P1"); err != nil {
		t.Fatalf("OnPropertyCreated: %v", err)
	}
	if got := f.docIDs(t, 1); len(got) != 2 {
		t.Fatalf("expected 2 documents, got %v", got)
	}

	// Hard delete in the source: the index set still knows the units.
	f.source.drop("U1")
	f.source.drop("U2")
	if err := f.svc.OnPropertyDeleted(ctx, "P1"); err != nil {
		t.Fatalf("OnPropertyDeleted: %v", err)
	}
	if got := f.docIDs(t, 1); len(got) != 0 {
		t.Errorf("expected no documents, got %v", got)
	}
	if ids, _ := f.repo.UnitsByProperty(ctx, 1, "P1"); len(ids) != 0 {
		t.Errorf("property set not cleaned: %v", ids)
	}
}

// --- idempotency ---

func TestOnUnitUpdated_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.put(sourceUnit("U1", "P1"))

	if err := f.svc.OnUnitUpdated(ctx, "U1"); err != nil {
		t.Fatalf("first update: %v", err)
	}
	first := f.doc(t, 1, "U1")

	if err := f.svc.OnUnitUpdated(ctx, "U1"); err != nil {
		t.Fatalf("second update: %v", err)
	}
	second := f.doc(t, 1, "U1")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second application changed the document:\n%+v\n%+v", first, second)
	}
	if second.Version != 1 {
		t.Errorf("Version = %d, want 1", second.Version)
	}
}

func TestOnUnitUpdated_BumpsVersionOnChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.put(sourceUnit("U1", "P1"))
	_ = f.svc.OnUnitUpdated(ctx, "U1")

	f.source.update("U1", func(s *unit.Source) {
		s.BasePrice = 99
		s.Amenities = []string{"wifi"}
	})
	if err := f.svc.OnUnitUpdated(ctx, "U1"); err != nil {
		t.Fatalf("OnUnitUpdated: %v", err)
	}
	d := f.doc(t, 1, "U1")
	if d.Version != 2 || d.Price != 99 {
		t.Errorf("Version = %d Price = %v", d.Version, d.Price)
	}
	gk := f.repo.Keys().Gen(1)
	if ids, _ := f.store.SMembers(ctx, gk.Amenity("parking")); len(ids) != 0 {
		t.Errorf("stale amenity entry: %v", ids)
	}
}

// --- consistency invariant ---

func TestConsistencyInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(*unit.Source){
		"ok":          func(*unit.Source) {},
		"inactive":    func(s *unit.Source) { s.UnitActive = false },
		"deleted":     func(s *unit.Source) { s.UnitDeleted = true },
		"unapproved":  func(s *unit.Source) { s.PropertyApproved = false },
		"propdeleted": func(s *unit.Source) { s.PropertyDeleted = true },
	}
	for id := range cases {
		f.source.put(sourceUnit(id, "P1"))
	}
	if err := f.svc.OnPropertyCreated(ctx, "P1"); err != nil {
		t.Fatalf("OnPropertyCreated: %v", err)
	}
	if got := f.docIDs(t, 1); len(got) != len(cases) {
		t.Fatalf("expected %d documents, got %v", len(cases), got)
	}

	for id, mutate := range cases {
		f.source.update(id, mutate)
	}
	if err := f.svc.OnPropertyUpdated(ctx, "P1"); err != nil {
		t.Fatalf("OnPropertyUpdated: %v", err)
	}

	for id := range cases {
		src, _ := f.source.Unit(ctx, id)
		d := f.doc(t, 1, id)
		if src.Eligible() != (d != nil) {
			t.Errorf("%s: eligible=%v document=%v", id, src.Eligible(), d != nil)
		}
	}
}

func TestOnUnitUpdated_BecomesIneligible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.put(sourceUnit("U1", "P1"))
	_ = f.svc.OnUnitCreated(ctx, "U1")

	f.source.update("U1", func(s *unit.Source) { s.UnitActive = false })
	if err := f.svc.OnUnitUpdated(ctx, "U1"); err != nil {
		t.Fatalf("OnUnitUpdated: %v", err)
	}
	if f.doc(t, 1, "U1") != nil {
		t.Error("inactive unit still indexed")
	}
	gk := f.repo.Keys().Gen(1)
	for _, key := range []string{gk.City("sana'a"), gk.Amenity("wifi"), gk.Property("P1"), gk.Field("bedrooms")} {
		if ids, _ := f.store.SMembers(ctx, key); len(ids) != 0 {
			t.Errorf("%s still lists %v", key, ids)
		}
	}
}

// --- deletion ---

func TestOnUnitDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.put(sourceUnit("U1", "P1"))
	_ = f.svc.OnUnitCreated(ctx, "U1")
	f.source.drop("U1")

	if err := f.svc.OnUnitDeleted(ctx, "U1", "P1"); err != nil {
		t.Fatalf("OnUnitDeleted: %v", err)
	}
	if f.doc(t, 1, "U1") != nil {
		t.Error("document survived deletion")
	}
	// Re-delivery is harmless.
	if err := f.svc.OnUnitDeleted(ctx, "U1", "P1"); err != nil {
		t.Fatalf("repeated OnUnitDeleted: %v", err)
	}
}

func TestOnUnitTypeDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := sourceUnit("U3", "P2")
	other.UnitTypeID = "ut-villa"
	for _, src := range []*unit.Source{sourceUnit("U1", "P1"), sourceUnit("U2", "P1"), other} {
		f.source.put(src)
		_ = f.svc.OnUnitCreated(ctx, src.UnitID)
	}

	if err := f.svc.OnUnitTypeDeleted(ctx, "ut-apartment"); err != nil {
		t.Fatalf("OnUnitTypeDeleted: %v", err)
	}
	if got := f.docIDs(t, 1); !reflect.DeepEqual(got, []string{"U3"}) {
		t.Errorf("remaining documents = %v, want [U3]", got)
	}
}

func TestOnUnitTypeFieldDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.put(sourceUnit("U1", "P1"))
	_ = f.svc.OnUnitCreated(ctx, "U1")

	if err := f.svc.OnUnitTypeFieldDeleted(ctx, "ut-apartment", "bedrooms"); err != nil {
		t.Fatalf("OnUnitTypeFieldDeleted: %v", err)
	}
	d := f.doc(t, 1, "U1")
	if _, ok := d.Fields["bedrooms"]; ok {
		t.Error("field projection not removed")
	}
	if _, ok := d.Fields["view"]; !ok {
		t.Error("unrelated field removed")
	}
	if d.Version != 2 {
		t.Errorf("Version = %d, want 2", d.Version)
	}
	gk := f.repo.Keys().Gen(1)
	if ids, _ := f.store.ZRangeByScore(ctx, gk.Num("bedrooms"), 0, 10); len(ids) != 0 {
		t.Errorf("numeric entry survived: %v", ids)
	}

	// Converges on re-run.
	if err := f.svc.OnUnitTypeFieldDeleted(ctx, "ut-apartment", "bedrooms"); err != nil {
		t.Fatalf("re-run: %v", err)
	}
	if v := f.doc(t, 1, "U1").Version; v != 2 {
		t.Errorf("re-run bumped version to %d", v)
	}
}

func TestOnUnitTypeFieldDeleted_OnlyUnitsCarryingField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bare := sourceUnit("U2", "P1")
	bare.Fields = nil
	other := sourceUnit("U3", "P1")
	other.UnitTypeID = "ut-villa"
	for _, src := range []*unit.Source{sourceUnit("U1", "P1"), bare, other} {
		f.source.put(src)
		if err := f.svc.OnUnitCreated(ctx, src.UnitID); err != nil {
			t.Fatalf("seed %s: %v", src.UnitID, err)
		}
	}

	if err := f.svc.OnUnitTypeFieldDeleted(ctx, "ut-apartment", "bedrooms"); err != nil {
		t.Fatalf("OnUnitTypeFieldDeleted: %v", err)
	}
	if _, ok := f.doc(t, 1, "U1").Fields["bedrooms"]; ok {
		t.Error("U1 kept the deleted field")
	}
	if v := f.doc(t, 1, "U2").Version; v != 1 {
		t.Errorf("U2 without the field was rewritten, version %d", v)
	}
	if d := f.doc(t, 1, "U3"); d.Version != 1 || d.Fields["bedrooms"].Kind != unit.FieldNumber {
		t.Errorf("unit of another type touched: %+v", d)
	}
}

func TestFanOut_JoinsErrors(t *testing.T) {
	f := newFixture(t)
	calls := 0
	err := f.svc.fanOut(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, id string) error {
		calls++
		if id == "b" {
			return errors.New("boom")
		}
		return nil
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if err == nil || !strings.Contains(err.Error(), "unit b: boom") {
		t.Errorf("err = %v", err)
	}
}

// --- availability ---

func TestOnAvailabilityChanged_PatchesAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.put(sourceUnit("U1", "P1"))
	_ = f.svc.OnUnitCreated(ctx, "U1")
	before := f.doc(t, 1, "U1")

	day := unit.Day(testNow)
	f.source.setPeriods("U1", []unit.Period{
		{Start: day.AddDate(0, 0, 2), End: day.AddDate(0, 0, 4), Status: unit.StatusBooked},
	})
	// Price change in the source must not leak through an availability patch.
	f.source.update("U1", func(s *unit.Source) { s.BasePrice = 500 })

	if err := f.svc.OnAvailabilityChanged(ctx, "U1"); err != nil {
		t.Fatalf("OnAvailabilityChanged: %v", err)
	}
	after := f.doc(t, 1, "U1")
	if after.Price != before.Price {
		t.Errorf("Price changed from %v to %v", before.Price, after.Price)
	}
	if st, _ := after.Availability.StatusOn(day.AddDate(0, 0, 2)); st != unit.StatusBooked {
		t.Errorf("status on day 2 = %c", st)
	}
	if after.Version != before.Version+1 {
		t.Errorf("Version = %d", after.Version)
	}
}

func TestOnAvailabilityChanged_MissingDocumentIndexes(t *testing.T) {
	f := newFixture(t)
	f.source.put(sourceUnit("U1", "P1"))

	if err := f.svc.OnAvailabilityChanged(context.Background(), "U1"); err != nil {
		t.Fatalf("OnAvailabilityChanged: %v", err)
	}
	if f.doc(t, 1, "U1") == nil {
		t.Error("expected full sync to index the unit")
	}
}

func TestOnAvailabilityChanged_MissingInAllGenerationsReadsSourceOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen, err := f.repo.BeginBuild(ctx, time.Minute)
	if err != nil {
		t.Fatalf("BeginBuild: %v", err)
	}
	f.source.put(sourceUnit("U1", "P1"))

	if err := f.svc.OnAvailabilityChanged(ctx, "U1"); err != nil {
		t.Fatalf("OnAvailabilityChanged: %v", err)
	}
	if n := f.source.unitReads(); n != 1 {
		t.Errorf("source read %d times, want 1", n)
	}
	if f.doc(t, 1, "U1") == nil || f.doc(t, gen, "U1") == nil {
		t.Error("expected the unit in both generations")
	}
}

// --- dual-write ---

func TestWrites_ReachBuildingGeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen, err := f.repo.BeginBuild(ctx, time.Minute)
	if err != nil {
		t.Fatalf("BeginBuild: %v", err)
	}

	f.source.put(sourceUnit("U1", "P1"))
	if err := f.svc.OnUnitCreated(ctx, "U1"); err != nil {
		t.Fatalf("OnUnitCreated: %v", err)
	}
	if f.doc(t, 1, "U1") == nil || f.doc(t, gen, "U1") == nil {
		t.Error("expected the unit in both active and building generations")
	}
}

// --- errors ---

func TestSyncUnit_LockBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.source.put(sourceUnit("U1", "P1"))

	release, err := f.repo.LockUnit(ctx, "U1", time.Minute, 0)
	if err != nil {
		t.Fatalf("LockUnit: %v", err)
	}
	defer func() { _ = release(ctx) }()

	err = f.svc.OnUnitUpdated(ctx, "U1")
	if !errors.Is(err, domain.ErrLockNotAcquired) {
		t.Errorf("expected ErrLockNotAcquired, got %v", err)
	}
}

func TestSyncUnit_SourceError(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("db down")
	err := f.svc.OnUnitUpdated(context.Background(), "U1")
	if err == nil || !strings.Contains(err.Error(), "read unit U1") {
		t.Errorf("err = %v", err)
	}
}

func TestOnDynamicFieldChanged_NoOp(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.OnDynamicFieldChanged(context.Background(), "P1", "view"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if keys := f.store.Keys(); len(keys) != 0 {
		t.Errorf("no-op touched the store: %v", keys)
	}
}
