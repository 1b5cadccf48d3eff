package indexing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/staysearch/internal/db/memory"
	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
	"github.com/kailas-cloud/staysearch/internal/repository/unitindex"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// --- fake source ---

type mockSource struct {
	mu      sync.Mutex
	units   map[string]*unit.Source
	periods map[string][]unit.Period
	err     error
	reads   int

	// onPage, when set, runs before every EligibleUnitIDs page is returned.
	onPage func(afterID string)
}

func newMockSource() *mockSource {
	return &mockSource{
		units:   make(map[string]*unit.Source),
		periods: make(map[string][]unit.Period),
	}
}

func (m *mockSource) put(src *unit.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[src.UnitID] = src
}

func (m *mockSource) drop(unitID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.units, unitID)
}

func (m *mockSource) update(unitID string, fn func(*unit.Source)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.units[unitID])
}

func (m *mockSource) unitReads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *mockSource) setPeriods(unitID string, p []unit.Period) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[unitID] = p
}

func (m *mockSource) Unit(_ context.Context, unitID string) (*unit.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	src, ok := m.units[unitID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *src
	return &cp, nil
}

func (m *mockSource) UnitAvailability(_ context.Context, unitID string, _, _ time.Time) ([]unit.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]unit.Period(nil), m.periods[unitID]...), nil
}

func (m *mockSource) UnitIDsByProperty(_ context.Context, propertyID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var ids []string
	for id, src := range m.units {
		if src.PropertyID == propertyID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockSource) EligibleUnitIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return nil, m.err
	}
	var ids []string
	for id, src := range m.units {
		if src.Eligible() && id > afterID {
			ids = append(ids, id)
		}
	}
	hook := m.onPage
	m.mu.Unlock()

	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	if hook != nil {
		hook(afterID)
	}
	return ids, nil
}

// --- fixtures ---

type fixture struct {
	svc    *Service
	repo   *unitindex.Repo
	store  *memory.Store
	source *mockSource
	clock  *skewClock
}

// skewClock is wall time shifted by a movable offset, so store TTLs can be
// pushed forward without stalling lock polling.
type skewClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *skewClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *skewClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

func testOptions() Options {
	return Options{
		LockTimeout:        50 * time.Millisecond,
		AvailabilityMonths: 1,
		PricingMonths:      3,
		MaxImages:          3,
		BatchSize:          2,
		Parallelism:        2,
		RebuildLease:       time.Minute,
		MaxRetryAttempts:   1,
		RetryBaseDelay:     time.Millisecond,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &skewClock{}
	ms := memory.NewStore().WithClock(clock.now)
	repo := unitindex.New(ms, "t:", 30*24*time.Hour, time.Minute)
	src := newMockSource()
	svc := New(repo, src, testOptions(), zap.NewNop()).
		WithClock(func() time.Time { return testNow })
	return &fixture{svc: svc, repo: repo, store: ms, source: src, clock: clock}
}

func sourceUnit(id, propertyID string) *unit.Source {
	return &unit.Source{
		UnitID:           id,
		PropertyID:       propertyID,
		UnitTypeID:       "ut-apartment",
		PropertyTypeID:   "pt-hotel",
		UnitActive:       true,
		PropertyApproved: true,
		City:             "Sana'a",
		Latitude:         15.3694,
		Longitude:        44.1910,
		BasePrice:        120,
		Currency:         "usd",
		MaxOccupants:     3,
		AllowsAdults:     true,
		Amenities:        []string{"wifi", "parking"},
		Fields: []unit.SourceField{
			{Name: "bedrooms", Kind: unit.FieldNumber, Raw: "2"},
			{Name: "view", Kind: unit.FieldText, Raw: "mountain"},
		},
		AverageRating: 4.4,
		ReviewCount:   12,
	}
}

// docIDs returns the unit ids indexed in gen.
func (f *fixture) docIDs(t *testing.T, gen int64) []string {
	t.Helper()
	ids, err := f.store.SMembers(context.Background(), f.repo.Keys().Gen(gen).All())
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	sort.Strings(ids)
	return ids
}

func (f *fixture) doc(t *testing.T, gen int64, id string) *unit.Document {
	t.Helper()
	d, err := f.repo.Get(context.Background(), gen, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return d
}
