package staysearch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/search/request"
	"github.com/kailas-cloud/staysearch/internal/domain/search/result"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
	"github.com/kailas-cloud/staysearch/internal/event"
	healthuc "github.com/kailas-cloud/staysearch/internal/usecase/health"
	"github.com/kailas-cloud/staysearch/internal/usecase/indexing"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, req *request.Request) (result.Page, error)
}

func (m *mockSearchUC) Search(ctx context.Context, req *request.Request) (result.Page, error) {
	return m.searchFn(ctx, req)
}

// --- rebuildUseCase mock ---

type mockRebuildUC struct {
	rebuildFn func(ctx context.Context, batchSize, maxParallelism int) (indexing.RebuildReport, error)
}

func (m *mockRebuildUC) RebuildFullIndex(ctx context.Context, batchSize, maxParallelism int) (indexing.RebuildReport, error) {
	return m.rebuildFn(ctx, batchSize, maxParallelism)
}

// --- eventSink mock ---

type mockSink struct {
	events    []event.Event
	envelopes []*event.Envelope
	err       error
}

func (m *mockSink) Dispatch(_ context.Context, e event.Event) error {
	m.events = append(m.events, e)
	return m.err
}

func (m *mockSink) DispatchEnvelope(_ context.Context, env *event.Envelope) error {
	m.envelopes = append(m.envelopes, env)
	return m.err
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report {
	return m.report
}

// --- source fake ---

type fakeSource struct {
	mu      sync.Mutex
	units   map[string]*unit.Source
	pingErr error
}

func newFakeSource(units ...*unit.Source) *fakeSource {
	f := &fakeSource{units: make(map[string]*unit.Source)}
	for _, u := range units {
		f.units[u.UnitID] = u
	}
	return f
}

func (f *fakeSource) put(u *unit.Source) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units[u.UnitID] = u
}

func (f *fakeSource) Ping(_ context.Context) error { return f.pingErr }

func (f *fakeSource) Unit(_ context.Context, unitID string) (*unit.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.units[unitID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeSource) UnitAvailability(_ context.Context, _ string, _, _ time.Time) ([]unit.Period, error) {
	return nil, nil
}

func (f *fakeSource) UnitIDsByProperty(_ context.Context, propertyID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, u := range f.units {
		if u.PropertyID == propertyID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeSource) EligibleUnitIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, u := range f.units {
		if u.Eligible() && id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func sourceUnit(id string, price float64) *unit.Source {
	return &unit.Source{
		UnitID:           id,
		PropertyID:       "p-1",
		UnitTypeID:       "ut-apartment",
		PropertyTypeID:   "pt-hotel",
		UnitActive:       true,
		PropertyApproved: true,
		City:             "Sana'a",
		Latitude:         15.3694,
		Longitude:        44.1910,
		BasePrice:        price,
		Currency:         "USD",
		MaxOccupants:     3,
		AllowsAdults:     true,
		Amenities:        []string{"wifi"},
		Fields: []unit.SourceField{
			{Name: "bedrooms", Kind: unit.FieldNumber, Raw: "2"},
		},
		AverageRating: 4.5,
		ReviewCount:   8,
	}
}
