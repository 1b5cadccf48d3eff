package unitindex

import (
	"testing"
	"time"

	"github.com/kailas-cloud/staysearch/internal/db/memory"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

func newTestRepo(t *testing.T) (*Repo, *memory.Store) {
	t.Helper()
	ms := memory.NewStore()
	return New(ms, "t:", 30*24*time.Hour, time.Minute), ms
}

// newClockedRepo backs the repo with a store whose TTLs follow *now.
func newClockedRepo(t *testing.T, now *time.Time) *Repo {
	t.Helper()
	ms := memory.NewStore().WithClock(func() time.Time { return *now })
	return New(ms, "t:", 30*24*time.Hour, time.Minute)
}

func ptr(v float64) *float64 { return &v }

func testDocument(t *testing.T, id, city string, price float64, amenities ...string) *unit.Document {
	t.Helper()
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	src := &unit.Source{
		UnitID:           id,
		PropertyID:       "p-1",
		UnitTypeID:       "ut-1",
		PropertyTypeID:   "pt-1",
		UnitActive:       true,
		PropertyApproved: true,
		City:             city,
		Latitude:         15.3694,
		Longitude:        44.1910,
		BasePrice:        price,
		Currency:         "USD",
		MaxOccupants:     2,
		AllowsAdults:     true,
		Amenities:        amenities,
		Fields: []unit.SourceField{
			{Name: "bedrooms", Kind: unit.FieldNumber, Raw: "2"},
			{Name: "view", Kind: unit.FieldText, Raw: "sea: north"},
		},
		Images:        []string{"https://img/1.jpg,2"},
		AverageRating: 4.2,
		ReviewCount:   3,
	}
	doc := unit.Build(src, unit.BuildOptions{Now: now, AvailabilityMonths: 1, PricingMonths: 1, MaxImages: 5})
	doc.Version = 1
	return doc
}
