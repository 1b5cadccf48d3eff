package unit

import (
	"testing"
	"time"
)

func sampleSource() *Source {
	return &Source{
		UnitID:           "u-1",
		PropertyID:       "p-1",
		UnitTypeID:       "ut-1",
		PropertyTypeID:   "pt-1",
		UnitActive:       true,
		PropertyApproved: true,
		City:             "  Sana'a ",
		Latitude:         15.3694,
		Longitude:        44.1910,
		BasePrice:        120,
		Currency:         "yer",
		PriceRules: []PriceRule{
			{Start: date(2026, 3, 1), End: date(2026, 3, 31), Amount: 150, Tier: "season"},
			{Start: date(2026, 5, 1), End: date(2026, 5, 10), Amount: 90, Tier: "promo"},
			{Start: date(2027, 6, 1), End: date(2027, 6, 10), Amount: 500},
		},
		MaxOccupants: 4,
		AllowsAdults: true,
		Amenities:    []string{"wifi", "pool", "wifi", ""},
		Fields: []SourceField{
			{Name: "bedrooms", Kind: FieldNumber, Raw: "3"},
			{Name: "sea_view", Kind: FieldBool, Raw: "true"},
			{Name: "floor", Kind: FieldNumber, Raw: "ground"},
		},
		Images:        []string{"a.jpg", "b.jpg", "c.jpg"},
		AverageRating: 4.5,
		ReviewCount:   12,
	}
}

func TestBuild_Projection(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	doc := Build(sampleSource(), BuildOptions{Now: now, AvailabilityMonths: 1, PricingMonths: 12, MaxImages: 2})

	if doc.City != "sana'a" {
		t.Errorf("City = %q", doc.City)
	}
	if doc.Currency != "YER" {
		t.Errorf("Currency = %q", doc.Currency)
	}
	if doc.Price != 150 || doc.PriceType != "season" {
		t.Errorf("Price = %v/%s, want 150/season", doc.Price, doc.PriceType)
	}
	if doc.MinPrice != 90 || doc.MaxPrice != 150 {
		t.Errorf("range = [%v,%v], want [90,150]", doc.MinPrice, doc.MaxPrice)
	}
	if len(doc.Amenities) != 2 || doc.Amenities[0] != "pool" || doc.Amenities[1] != "wifi" {
		t.Errorf("Amenities = %v", doc.Amenities)
	}
	if !doc.HasAmenity("wifi") || doc.HasAmenity("gym") {
		t.Error("HasAmenity mismatch")
	}
	if v := doc.Fields["bedrooms"]; v.Kind != FieldNumber || v.Number != 3 {
		t.Errorf("bedrooms = %+v", v)
	}
	if v := doc.Fields["sea_view"]; v.Kind != FieldBool || !v.Bool {
		t.Errorf("sea_view = %+v", v)
	}
	if v := doc.Fields["floor"]; v.Kind != FieldText || v.Text != "ground" {
		t.Errorf("floor = %+v", v)
	}
	if len(doc.Images) != 2 {
		t.Errorf("Images = %v, want 2", doc.Images)
	}
	if doc.Availability.Days() != 31 {
		t.Errorf("availability days = %d", doc.Availability.Days())
	}
	if doc.ContentHash == 0 || doc.ContentHash != doc.ComputeHash() {
		t.Error("ContentHash not computed")
	}
}

func TestBuild_HashIgnoresBookkeeping(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	opts := BuildOptions{Now: now, AvailabilityMonths: 1, PricingMonths: 12}
	a := Build(sampleSource(), opts)
	opts.Now = now.Add(time.Hour)
	b := Build(sampleSource(), opts)
	b.Version = 7

	if a.ContentHash != b.ComputeHash() {
		t.Error("hash must not depend on UpdatedAt or Version")
	}

	src := sampleSource()
	src.BasePrice = 121
	src.PriceRules = nil
	c := Build(src, BuildOptions{Now: now, AvailabilityMonths: 1, PricingMonths: 12})
	if c.ContentHash == a.ContentHash {
		t.Error("hash must change when content changes")
	}
}

func TestSource_Eligible(t *testing.T) {
	src := sampleSource()
	if !src.Eligible() {
		t.Fatal("expected eligible")
	}
	for name, mut := range map[string]func(*Source){
		"inactive":         func(s *Source) { s.UnitActive = false },
		"deleted":          func(s *Source) { s.UnitDeleted = true },
		"not approved":     func(s *Source) { s.PropertyApproved = false },
		"property deleted": func(s *Source) { s.PropertyDeleted = true },
	} {
		s := sampleSource()
		mut(s)
		if s.Eligible() {
			t.Errorf("%s: expected ineligible", name)
		}
	}
}
