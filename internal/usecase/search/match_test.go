package search

import (
	"testing"
	"time"

	"github.com/kailas-cloud/staysearch/internal/domain/search/request"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

func matchDoc() *unit.Document {
	d := priced("U1", 120)
	d.Amenities = []string{"parking", "wifi"}
	d.Fields = map[string]unit.FieldValue{
		"bedrooms": {Kind: unit.FieldNumber, Number: 2},
		"view":     {Kind: unit.FieldText, Text: "Mountain"},
	}
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	d.Availability = unit.NewAvailability(from, 30, []unit.Period{{
		Start:  from.AddDate(0, 0, 5),
		End:    from.AddDate(0, 0, 7),
		Status: unit.StatusBooked,
	}})
	return d
}

func stay(fromDay, nights int) *request.Dates {
	in := time.Date(2026, 3, 10+fromDay, 0, 0, 0, 0, time.UTC)
	return &request.Dates{CheckIn: in, CheckOut: in.AddDate(0, 0, nights)}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*unit.Document)
		f      request.Filters
		want   bool
	}{
		{name: "no filters", f: request.Filters{}, want: true},
		{name: "unapproved", mutate: func(d *unit.Document) { d.Approved = false }, want: false},
		{name: "city", f: request.Filters{City: "sana'a"}, want: true},
		{name: "other city", f: request.Filters{City: "aden"}, want: false},
		{name: "inside radius", f: request.Filters{Geo: &request.Geo{Lat: 15.37, Lon: 44.19, RadiusKm: 1}}, want: true},
		{name: "outside radius", f: request.Filters{Geo: &request.Geo{Lat: 12.78, Lon: 45.03, RadiusKm: 10}}, want: false},
		{name: "price in range", f: request.Filters{MinPrice: ptr(100.0), MaxPrice: ptr(120.0)}, want: true},
		{name: "price above max", f: request.Filters{MaxPrice: ptr(119.99)}, want: false},
		{name: "price below min", f: request.Filters{MinPrice: ptr(121.0)}, want: false},
		{name: "currency mismatch", f: request.Filters{Currency: "EUR"}, want: false},
		{name: "unit type", f: request.Filters{UnitTypeID: "ut-villa"}, want: false},
		{name: "property type", f: request.Filters{PropertyTypeID: "pt-hotel"}, want: true},
		{name: "all amenities", f: request.Filters{Amenities: []request.Amenity{{ID: "wifi"}, {ID: "parking"}}}, want: true},
		{name: "missing amenity", f: request.Filters{Amenities: []request.Amenity{{ID: "pool"}}}, want: false},
		{name: "guests fit", f: request.Filters{Guests: 2}, want: true},
		{name: "too many guests", f: request.Filters{Guests: 3}, want: false},
		{
			name:   "adults not allowed",
			mutate: func(d *unit.Document) { d.AllowsAdults = false },
			f:      request.Filters{Guests: 1},
			want:   false,
		},
		{name: "rating", f: request.Filters{MinRating: ptr(4.0)}, want: true},
		{name: "rating too low", f: request.Filters{MinRating: ptr(4.5)}, want: false},
		{name: "free dates", f: request.Filters{Dates: stay(1, 3)}, want: true},
		{name: "booked dates", f: request.Filters{Dates: stay(4, 2)}, want: false},
		{name: "booked dates with flex", f: request.Filters{Dates: stay(4, 2), FlexDays: 3}, want: true},
		{
			name:   "multi night needs multi day",
			mutate: func(d *unit.Document) { d.MultiDay = false },
			f:      request.Filters{Dates: stay(1, 2)},
			want:   false,
		},
		{
			name:   "single night without multi day",
			mutate: func(d *unit.Document) { d.MultiDay = false },
			f:      request.Filters{Dates: stay(1, 1)},
			want:   true,
		},
		{name: "field equals folds case", f: request.Filters{Fields: []request.FieldFilter{{Name: "view", Equals: ptr("mountain")}}}, want: true},
		{name: "field equals mismatch", f: request.Filters{Fields: []request.FieldFilter{{Name: "view", Equals: ptr("sea")}}}, want: false},
		{name: "numeric field range", f: request.Filters{Fields: []request.FieldFilter{{Name: "bedrooms", Min: ptr(2.0), Max: ptr(3.0)}}}, want: true},
		{name: "numeric field below", f: request.Filters{Fields: []request.FieldFilter{{Name: "bedrooms", Min: ptr(3.0)}}}, want: false},
		{name: "range on text field", f: request.Filters{Fields: []request.FieldFilter{{Name: "view", Min: ptr(1.0)}}}, want: false},
		{name: "missing field", f: request.Filters{Fields: []request.FieldFilter{{Name: "floor", Equals: ptr("3")}}}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := matchDoc()
			if tc.mutate != nil {
				tc.mutate(d)
			}
			if got := Match(d, tc.f); got != tc.want {
				t.Errorf("Match() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNarrow(t *testing.T) {
	f := request.Filters{
		City:      "sana'a",
		Geo:       &request.Geo{Lat: 1, Lon: 2, RadiusKm: 3},
		MaxPrice:  ptr(200.0),
		Amenities: []request.Amenity{{ID: "wifi"}, {ID: "pool"}},
		Fields: []request.FieldFilter{
			{Name: "view", Equals: ptr("sea")},
			{Name: "bedrooms", Min: ptr(2.0)},
		},
	}
	q := narrow(f)
	if q.City != "sana'a" || q.Geo == nil || q.Geo.RadiusKm != 3 {
		t.Errorf("location not carried: %+v", q)
	}
	if q.MinPrice != nil || q.MaxPrice == nil || *q.MaxPrice != 200 {
		t.Errorf("price bounds not carried: %+v", q)
	}
	if len(q.Amenities) != 2 {
		t.Errorf("expected 2 amenities, got %v", q.Amenities)
	}
	if len(q.Numbers) != 1 || q.Numbers[0].Field != "bedrooms" {
		t.Errorf("expected only the numeric field to narrow, got %+v", q.Numbers)
	}
}
