package staysearch

import (
	"time"

	"github.com/kailas-cloud/staysearch/internal/domain/search/request"
	"github.com/kailas-cloud/staysearch/internal/domain/search/result"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
	"github.com/kailas-cloud/staysearch/internal/usecase/indexing"
)

// Query describes a search. Zero values mean "no constraint".
type Query struct {
	City     string
	Near     *Circle
	MinPrice *float64
	MaxPrice *float64
	Currency string

	// CheckIn and CheckOut must be set together. Only the date part is used.
	CheckIn  time.Time
	CheckOut time.Time
	FlexDays int

	Guests    int
	Amenities []Amenity
	Fields    []FieldFilter
	MinRating *float64

	PropertyTypeID string
	UnitTypeID     string

	Page     int // 1-based, default 1
	PageSize int // default from WithPageSize
}

// Circle is a geographic search area.
type Circle struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// Amenity is a required amenity. A higher Weight keeps it longer when the
// search has to drop amenities.
type Amenity struct {
	ID     string
	Weight float64
}

// FieldFilter matches a dynamic unit field by exact value or numeric range.
type FieldFilter struct {
	Name   string
	Equals *string
	Min    *float64
	Max    *float64
}

// Unit is one search hit.
type Unit struct {
	ID             string
	PropertyID     string
	UnitTypeID     string
	PropertyTypeID string
	City           string
	Lat            float64
	Lon            float64

	Price     float64
	MinPrice  float64
	MaxPrice  float64
	Currency  string
	PriceType string

	MaxOccupants int
	Amenities    []string
	Fields       map[string]any
	Rating       float64
	ReviewCount  int
	Images       []string

	Score float64
}

// SearchResult is one page of hits.
type SearchResult struct {
	Items    []Unit
	Total    int
	Page     int
	PageSize int
	// RelaxationLevel is "none" when the filters were applied as given.
	RelaxationLevel string
	RelaxationInfo  []string
}

// Relaxed reports whether any filter was loosened.
func (r SearchResult) Relaxed() bool { return r.RelaxationLevel != "none" }

// RebuildReport summarizes a completed full rebuild.
type RebuildReport struct {
	Generation         int64
	PreviousGeneration int64
	Indexed            int64
	Skipped            int64
	Pages              int
	Duration           time.Duration
}

// Float returns a pointer to v, for optional query bounds.
func Float(v float64) *float64 { return &v }

// String returns a pointer to v, for FieldFilter.Equals.
func String(v string) *string { return &v }

func (q *Query) filters() request.Filters {
	f := request.Filters{
		City:           q.City,
		MinPrice:       q.MinPrice,
		MaxPrice:       q.MaxPrice,
		Currency:       q.Currency,
		FlexDays:       q.FlexDays,
		Guests:         q.Guests,
		MinRating:      q.MinRating,
		PropertyTypeID: q.PropertyTypeID,
		UnitTypeID:     q.UnitTypeID,
	}
	if q.Near != nil {
		f.Geo = &request.Geo{Lat: q.Near.Lat, Lon: q.Near.Lon, RadiusKm: q.Near.RadiusKm}
	}
	if !q.CheckIn.IsZero() || !q.CheckOut.IsZero() {
		f.Dates = &request.Dates{CheckIn: q.CheckIn, CheckOut: q.CheckOut}
	}
	for _, a := range q.Amenities {
		f.Amenities = append(f.Amenities, request.Amenity{ID: a.ID, Weight: a.Weight})
	}
	for _, ff := range q.Fields {
		f.Fields = append(f.Fields, request.FieldFilter{Name: ff.Name, Equals: ff.Equals, Min: ff.Min, Max: ff.Max})
	}
	return f
}

func pageFromDomain(p *result.Page) SearchResult {
	items := p.Items()
	out := SearchResult{
		Items:           make([]Unit, 0, len(items)),
		Total:           p.Total(),
		Page:            p.Page(),
		PageSize:        p.PageSize(),
		RelaxationLevel: p.Level().String(),
		RelaxationInfo:  p.Explanations(),
	}
	for i := range items {
		out.Items = append(out.Items, unitFromDomain(items[i].Document(), items[i].Score()))
	}
	return out
}

func unitFromDomain(d *unit.Document, score float64) Unit {
	u := Unit{
		ID:             d.UnitID,
		PropertyID:     d.PropertyID,
		UnitTypeID:     d.UnitTypeID,
		PropertyTypeID: d.PropertyTypeID,
		City:           d.City,
		Lat:            d.Latitude,
		Lon:            d.Longitude,
		Price:          d.Price,
		MinPrice:       d.MinPrice,
		MaxPrice:       d.MaxPrice,
		Currency:       d.Currency,
		PriceType:      d.PriceType,
		MaxOccupants:   d.MaxOccupants,
		Amenities:      d.Amenities,
		Rating:         d.AverageRating,
		ReviewCount:    d.ReviewCount,
		Images:         d.Images,
		Score:          score,
	}
	if len(d.Fields) > 0 {
		u.Fields = make(map[string]any, len(d.Fields))
		for k, v := range d.Fields {
			u.Fields[k] = v.Value()
		}
	}
	return u
}

func reportFromDomain(r indexing.RebuildReport) RebuildReport {
	return RebuildReport{
		Generation:         r.Generation,
		PreviousGeneration: r.PreviousGeneration,
		Indexed:            r.Indexed,
		Skipped:            r.Skipped,
		Pages:              r.Pages,
		Duration:           r.Duration,
	}
}
