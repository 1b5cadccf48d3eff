package search

import (
	"strings"

	"github.com/kailas-cloud/staysearch/internal/domain/geo"
	"github.com/kailas-cloud/staysearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/staysearch/internal/domain/search/request"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// Match evaluates every filter predicate against a loaded document. Index
// narrowing is only a pre-filter: stale set members are rejected here.
func Match(d *unit.Document, f request.Filters) bool {
	if d == nil || !d.Approved {
		return false
	}
	if f.City != "" && d.City != f.City {
		return false
	}
	if f.Geo != nil && !geo.WithinRadius(geo.Point{Lat: f.Geo.Lat, Lon: f.Geo.Lon}, d.Location(), f.Geo.RadiusKm) {
		return false
	}
	if f.MinPrice != nil && d.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && d.Price > *f.MaxPrice {
		return false
	}
	if f.Currency != "" && d.Currency != f.Currency {
		return false
	}
	if f.UnitTypeID != "" && d.UnitTypeID != f.UnitTypeID {
		return false
	}
	if f.PropertyTypeID != "" && d.PropertyTypeID != f.PropertyTypeID {
		return false
	}
	for _, a := range f.Amenities {
		if !d.HasAmenity(a.ID) {
			return false
		}
	}
	if f.Guests > 0 && (d.MaxOccupants < f.Guests || !d.AllowsAdults) {
		return false
	}
	if f.MinRating != nil && d.AverageRating < *f.MinRating {
		return false
	}
	if f.Dates != nil {
		if f.Dates.Nights() > 1 && !d.MultiDay {
			return false
		}
		if !d.Availability.AvailableShifted(f.Dates.CheckIn, f.Dates.CheckOut, f.FlexDays) {
			return false
		}
	}
	for _, ff := range f.Fields {
		if !matchField(d, ff) {
			return false
		}
	}
	return true
}

func matchField(d *unit.Document, ff request.FieldFilter) bool {
	v, ok := d.Fields[ff.Name]
	if !ok {
		return false
	}
	if ff.Equals != nil && !strings.EqualFold(v.String(), *ff.Equals) {
		return false
	}
	if ff.Numeric() {
		if v.Kind != unit.FieldNumber {
			return false
		}
		if ff.Min != nil && v.Number < *ff.Min {
			return false
		}
		if ff.Max != nil && v.Number > *ff.Max {
			return false
		}
	}
	return true
}

// narrow maps filters onto the index-answerable query.
func narrow(f request.Filters) candidate.Query {
	q := candidate.Query{
		City:           f.City,
		UnitTypeID:     f.UnitTypeID,
		PropertyTypeID: f.PropertyTypeID,
		Amenities:      f.AmenityIDs(),
		MinPrice:       f.MinPrice,
		MaxPrice:       f.MaxPrice,
	}
	if f.Geo != nil {
		q.Geo = &candidate.Geo{Lat: f.Geo.Lat, Lon: f.Geo.Lon, RadiusKm: f.Geo.RadiusKm}
	}
	for _, ff := range f.Fields {
		if ff.Numeric() {
			q.Numbers = append(q.Numbers, candidate.NumRange{Field: ff.Name, Min: ff.Min, Max: ff.Max})
		}
	}
	return q
}
