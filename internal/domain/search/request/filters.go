package request

import "time"

// Geo is a circle around a point.
type Geo struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// Amenity is a required amenity; Weight ranks it when relaxation drops some.
type Amenity struct {
	ID     string
	Weight float64
}

// FieldFilter constrains a dynamic field by exact value or numeric range.
type FieldFilter struct {
	Name   string
	Equals *string
	Min    *float64
	Max    *float64
}

// Numeric reports whether the filter is a range filter.
func (f FieldFilter) Numeric() bool { return f.Min != nil || f.Max != nil }

// Dates is a stay [CheckIn, CheckOut).
type Dates struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Nights returns the stay length.
func (d Dates) Nights() int {
	return int(d.CheckOut.Sub(d.CheckIn).Hours() / 24)
}

// Filters is the structured part of a search. Zero values mean "no constraint".
type Filters struct {
	City      string
	Geo       *Geo
	MinPrice  *float64
	MaxPrice  *float64
	Currency  string
	Dates     *Dates
	FlexDays  int
	Guests    int
	Amenities []Amenity
	Fields    []FieldFilter
	MinRating *float64

	PropertyTypeID string
	UnitTypeID     string
}

// Clone returns a deep copy safe to relax independently.
func (f Filters) Clone() Filters {
	out := f
	if f.Geo != nil {
		g := *f.Geo
		out.Geo = &g
	}
	out.MinPrice = clonePtr(f.MinPrice)
	out.MaxPrice = clonePtr(f.MaxPrice)
	out.MinRating = clonePtr(f.MinRating)
	if f.Dates != nil {
		d := *f.Dates
		out.Dates = &d
	}
	out.Amenities = append([]Amenity(nil), f.Amenities...)
	if f.Fields != nil {
		out.Fields = make([]FieldFilter, len(f.Fields))
		for i, ff := range f.Fields {
			out.Fields[i] = FieldFilter{
				Name:   ff.Name,
				Equals: clonePtr(ff.Equals),
				Min:    clonePtr(ff.Min),
				Max:    clonePtr(ff.Max),
			}
		}
	}
	return out
}

// AmenityIDs returns the required amenity ids in request order.
func (f Filters) AmenityIDs() []string {
	ids := make([]string, len(f.Amenities))
	for i, a := range f.Amenities {
		ids[i] = a.ID
	}
	return ids
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
