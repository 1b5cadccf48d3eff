// Package candidate describes the index-answerable part of a search.
package candidate

// Geo restricts candidates to a circle.
type Geo struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// NumRange restricts a numeric dynamic field. Nil bounds are open.
type NumRange struct {
	Field string
	Min   *float64
	Max   *float64
}

// Query narrows units with set intersections and score ranges. Everything
// not expressible here is evaluated in-process on the loaded documents.
type Query struct {
	City           string
	UnitTypeID     string
	PropertyTypeID string
	Amenities      []string
	MinPrice       *float64
	MaxPrice       *float64
	Geo            *Geo
	Numbers        []NumRange
}
