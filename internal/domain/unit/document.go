package unit

import (
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/staysearch/internal/domain/geo"
)

// FieldValue is a parsed dynamic field stored on a document.
type FieldValue struct {
	Kind   FieldKind
	Text   string
	Number float64
	Bool   bool
}

// String renders the value in its canonical text form.
func (v FieldValue) String() string {
	switch v.Kind {
	case FieldNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case FieldBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Text
	}
}

// Value returns the typed value as a plain Go value.
func (v FieldValue) Value() any {
	switch v.Kind {
	case FieldNumber:
		return v.Number
	case FieldBool:
		return v.Bool
	default:
		return v.Text
	}
}

// Document is the denormalized search projection of one unit.
type Document struct {
	UnitID         string
	PropertyID     string
	UnitTypeID     string
	PropertyTypeID string

	City      string
	Latitude  float64
	Longitude float64

	Price     float64
	MinPrice  float64
	MaxPrice  float64
	Currency  string
	PriceType string

	MaxOccupants   int
	AllowsAdults   bool
	AllowsChildren bool
	MultiDay       bool

	Amenities    []string
	Fields       map[string]FieldValue
	Availability Availability

	Approved      bool
	AverageRating float64
	ReviewCount   int
	Images        []string

	UpdatedAt   time.Time
	Version     int64
	ContentHash uint64
}

// Location returns the unit coordinates.
func (d *Document) Location() geo.Point {
	return geo.Point{Lat: d.Latitude, Lon: d.Longitude}
}

// HasAmenity reports whether the document lists the amenity.
func (d *Document) HasAmenity(id string) bool {
	i := sort.SearchStrings(d.Amenities, id)
	return i < len(d.Amenities) && d.Amenities[i] == id
}

// FieldNames returns the dynamic field names in sorted order.
func (d *Document) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ComputeHash fingerprints the content fields. Bookkeeping fields
// (UpdatedAt, Version, ContentHash) are excluded so an unchanged unit
// hashes the same across rebuilds.
func (d *Document) ComputeHash() uint64 {
	h := xxhash.New()
	w := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.WriteString("\x1f")
	}
	f := func(v float64) { w(strconv.FormatFloat(v, 'g', -1, 64)) }
	b := func(v bool) { w(strconv.FormatBool(v)) }

	w(d.UnitID)
	w(d.PropertyID)
	w(d.UnitTypeID)
	w(d.PropertyTypeID)
	w(d.City)
	f(d.Latitude)
	f(d.Longitude)
	f(d.Price)
	f(d.MinPrice)
	f(d.MaxPrice)
	w(d.Currency)
	w(d.PriceType)
	w(strconv.Itoa(d.MaxOccupants))
	b(d.AllowsAdults)
	b(d.AllowsChildren)
	b(d.MultiDay)
	for _, a := range d.Amenities {
		w(a)
	}
	w("|")
	for _, name := range d.FieldNames() {
		v := d.Fields[name]
		w(name)
		w(string(v.Kind))
		w(v.String())
	}
	w("|")
	w(d.Availability.From.Format(time.DateOnly))
	w(d.Availability.Markers)
	b(d.Approved)
	f(d.AverageRating)
	w(strconv.Itoa(d.ReviewCount))
	for _, img := range d.Images {
		w(img)
	}
	return h.Sum64()
}
