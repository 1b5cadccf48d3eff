package unit

import "time"

// FieldKind is the declared type of a dynamic unit-type field.
type FieldKind string

const (
	// FieldText is a free-form or enumerated string field.
	FieldText FieldKind = "text"
	// FieldNumber is a numeric field, range-queryable in the index.
	FieldNumber FieldKind = "number"
	// FieldBool is a yes/no field.
	FieldBool FieldKind = "bool"
)

// SourceField is a raw dynamic field value as stored by the source of truth.
type SourceField struct {
	Name string
	Kind FieldKind
	Raw  string
}

// PriceRule is a dated price override [Start, End).
type PriceRule struct {
	Start  time.Time
	End    time.Time
	Amount float64
	Tier   string
}

// Source is the minimal projection of a unit read from the system of record.
// It is not the full aggregate: only what a search document needs.
type Source struct {
	UnitID         string
	PropertyID     string
	UnitTypeID     string
	PropertyTypeID string

	UnitActive       bool
	UnitDeleted      bool
	PropertyApproved bool
	PropertyDeleted  bool

	City      string
	Latitude  float64
	Longitude float64

	BasePrice  float64
	Currency   string
	PriceRules []PriceRule

	MaxOccupants   int
	AllowsAdults   bool
	AllowsChildren bool
	MultiDay       bool

	Amenities []string
	Fields    []SourceField
	Periods   []Period
	Images    []string

	AverageRating float64
	ReviewCount   int
}

// Eligible reports whether the unit may have a search document.
func (s *Source) Eligible() bool {
	return s.UnitActive && !s.UnitDeleted && s.PropertyApproved && !s.PropertyDeleted
}
