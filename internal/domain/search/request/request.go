package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/geo"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// Pagination limits used when the caller passes none.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxRating       = 5.0
)

// Limits bounds page sizes.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

// DefaultLimits returns the package defaults.
func DefaultLimits() Limits {
	return Limits{DefaultPageSize: DefaultPageSize, MaxPageSize: MaxPageSize}
}

// Request is a validated search query.
type Request struct {
	filters  Filters
	page     int
	pageSize int
}

// New validates and normalizes search parameters. Page is 1-based.
func New(f Filters, page, pageSize int, lim Limits) (Request, error) {
	if err := validate(&f); err != nil {
		return Request{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = lim.DefaultPageSize
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if lim.MaxPageSize > 0 && pageSize > lim.MaxPageSize {
		pageSize = lim.MaxPageSize
	}
	if page > math.MaxInt/pageSize {
		return Request{}, fmt.Errorf("%w: page %d is out of range", domain.ErrInvalidQuery, page)
	}
	return Request{filters: f, page: page, pageSize: pageSize}, nil
}

// Filters returns a copy of the filters.
func (r *Request) Filters() Filters { return r.filters.Clone() }

// Page returns the 1-based page number.
func (r *Request) Page() int { return r.page }

// PageSize returns the number of items per page.
func (r *Request) PageSize() int { return r.pageSize }

// Offset returns the index of the first item of the page.
func (r *Request) Offset() int { return (r.page - 1) * r.pageSize }

func validate(f *Filters) error {
	f.City = unit.NormalizeCity(f.City)
	f.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))

	if f.Geo != nil {
		if !geo.ValidateCoordinates(f.Geo.Lat, f.Geo.Lon) {
			return fmt.Errorf("invalid coordinates %f,%f", f.Geo.Lat, f.Geo.Lon)
		}
		if f.Geo.RadiusKm <= 0 {
			return fmt.Errorf("radius_km must be positive")
		}
	}
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return fmt.Errorf("min_price must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("min_price %.2f exceeds max_price %.2f", *f.MinPrice, *f.MaxPrice)
	}
	if f.Dates != nil {
		f.Dates.CheckIn = unit.Day(f.Dates.CheckIn)
		f.Dates.CheckOut = unit.Day(f.Dates.CheckOut)
		if !f.Dates.CheckOut.After(f.Dates.CheckIn) {
			return fmt.Errorf("check_out must be after check_in")
		}
	}
	if f.FlexDays < 0 {
		return fmt.Errorf("flex days must not be negative")
	}
	if f.Guests < 0 {
		return fmt.Errorf("guests must not be negative")
	}
	if f.MinRating != nil && (*f.MinRating < 0 || *f.MinRating > MaxRating) {
		return fmt.Errorf("min_rating must be between 0 and %.0f", MaxRating)
	}
	seen := make(map[string]struct{}, len(f.Amenities))
	for _, a := range f.Amenities {
		if a.ID == "" {
			return fmt.Errorf("amenity id is required")
		}
		if a.Weight < 0 {
			return fmt.Errorf("amenity %s: weight must not be negative", a.ID)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("amenity %s listed twice", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	for _, ff := range f.Fields {
		if ff.Name == "" {
			return fmt.Errorf("field name is required")
		}
		if ff.Equals == nil && !ff.Numeric() {
			return fmt.Errorf("field %s: equals, min or max is required", ff.Name)
		}
		if ff.Min != nil && ff.Max != nil && *ff.Min > *ff.Max {
			return fmt.Errorf("field %s: min exceeds max", ff.Name)
		}
	}
	return nil
}
