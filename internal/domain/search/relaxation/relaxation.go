// Package relaxation models the ordered search tiers and how each loosens the
// original filters.
package relaxation

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/staysearch/internal/domain/search/request"
)

// Level names a relaxation tier.
type Level int

// Tiers in execution order.
const (
	None Level = iota
	Minor
	Moderate
	Major
	Alternative
)

func (l Level) String() string {
	switch l {
	case None:
		return "none"
	case Minor:
		return "minor"
	case Moderate:
		return "moderate"
	case Major:
		return "major"
	case Alternative:
		return "alternative"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Settings are the per-tier magnitudes.
type Settings struct {
	EnableFallback    bool
	EnableMinor       bool
	EnableModerate    bool
	EnableMajor       bool
	EnableAlternative bool
	PriceMinor        float64
	PriceModerate     float64
	PriceMajor        float64
	RadiusMinor       float64
	RadiusModerate    float64
	RadiusMajor       float64
	DateFlexDays      int
	AmenityRetention  float64
	RatingReduction   float64
	GuestReduction    int
}

// Tier is the cumulative, effective relaxation applied at one level.
// Zero values mean "not relaxed".
type Tier struct {
	Level            Level
	PriceFraction    float64
	RadiusMultiplier float64
	// AmenityRetention is the kept share of required amenities; 0 keeps all.
	AmenityRetention float64
	RatingReduction  float64
	GuestReduction   int
	DateFlexDays     int
	DropLocation     bool
	DropDates        bool
}

// Plan returns the tiers to execute in order. The first tier is always the
// strict one. Each later tier is at least as loose as the one before it.
func Plan(s Settings) []Tier {
	cur := Tier{Level: None, RadiusMultiplier: 1}
	tiers := []Tier{cur}
	if !s.EnableFallback {
		return tiers
	}

	if s.EnableMinor {
		cur.Level = Minor
		cur.PriceFraction = math.Max(cur.PriceFraction, s.PriceMinor)
		cur.RadiusMultiplier = math.Max(cur.RadiusMultiplier, s.RadiusMinor)
		cur.AmenityRetention = s.AmenityRetention
		cur.RatingReduction = math.Max(cur.RatingReduction, s.RatingReduction)
		tiers = append(tiers, cur)
	}
	if s.EnableModerate {
		cur.Level = Moderate
		cur.PriceFraction = math.Max(cur.PriceFraction, s.PriceModerate)
		cur.RadiusMultiplier = math.Max(cur.RadiusMultiplier, s.RadiusModerate)
		cur.GuestReduction = max(cur.GuestReduction, s.GuestReduction)
		tiers = append(tiers, cur)
	}
	if s.EnableMajor {
		cur.Level = Major
		cur.PriceFraction = math.Max(cur.PriceFraction, s.PriceMajor)
		cur.RadiusMultiplier = math.Max(cur.RadiusMultiplier, s.RadiusMajor)
		cur.DateFlexDays = max(cur.DateFlexDays, s.DateFlexDays)
		tiers = append(tiers, cur)
	}
	if s.EnableAlternative {
		cur.Level = Alternative
		cur.DropLocation = true
		cur.DropDates = true
		tiers = append(tiers, cur)
	}
	return tiers
}

// Apply loosens a copy of the original filters by the tier's magnitudes and
// describes every change it made.
func Apply(original request.Filters, t Tier) (request.Filters, []string) {
	f := original.Clone()
	var notes []string

	if t.PriceFraction > 0 && (f.MinPrice != nil || f.MaxPrice != nil) {
		if f.MinPrice != nil {
			*f.MinPrice = math.Max(0, *f.MinPrice*(1-t.PriceFraction))
		}
		if f.MaxPrice != nil {
			*f.MaxPrice *= 1 + t.PriceFraction
		}
		notes = append(notes, fmt.Sprintf("price range widened by %.0f%%%s", t.PriceFraction*100, priceBounds(f)))
	}

	if t.DropLocation {
		if f.City != "" || f.Geo != nil {
			notes = append(notes, "location filter removed")
		}
		f.City = ""
		f.Geo = nil
	} else if f.Geo != nil && t.RadiusMultiplier > 1 {
		f.Geo.RadiusKm *= t.RadiusMultiplier
		notes = append(notes, fmt.Sprintf("search radius extended to %.1f km", f.Geo.RadiusKm))
	}

	if t.AmenityRetention > 0 && len(f.Amenities) > 0 {
		kept := RetainAmenities(f.Amenities, t.AmenityRetention)
		if len(kept) < len(f.Amenities) {
			notes = append(notes, fmt.Sprintf("required amenities reduced from %d to %d", len(f.Amenities), len(kept)))
		}
		f.Amenities = kept
	}

	if t.RatingReduction > 0 && f.MinRating != nil && *f.MinRating > 0 {
		*f.MinRating = math.Max(0, *f.MinRating-t.RatingReduction)
		notes = append(notes, fmt.Sprintf("minimum rating lowered to %.1f", *f.MinRating))
	}

	if t.GuestReduction > 0 && f.Guests > 1 {
		f.Guests = max(1, f.Guests-t.GuestReduction)
		notes = append(notes, fmt.Sprintf("guest count lowered to %d", f.Guests))
	}

	if t.DropDates {
		if f.Dates != nil {
			notes = append(notes, "date filter removed")
		}
		f.Dates = nil
		f.FlexDays = 0
	} else if t.DateFlexDays > f.FlexDays && f.Dates != nil {
		f.FlexDays = t.DateFlexDays
		notes = append(notes, fmt.Sprintf("dates may shift by up to %d days", f.FlexDays))
	}

	return f, notes
}

// RetainAmenities keeps the ⌈ratio·n⌉ highest-weight amenities. Equal weights
// keep request order, and the result preserves request order.
func RetainAmenities(in []request.Amenity, ratio float64) []request.Amenity {
	n := len(in)
	keep := int(math.Ceil(ratio*float64(n) - 1e-9))
	keep = min(max(keep, 1), n)
	if keep == n {
		return append([]request.Amenity(nil), in...)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return in[idx[a]].Weight > in[idx[b]].Weight })
	top := idx[:keep]
	sort.Ints(top)

	out := make([]request.Amenity, 0, keep)
	for _, i := range top {
		out = append(out, in[i])
	}
	return out
}

func priceBounds(f request.Filters) string {
	switch {
	case f.MinPrice != nil && f.MaxPrice != nil:
		return fmt.Sprintf(" (%.2f to %.2f)", *f.MinPrice, *f.MaxPrice)
	case f.MinPrice != nil:
		return fmt.Sprintf(" (from %.2f)", *f.MinPrice)
	default:
		return fmt.Sprintf(" (up to %.2f)", *f.MaxPrice)
	}
}
