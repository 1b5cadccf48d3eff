package unit

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// BuildOptions bounds the horizons materialized into a document.
type BuildOptions struct {
	Now                time.Time
	AvailabilityMonths int
	PricingMonths      int
	MaxImages          int
}

// Build projects a source record into a search document.
// The caller decides eligibility; Build never fails.
func Build(src *Source, opts BuildOptions) *Document {
	now := opts.Now.UTC()
	doc := &Document{
		UnitID:         src.UnitID,
		PropertyID:     src.PropertyID,
		UnitTypeID:     src.UnitTypeID,
		PropertyTypeID: src.PropertyTypeID,
		City:           NormalizeCity(src.City),
		Latitude:       src.Latitude,
		Longitude:      src.Longitude,
		Currency:       strings.ToUpper(src.Currency),
		MaxOccupants:   src.MaxOccupants,
		AllowsAdults:   src.AllowsAdults,
		AllowsChildren: src.AllowsChildren,
		MultiDay:       src.MultiDay,
		Approved:       src.PropertyApproved,
		AverageRating:  src.AverageRating,
		ReviewCount:    src.ReviewCount,
		UpdatedAt:      now,
	}

	doc.Price, doc.PriceType = effectivePrice(src, now)
	doc.MinPrice, doc.MaxPrice = priceRange(src, now, opts.PricingMonths)

	doc.Amenities = dedupSorted(src.Amenities)
	doc.Fields = parseFields(src.Fields)
	doc.Availability = NewAvailability(now, HorizonDays(now, opts.AvailabilityMonths), src.Periods)

	images := src.Images
	if opts.MaxImages > 0 && len(images) > opts.MaxImages {
		images = images[:opts.MaxImages]
	}
	doc.Images = append([]string(nil), images...)

	doc.ContentHash = doc.ComputeHash()
	return doc
}

// NormalizeCity lowercases and trims a city name for exact-match indexing.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// effectivePrice picks the rule covering now; the latest-starting rule wins.
func effectivePrice(src *Source, now time.Time) (float64, string) {
	price, tier := src.BasePrice, "base"
	var best time.Time
	for _, r := range src.PriceRules {
		if now.Before(r.Start) || !now.Before(r.End) {
			continue
		}
		if best.IsZero() || r.Start.After(best) {
			best = r.Start
			price = r.Amount
			tier = r.Tier
			if tier == "" {
				tier = "rule"
			}
		}
	}
	return price, tier
}

func priceRange(src *Source, now time.Time, months int) (float64, float64) {
	lo, hi := src.BasePrice, src.BasePrice
	end := now.AddDate(0, months, 0)
	for _, r := range src.PriceRules {
		if !r.Start.Before(end) || !r.End.After(now) {
			continue
		}
		if r.Amount < lo {
			lo = r.Amount
		}
		if r.Amount > hi {
			hi = r.Amount
		}
	}
	return lo, hi
}

func dedupSorted(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func parseFields(in []SourceField) map[string]FieldValue {
	out := make(map[string]FieldValue, len(in))
	for _, f := range in {
		if f.Name == "" {
			continue
		}
		out[f.Name] = ParseField(f.Kind, f.Raw)
	}
	return out
}

// ParseField converts a raw value. Values that fail to parse as their
// declared kind degrade to text.
func ParseField(kind FieldKind, raw string) FieldValue {
	switch kind {
	case FieldNumber:
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return FieldValue{Kind: FieldNumber, Number: n}
		}
	case FieldBool:
		if b, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			return FieldValue{Kind: FieldBool, Bool: b}
		}
	}
	return FieldValue{Kind: FieldText, Text: raw}
}
