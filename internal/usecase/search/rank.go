package search

import (
	"math"
	"sort"

	"github.com/kailas-cloud/staysearch/internal/domain/search/request"
	"github.com/kailas-cloud/staysearch/internal/domain/search/result"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// Relevance weights; they sum to 1.
const (
	weightPrice   = 0.40
	weightRating  = 0.35
	weightAmenity = 0.25

	maxRating = 5.0
)

// rank scores documents against the caller's original filters, so relaxed
// matches rank below the ones that fit what was asked. Ties break on
// price ascending, then unit id.
func rank(docs []*unit.Document, original request.Filters) []result.Item {
	items := make([]result.Item, len(docs))
	for i, d := range docs {
		items[i] = result.NewItem(d, relevance(d, original))
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		if a.Document().Price != b.Document().Price {
			return a.Document().Price < b.Document().Price
		}
		return a.UnitID() < b.UnitID()
	})
	return items
}

func relevance(d *unit.Document, f request.Filters) float64 {
	return weightPrice*priceProximity(d.Price, f.MinPrice, f.MaxPrice) +
		weightRating*math.Min(math.Max(d.AverageRating, 0)/maxRating, 1) +
		weightAmenity*amenityOverlap(d, f.Amenities)
}

// priceProximity is 1 inside the requested band's sweet spot and decays
// linearly with the relative distance from it.
func priceProximity(price float64, lo, hi *float64) float64 {
	switch {
	case lo != nil && hi != nil:
		mid := (*lo + *hi) / 2
		if mid <= 0 {
			return 1
		}
		return decay(math.Abs(price-mid) / mid)
	case hi != nil:
		if price <= *hi || *hi <= 0 {
			return 1
		}
		return decay((price - *hi) / *hi)
	case lo != nil:
		if price >= *lo || *lo <= 0 {
			return 1
		}
		return decay((*lo - price) / *lo)
	default:
		return 1
	}
}

func decay(rel float64) float64 {
	return math.Max(0, 1-rel)
}

// amenityOverlap is the weighted share of requested amenities the unit has.
// Zero weights count as 1.
func amenityOverlap(d *unit.Document, want []request.Amenity) float64 {
	if len(want) == 0 {
		return 1
	}
	var total, hit float64
	for _, a := range want {
		w := a.Weight
		if w <= 0 {
			w = 1
		}
		total += w
		if d.HasAmenity(a.ID) {
			hit += w
		}
	}
	return hit / total
}
