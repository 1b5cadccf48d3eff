package unitindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/staysearch/internal/domain/search/candidate"
)

// Candidates returns ids of units matching q in ascending order.
func (r *Repo) Candidates(ctx context.Context, gen int64, q candidate.Query) ([]string, error) {
	gk := r.keys.Gen(gen)

	sets := []string{gk.All()}
	if q.City != "" {
		sets = append(sets, gk.City(q.City))
	}
	if q.UnitTypeID != "" {
		sets = append(sets, gk.UnitType(q.UnitTypeID))
	}
	if q.PropertyTypeID != "" {
		sets = append(sets, gk.PropertyType(q.PropertyTypeID))
	}
	for _, a := range q.Amenities {
		sets = append(sets, gk.Amenity(a))
	}

	var ids []string
	var err error
	if len(sets) == 1 {
		ids, err = r.store.SMembers(ctx, sets[0])
	} else {
		ids, err = r.store.SInter(ctx, sets...)
	}
	if err != nil {
		return nil, fmt.Errorf("candidate sets gen %d: %w", gen, err)
	}
	acc := toSet(ids)

	if q.MinPrice != nil || q.MaxPrice != nil {
		lo, hi := bounds(q.MinPrice, q.MaxPrice)
		hits, err := r.store.ZRangeByScore(ctx, gk.Price(), lo, hi)
		if err != nil {
			return nil, fmt.Errorf("price range gen %d: %w", gen, err)
		}
		acc = intersect(acc, hits)
	}

	for _, n := range q.Numbers {
		if len(acc) == 0 {
			break
		}
		lo, hi := bounds(n.Min, n.Max)
		hits, err := r.store.ZRangeByScore(ctx, gk.Num(n.Field), lo, hi)
		if err != nil {
			return nil, fmt.Errorf("field %s range gen %d: %w", n.Field, gen, err)
		}
		acc = intersect(acc, hits)
	}

	if q.Geo != nil && len(acc) > 0 {
		hits, err := r.store.GeoRadius(ctx, gk.Geo(), q.Geo.Lon, q.Geo.Lat, q.Geo.RadiusKm)
		if err != nil {
			return nil, fmt.Errorf("geo radius gen %d: %w", gen, err)
		}
		acc = intersect(acc, hits)
	}

	out := make([]string, 0, len(acc))
	for id := range acc {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func bounds(lo, hi *float64) (float64, float64) {
	l, h := math.Inf(-1), math.Inf(1)
	if lo != nil {
		l = *lo
	}
	if hi != nil {
		h = *hi
	}
	return l, h
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func intersect(acc map[string]struct{}, ids []string) map[string]struct{} {
	out := make(map[string]struct{}, min(len(acc), len(ids)))
	for _, id := range ids {
		if _, ok := acc[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}
