package redis

import (
	"context"
	"math"
	"strconv"

	"github.com/kailas-cloud/staysearch/internal/db"
)

// SMembers returns all members of a set.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	cmd := s.b().Smembers().Key(key).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpSMembers, Err: err}
	}
	return members, nil
}

// SInter returns the intersection of the given sets.
func (s *Store) SInter(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmd := s.b().Sinter().Key(keys...).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpSInter, Err: err}
	}
	return members, nil
}

// ZRangeByScore returns members with lo <= score <= hi.
func (s *Store) ZRangeByScore(ctx context.Context, key string, lo, hi float64) ([]string, error) {
	cmd := s.b().Zrangebyscore().Key(key).Min(formatScore(lo)).Max(formatScore(hi)).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRangeByScore, Err: err}
	}
	return members, nil
}

// GeoRadius returns members within radiusKm of lon/lat, nearest first.
func (s *Store) GeoRadius(ctx context.Context, key string, lon, lat, radiusKm float64) ([]string, error) {
	cmd := s.b().Arbitrary("GEOSEARCH").Keys(key).Args(
		"FROMLONLAT", formatScore(lon), formatScore(lat),
		"BYRADIUS", formatScore(radiusKm), "km", "ASC",
	).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpGeoSearch, Err: err}
	}
	return members, nil
}

func formatScore(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
