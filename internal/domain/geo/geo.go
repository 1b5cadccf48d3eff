// Package geo holds the great-circle math shared by the index store and the query engine.
package geo

import "math"

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Valid reports whether latitude is in [-90,90] and longitude in [-180,180].
func (p Point) Valid() bool {
	return ValidateCoordinates(p.Lat, p.Lon)
}

// DistanceKm returns the great-circle distance to q in kilometers.
func (p Point) DistanceKm(q Point) float64 {
	return HaversineKm(p.Lat, p.Lon, q.Lat, q.Lon)
}

// HaversineKm returns the great-circle distance in kilometers between two points
// specified by latitude and longitude in degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// WithinRadius reports whether q lies inside the circle of radiusKm around center.
func WithinRadius(center, q Point, radiusKm float64) bool {
	return center.DistanceKm(q) <= radiusKm
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
