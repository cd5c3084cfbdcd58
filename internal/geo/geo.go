// Package geo provides great-circle distance math and a spatial index over
// the static intersection network.
package geo

import "math"

const earthRadiusKm = 6371.0

// Coordinate is a (latitude, longitude) pair in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// DistanceKm returns the haversine great-circle distance between two points
// in kilometers. Coordinates are not validated; garbage in, garbage out.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}
