package geo

import (
	"fmt"
	"math"
)

// Mean Earth radius in kilometers (IUGG R1).
const earthRadiusKm = 6371.0088

// DefaultSpeedKmh is the assumed average city driving speed.
const DefaultSpeedKmh = 30

// Distance returns the great-circle distance in kilometers between two
// lat/lng points, using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// ETA estimates travel time for a distance at the given average speed.
// It returns whole minutes (floored) and a human-readable label.
func ETA(distanceKm, avgSpeedKmh float64) (int, string) {
	if avgSpeedKmh <= 0 {
		avgSpeedKmh = DefaultSpeedKmh
	}
	minutes := int(distanceKm / avgSpeedKmh * 60)

	if minutes < 60 {
		return minutes, fmt.Sprintf("%d min", minutes)
	}
	h := minutes / 60
	m := minutes % 60
	if m == 0 {
		return minutes, fmt.Sprintf("%d hr", h)
	}
	return minutes, fmt.Sprintf("%d hr %d min", h, m)
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
