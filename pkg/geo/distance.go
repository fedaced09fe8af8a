package geo

import (
	"math"
	"time"
)

const (
	EarthRadiusKm     = 6371.0
	EarthRadiusMeters = EarthRadiusKm * 1000
)

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// HaversineKm calculates the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := degreesToRadians(lat1)
	lat2Rad := degreesToRadians(lat2)
	deltaLat := lat2Rad - lat1Rad
	deltaLon := degreesToRadians(lon2 - lon1)

	a := math.Pow(math.Sin(deltaLat/2), 2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Pow(math.Sin(deltaLon/2), 2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// HaversineMeters is HaversineKm in meters.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineKm(lat1, lon1, lat2, lon2) * 1000
}

// TravelTime estimates the time needed to cover distanceKm at speedKmh.
// A non-positive speed yields zero.
func TravelTime(distanceKm, speedKmh float64) time.Duration {
	if speedKmh <= 0 || distanceKm <= 0 {
		return 0
	}
	return time.Duration(distanceKm / speedKmh * float64(time.Hour))
}
