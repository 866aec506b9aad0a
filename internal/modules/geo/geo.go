// Package geo contains pure geographic computation helpers.
package geo

import (
	"errors"
	"math"
	"sort"

	"ridewave/internal/types"
)

const earthRadiusKm = 6371.0

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Validate rejects non-finite and out-of-range coordinates.
func Validate(p types.Point) error {
	if !isFinite(p.Lat) || !isFinite(p.Lng) {
		return ErrInvalidCoordinate
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// DistanceKm returns the great-circle distance in kilometres between a and b.
func DistanceKm(a, b types.Point) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}
	return haversineKm(a.Lat, a.Lng, b.Lat, b.Lng), nil
}

// WithinRadius reports whether b lies within radiusMeters of a. Invalid
// coordinates are never within any radius.
func WithinRadius(a, b types.Point, radiusMeters float64) bool {
	d, err := DistanceKm(a, b)
	if err != nil {
		return false
	}
	return d*1000 <= radiusMeters
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SortByDistance orders items closest first. Equal distances fall back to
// the key so the order is deterministic.
func SortByDistance[T any](items []T, dist func(T) float64, key func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := dist(items[i]), dist(items[j])
		if di != dj {
			return di < dj
		}
		return key(items[i]) < key(items[j])
	})
}
