// Package geo contains pure geographic calculations used by itinerary
// planning: great-circle distance, travel-time estimates, and transport-mode
// suggestions. The package holds no state.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// averageSpeedKmh is the assumed average travel speed for time estimates.
const averageSpeedKmh = 60.0

// walkingThresholdKm is the distance under which walking is suggested.
// The boundary itself suggests a vehicle.
const walkingThresholdKm = 2.0

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks that the coordinate lies within valid WGS84 bounds.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return ErrInvalidLatitude
	}
	if c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// DistanceKm returns the haversine great-circle distance between two
// coordinates in kilometers. It is symmetric and zero for coincident points.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lng1 := a.Lng * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	lng2 := b.Lng * math.Pi / 180.0

	dLat := lat2 - lat1
	dLng := lng2 - lng1

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLng / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// EstimateTravelTime renders a display string for the time needed to cover
// distanceKm at the assumed average speed: "<minutes> min" under one hour,
// "<hours>h <minutes>m" otherwise, with minutes rounded.
func EstimateTravelTime(distanceKm float64) string {
	hours := distanceKm / averageSpeedKmh
	totalMinutes := int(math.Round(hours * 60))

	if totalMinutes < 60 {
		return fmt.Sprintf("%d min", totalMinutes)
	}

	h := totalMinutes / 60
	m := totalMinutes % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// SuggestTransportMode classifies a distance into a walking or vehicle label.
func SuggestTransportMode(distanceKm float64) string {
	if distanceKm < walkingThresholdKm {
		return "Walking"
	}
	return "Taxi or local bus"
}
