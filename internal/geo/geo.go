package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/example/taxi-dispatch/internal/models"
)

const (
	earthRadiusKm = 6371.0

	// DefaultSpeedKmh is the assumed average city speed used for ETAs.
	DefaultSpeedKmh = 30.0
)

// DistanceKm is the great-circle distance between two points in kilometres.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Between is DistanceKm for two coordinates.
func Between(a, b models.Coord) float64 {
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// ETAMinutes converts a distance into minutes at speedKmh, rounded to 2 decimals.
// A non-positive speed falls back to DefaultSpeedKmh.
func ETAMinutes(distanceKm, speedKmh float64) float64 {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	return Round2(distanceKm / speedKmh * 60)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseCoord parses "12.9716,77.5946" into a coordinate.
func ParseCoord(input string) (models.Coord, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return models.Coord{}, fmt.Errorf("invalid coordinate: %q", input)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return models.Coord{}, fmt.Errorf("invalid lat/lng: %q", input)
	}
	if !finite(lat) || !finite(lng) || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return models.Coord{}, fmt.Errorf("lat/lng out of range: %q", input)
	}
	return models.Coord{Lat: lat, Lng: lng}, nil
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
