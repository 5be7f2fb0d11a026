package geospatial

import (
	"math"

	"github.com/samirrijal/roadcap/internal/core/domain"
)

const (
	earthRadiusKm = 6371.0

	metersPerDegreeLat = 111320.0
)

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b domain.GeoPoint) float64 {
	return latLng(a).Distance(latLng(b)).Radians() * earthRadiusMeters
}

// BoundingBox returns a box that contains every point within radiusMeters of p.
// Near the poles the longitude span widens to the whole globe.
func BoundingBox(p domain.GeoPoint, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / metersPerDegreeLat

	lonDelta := 180.0
	if c := math.Cos(toRad(p.Lat)); c > 1e-6 {
		lonDelta = math.Min(radiusMeters/(metersPerDegreeLat*c), 180)
	}

	return math.Max(p.Lat-latDelta, -90), p.Lon - lonDelta, math.Min(p.Lat+latDelta, 90), p.Lon + lonDelta
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
