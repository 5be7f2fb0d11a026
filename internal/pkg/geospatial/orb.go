package geospatial

import (
	"github.com/paulmach/orb"
	"github.com/samirrijal/roadcap/internal/core/domain"
)

// LineString converts a path to an orb line string (lon, lat order).
func LineString(path []domain.GeoPoint) orb.LineString {
	ls := make(orb.LineString, len(path))
	for i, p := range path {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return ls
}

// PathOf converts an orb line string back to a path.
func PathOf(ls orb.LineString) []domain.GeoPoint {
	path := make([]domain.GeoPoint, len(ls))
	for i, p := range ls {
		path[i] = domain.GeoPoint{Lat: p.Lat(), Lon: p.Lon()}
	}
	return path
}

// Point converts a coordinate to an orb point.
func Point(p domain.GeoPoint) orb.Point {
	return orb.Point{p.Lon, p.Lat}
}
