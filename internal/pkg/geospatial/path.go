package geospatial

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/golang/geo/s2"
	"github.com/samirrijal/roadcap/internal/core/domain"
)

const earthRadiusMeters = earthRadiusKm * 1000

func latLng(p domain.GeoPoint) s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

// PathLength returns the great-circle length of a path in meters.
func PathLength(path []domain.GeoPoint) float64 {
	if len(path) < 2 {
		return 0
	}
	lls := make([]s2.LatLng, len(path))
	for i, p := range path {
		lls[i] = latLng(p)
	}
	return s2.PolylineFromLatLngs(lls).Length().Radians() * earthRadiusMeters
}

// DistanceToPath returns the distance in meters from p to the closest point of path.
// It returns +Inf for an empty path.
func DistanceToPath(p domain.GeoPoint, path []domain.GeoPoint) float64 {
	switch len(path) {
	case 0:
		return math.Inf(1)
	case 1:
		return Distance(p, path[0])
	}

	x := s2.PointFromLatLng(latLng(p))
	best := math.Inf(1)
	for i := 0; i+1 < len(path); i++ {
		a := s2.PointFromLatLng(latLng(path[i]))
		b := s2.PointFromLatLng(latLng(path[i+1]))
		if d := s2.DistanceFromSegment(x, a, b).Radians(); d < best {
			best = d
		}
	}
	return best * earthRadiusMeters
}

// FormatDistance renders a distance the way routing providers label legs, e.g. "12.3 km".
func FormatDistance(meters float64) string {
	if meters <= 0 {
		return "Unknown"
	}
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return humanize.SIWithDigits(meters, 1, "m")
}

// FormatDuration renders a travel time, e.g. "1 hour 5 mins".
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "Unknown"
	}
	mins := int(math.Round(seconds / 60))
	if mins < 1 {
		mins = 1
	}
	days, mins := mins/(24*60), mins%(24*60)
	hours, mins := mins/60, mins%60

	switch {
	case days > 0:
		return plural(days, "day") + " " + plural(hours, "hour")
	case hours > 0:
		return plural(hours, "hour") + " " + plural(mins, "min")
	default:
		return plural(mins, "min")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ZoomForSpan picks a map zoom level that fits two points.
func ZoomForSpan(a, b domain.GeoPoint) int {
	km := Distance(a, b) / 1000
	switch {
	case km < 100:
		return 8
	case km < 500:
		return 6
	case km < 1000:
		return 5
	default:
		return 4
	}
}
