package routeview

import "github.com/samirrijal/roadcap/internal/core/domain"

// Fallback interpolation fractions for the synthesized interior points.
var fallbackFractions = [...]float64{0.3, 0.6}

// RouteInput is everything a view derives its state from.
//
// Route is compared by identity: callers that want an unchanged route to be
// recognised as such must pass the same pointer again.
type RouteInput struct {
	Route         *domain.Route
	Unavailable   bool
	FallbackStart *domain.GeoPoint
	FallbackEnd   *domain.GeoPoint

	// Regions, when set, supplies precomputed road segments (a booking view)
	// and takes precedence over Route.
	Regions []domain.RegionSegments

	// Endpoint addresses for booking views. Routes carry their own.
	StartAddress string
	EndAddress   string
}

// InputKind names the source a view's geometry came from.
type InputKind string

const (
	InputNone     InputKind = "none"
	InputRoute    InputKind = "route"
	InputFallback InputKind = "fallback"
	InputBooking  InputKind = "booking"
)

// Kind reports which branch of the input will drive the rebuild.
func (in RouteInput) Kind() InputKind {
	switch {
	case len(in.Regions) > 0:
		return InputBooking
	case in.Route != nil:
		return InputRoute
	case in.Unavailable && in.FallbackStart != nil && in.FallbackEnd != nil:
		return InputFallback
	default:
		return InputNone
	}
}

// differs reports whether in must trigger a rebuild relative to prev.
func (in RouteInput) differs(prev RouteInput) bool {
	if in.Route != prev.Route || in.Unavailable != prev.Unavailable {
		return true
	}
	if in.StartAddress != prev.StartAddress || in.EndAddress != prev.EndAddress {
		return true
	}
	if !samePoint(in.FallbackStart, prev.FallbackStart) || !samePoint(in.FallbackEnd, prev.FallbackEnd) {
		return true
	}
	return !sameRegions(in.Regions, prev.Regions)
}

func samePoint(a, b *domain.GeoPoint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameRegions(a, b []domain.RegionSegments) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Region != b[i].Region || len(a[i].Segments) != len(b[i].Segments) {
			return false
		}
		for j := range a[i].Segments {
			x, y := a[i].Segments[j], b[i].Segments[j]
			if x.ID != y.ID || x.CurrentLoad != y.CurrentLoad || x.Capacity != y.Capacity || !domain.SamePath(x.Path, y.Path) {
				return false
			}
		}
	}
	return true
}

// FallbackPath synthesizes a four-point path from start to end with interior
// points at 30% and 60% of the way.
func FallbackPath(start, end domain.GeoPoint) []domain.GeoPoint {
	path := make([]domain.GeoPoint, 0, len(fallbackFractions)+2)
	path = append(path, start)
	for _, f := range fallbackFractions {
		path = append(path, start.Lerp(end, f))
	}
	return append(path, end)
}
