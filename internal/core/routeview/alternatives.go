package routeview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/core/ports"
	"github.com/samirrijal/roadcap/internal/pkg/geospatial"
)

// AlternativeRequest identifies one of the constrained alternative-route requests.
type AlternativeRequest string

const (
	RequestAvoidHighways AlternativeRequest = "avoid_highways"
	RequestAvoidTolls    AlternativeRequest = "avoid_tolls"
)

// AlternativeRequests lists the requests issued on every rebuild.
var AlternativeRequests = []AlternativeRequest{RequestAvoidHighways, RequestAvoidTolls}

// MaxAlternatives bounds the merged alternative list.
const MaxAlternatives = 2

// Degree offset applied to the midpoint of a synthesized alternative.
const fallbackOffset = 0.3

// Reconciler fetches alternative routes and merges them into a bounded list.
type Reconciler struct {
	provider ports.RoutingProvider
	capacity ports.CapacityLookup
}

// NewReconciler creates a reconciler. A nil capacity lookup uses the
// per-request default statuses.
func NewReconciler(provider ports.RoutingProvider, capacity ports.CapacityLookup) *Reconciler {
	return &Reconciler{provider: provider, capacity: capacity}
}

// Fetch issues one alternative request and converts the provider answer into
// candidate entries. An error means the request yields nothing.
func (r *Reconciler) Fetch(ctx context.Context, req AlternativeRequest, primary []domain.GeoPoint, start, end domain.GeoPoint) ([]domain.AlternativeRoute, error) {
	if r.provider == nil {
		return nil, fmt.Errorf("%s: no routing provider", req)
	}

	switch req {
	case RequestAvoidHighways:
		routes, err := r.provider.Routes(ctx, start, end, domain.RouteOptions{AvoidHighways: true, Alternatives: true})
		if err != nil && !errors.Is(err, domain.ErrRouteUnavailable) {
			return nil, fmt.Errorf("%s: %w", req, err)
		}
		entries := r.highwayEntries(ctx, routes, primary)
		if len(entries) == 0 {
			entries = append(entries, SyntheticAlternative(start, end))
		}
		return entries, nil

	case RequestAvoidTolls:
		routes, err := r.provider.Routes(ctx, start, end, domain.RouteOptions{AvoidTolls: true})
		if errors.Is(err, domain.ErrRouteUnavailable) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", req, err)
		}
		if len(routes) == 0 || len(routes[0].Path) == 0 || domain.SamePath(routes[0].Path, primary) {
			return nil, nil
		}
		return []domain.AlternativeRoute{r.entry(ctx, routes[0], domain.StatusLimited)}, nil
	}
	return nil, fmt.Errorf("unknown alternative request %q", req)
}

// highwayEntries keeps at most the first two routes, skipping the leading
// route when the provider returned several, incomplete routes and copies of
// the primary path.
func (r *Reconciler) highwayEntries(ctx context.Context, routes []domain.Route, primary []domain.GeoPoint) []domain.AlternativeRoute {
	var out []domain.AlternativeRoute
	n := min(MaxAlternatives, len(routes))
	for i := 0; i < n; i++ {
		if i == 0 && len(routes) > 1 {
			continue
		}
		if len(routes[i].Path) == 0 || domain.SamePath(routes[i].Path, primary) {
			continue
		}
		out = append(out, r.entry(ctx, routes[i], domain.StatusAvailable))
	}
	return out
}

func (r *Reconciler) entry(ctx context.Context, route domain.Route, status domain.CapacityStatus) domain.AlternativeRoute {
	if r.capacity != nil {
		load, err := r.capacity.PathLoad(ctx, route.Path)
		switch {
		case err == nil:
			status = load.Status()
		case !errors.Is(err, domain.ErrNoCapacityData):
			slog.Warn("alternative capacity lookup failed", "error", err)
		}
	}

	distance := route.DistanceMeters
	if distance <= 0 {
		distance = geospatial.PathLength(route.Path)
	}
	return domain.AlternativeRoute{
		Path:         route.Path,
		Status:       status,
		DistanceText: geospatial.FormatDistance(distance),
		DurationText: geospatial.FormatDuration(route.DurationSeconds),
	}
}

// SyntheticAlternative is the placeholder offered when the provider has no
// usable highway-free route: a dog-leg through the offset midpoint.
func SyntheticAlternative(start, end domain.GeoPoint) domain.AlternativeRoute {
	mid := start.Midpoint(end)
	return domain.AlternativeRoute{
		Path: []domain.GeoPoint{
			start,
			{Lat: mid.Lat + fallbackOffset, Lon: mid.Lon + fallbackOffset},
			end,
		},
		Status:       domain.StatusAvailable,
		DistanceText: "Unknown",
		DurationText: "Unknown",
	}
}

// MergeAlternatives builds the displayed list from per-request results.
// Highway-free entries come first; the toll-free entry only fills a free slot
// and never displaces or duplicates an entry. The result does not depend on
// which response arrived first.
func MergeAlternatives(highway, toll []domain.AlternativeRoute) []domain.AlternativeRoute {
	out := make([]domain.AlternativeRoute, 0, MaxAlternatives)
	for _, a := range highway {
		if len(out) == MaxAlternatives {
			break
		}
		out = append(out, a)
	}
	for _, a := range toll {
		if len(out) >= MaxAlternatives {
			break
		}
		if containsPath(out, a.Path) {
			continue
		}
		out = append(out, a)
	}
	for i := range out {
		out[i].Name = fmt.Sprintf("Alternative Route %d", i+1)
	}
	return out
}

func containsPath(alts []domain.AlternativeRoute, path []domain.GeoPoint) bool {
	for _, a := range alts {
		if domain.SamePath(a.Path, path) {
			return true
		}
	}
	return false
}
