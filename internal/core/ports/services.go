package ports

import (
	"context"

	"github.com/samirrijal/roadcap/internal/core/domain"
)

// RoutingProvider computes driving routes between two points.
// It returns domain.ErrRouteUnavailable when no route exists.
type RoutingProvider interface {
	Routes(ctx context.Context, origin, destination domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error)
}

// Geocoder resolves a coordinate to a formatted address.
type Geocoder interface {
	Address(ctx context.Context, p domain.GeoPoint) (string, error)
}

// BookingBackend reads booking data from the external booking API.
type BookingBackend interface {
	BookingSegments(ctx context.Context, bookingID string) ([]domain.RegionSegments, error)
}

// CapacityLookup reports the load on the road along a path.
// It returns domain.ErrNoCapacityData when nothing is known about the path.
type CapacityLookup interface {
	PathLoad(ctx context.Context, path []domain.GeoPoint) (domain.Load, error)
}

// ScenePublisher fans rendered scenes out to a message broker.
type ScenePublisher interface {
	PublishScene(ctx context.Context, viewID string, data []byte) error
}

// SceneWatcher streams the rendered scenes of one view, starting with the
// latest one. The returned func stops the stream.
type SceneWatcher interface {
	WatchScenes(ctx context.Context, viewID string, handler func(data []byte)) (stop func(), err error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
