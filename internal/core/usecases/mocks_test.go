package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/roadcap/internal/core/domain"
)

// --- Mock RoutingProvider ---

type mockRouting struct {
	mu       sync.Mutex
	calls    []domain.RouteOptions
	routesFn func(ctx context.Context, origin, destination domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error)
}

func (m *mockRouting) Routes(ctx context.Context, origin, destination domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error) {
	m.mu.Lock()
	m.calls = append(m.calls, opts)
	m.mu.Unlock()
	if m.routesFn != nil {
		return m.routesFn(ctx, origin, destination, opts)
	}
	return nil, domain.ErrRouteUnavailable
}

// primaryCalls counts requests for the primary route (no avoid flags).
func (m *mockRouting) primaryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if !c.AvoidHighways && !c.AvoidTolls {
			n++
		}
	}
	return n
}

// --- Mock Geocoder ---

type mockGeocoder struct {
	addressFn func(ctx context.Context, p domain.GeoPoint) (string, error)
}

func (m *mockGeocoder) Address(ctx context.Context, p domain.GeoPoint) (string, error) {
	if m.addressFn != nil {
		return m.addressFn(ctx, p)
	}
	return "", errors.New("no address")
}

// --- Mock BookingBackend ---

type mockBookings struct {
	segmentsFn func(ctx context.Context, bookingID string) ([]domain.RegionSegments, error)
}

func (m *mockBookings) BookingSegments(ctx context.Context, bookingID string) ([]domain.RegionSegments, error) {
	if m.segmentsFn != nil {
		return m.segmentsFn(ctx, bookingID)
	}
	return nil, domain.ErrBookingNotFound
}

// --- Mock RoadSegmentRepository ---

type mockRoadRepo struct {
	calls       int
	intersectFn func(ctx context.Context, path []domain.GeoPoint) ([]domain.RoadSegment, error)
}

func (m *mockRoadRepo) Intersecting(ctx context.Context, path []domain.GeoPoint) ([]domain.RoadSegment, error) {
	m.calls++
	if m.intersectFn != nil {
		return m.intersectFn(ctx, path)
	}
	return nil, nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock ScenePublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	scenes map[string][][]byte
	notify chan struct{}
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{scenes: make(map[string][][]byte), notify: make(chan struct{}, 64)}
}

func (m *mockPublisher) PublishScene(ctx context.Context, viewID string, data []byte) error {
	m.mu.Lock()
	m.scenes[viewID] = append(m.scenes[viewID], data)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
	return nil
}

func (m *mockPublisher) last(viewID string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.scenes[viewID]
	if len(s) == 0 {
		return nil
	}
	return s[len(s)-1]
}

// --- Fixtures ---

func line(n int) []domain.GeoPoint {
	path := make([]domain.GeoPoint, n)
	for i := range path {
		path[i] = domain.GeoPoint{Lat: 53 + float64(i)*0.01, Lon: -6 - float64(i)*0.01}
	}
	return path
}

var (
	origin      = domain.GeoPoint{Lat: 53, Lon: -6}
	destination = domain.GeoPoint{Lat: 53.06, Lon: -6.06}
)

// primaryOnly answers the primary request with a 7-point route and reports
// every constrained request as unavailable.
func primaryOnly() *mockRouting {
	return &mockRouting{
		routesFn: func(ctx context.Context, o, d domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error) {
			if opts.AvoidHighways || opts.AvoidTolls {
				return nil, domain.ErrRouteUnavailable
			}
			return []domain.Route{{Path: line(7), DistanceMeters: 9000, DurationSeconds: 600}}, nil
		},
	}
}
