package routeview_test

import (
	"context"
	"sync"

	"github.com/samirrijal/roadcap/internal/core/domain"
)

type mockProvider struct {
	routesFn func(ctx context.Context, origin, destination domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error)
}

func (m *mockProvider) Routes(ctx context.Context, origin, destination domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error) {
	if m != nil && m.routesFn != nil {
		return m.routesFn(ctx, origin, destination, opts)
	}
	return nil, domain.ErrRouteUnavailable
}

type mockCapacity struct {
	pathLoadFn func(ctx context.Context, path []domain.GeoPoint) (domain.Load, error)
}

func (m *mockCapacity) PathLoad(ctx context.Context, path []domain.GeoPoint) (domain.Load, error) {
	if m != nil && m.pathLoadFn != nil {
		return m.pathLoadFn(ctx, path)
	}
	return domain.Load{}, domain.ErrNoCapacityData
}

// jobQueue captures alternative-route jobs so tests control completion order.
type jobQueue struct {
	mu   sync.Mutex
	jobs []func()
}

func (q *jobQueue) Go(f func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, f)
}

func (q *jobQueue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.jobs
	q.jobs = nil
	return jobs
}

// pt returns the i-th point of a straight test route.
func pt(i int) domain.GeoPoint {
	return domain.GeoPoint{Lat: 53 + float64(i)*0.01, Lon: -6 - float64(i)*0.01}
}

func pathOf(n int) []domain.GeoPoint {
	path := make([]domain.GeoPoint, n)
	for i := range path {
		path[i] = pt(i)
	}
	return path
}

func ptr(p domain.GeoPoint) *domain.GeoPoint { return &p }
