package ports

import (
	"context"

	"github.com/samirrijal/roadcap/internal/core/domain"
)

// RoadSegmentRepository reads capacity-tracked road segments.
type RoadSegmentRepository interface {
	// Intersecting returns the road segments crossed by path, in path order.
	Intersecting(ctx context.Context, path []domain.GeoPoint) ([]domain.RoadSegment, error)
}
