package routeview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/core/ports"
)

// DefaultSegmentCount is the number of segments a route is sliced into.
const DefaultSegmentCount = 3

// Builder slices routes into capacity segments.
type Builder struct {
	count    int
	capacity ports.CapacityLookup
}

// NewBuilder creates a builder. A nil capacity lookup marks every segment available.
func NewBuilder(count int, capacity ports.CapacityLookup) *Builder {
	if count < 1 {
		count = DefaultSegmentCount
	}
	return &Builder{count: count, capacity: capacity}
}

// Count returns the configured segment count.
func (b *Builder) Count() int { return b.count }

// WaypointIndices returns the boundary indices for a path of n points split
// into count segments: 0, floor(i*n/count) for i in 1..count-1, and n-1.
// Paths too short for count segments get n-1 segments instead.
func WaypointIndices(n, count int) []int {
	if n < 2 {
		return nil
	}
	if count > n-1 {
		count = n - 1
	}
	idx := make([]int, 0, count+1)
	idx = append(idx, 0)
	for i := 1; i < count; i++ {
		idx = append(idx, i*n/count)
	}
	return append(idx, n-1)
}

// Build derives waypoints and segments from a flattened path.
func (b *Builder) Build(ctx context.Context, path []domain.GeoPoint) ([]domain.Waypoint, []domain.Segment) {
	indices := WaypointIndices(len(path), b.count)
	if indices == nil {
		return nil, nil
	}

	waypoints := make([]domain.Waypoint, len(indices))
	for i, idx := range indices {
		waypoints[i] = domain.Waypoint{Index: idx, Point: path[idx]}
	}

	segments := make([]domain.Segment, 0, len(waypoints)-1)
	for i := 0; i+1 < len(waypoints); i++ {
		from, to := waypoints[i].Index, waypoints[i+1].Index
		sub := make([]domain.GeoPoint, to-from+1)
		copy(sub, path[from:to+1])

		seg := domain.Segment{
			ID:            i + 1,
			Name:          fmt.Sprintf("Segment %d", i+1),
			StartWaypoint: i,
			EndWaypoint:   i + 1,
			Path:          sub,
		}
		b.assignStatus(ctx, &seg)
		segments = append(segments, seg)
	}
	return waypoints, segments
}

// BuildFromRegions turns booking road segments into view segments one-to-one,
// flattening the regions into a single path.
func (b *Builder) BuildFromRegions(regions []domain.RegionSegments) ([]domain.GeoPoint, []domain.Waypoint, []domain.Segment) {
	var (
		path      []domain.GeoPoint
		waypoints []domain.Waypoint
		segments  []domain.Segment
	)
	for _, region := range regions {
		for _, rs := range region.Segments {
			if len(rs.Path) == 0 {
				slog.Warn("booking segment without geometry", "segment", rs.ID, "region", region.Region)
				continue
			}

			if n := len(path); n > 0 && path[n-1] == rs.Path[0] {
				path = append(path, rs.Path[1:]...)
			} else {
				path = append(path, rs.Path...)
			}
			if len(waypoints) == 0 {
				waypoints = append(waypoints, domain.Waypoint{Index: 0, Point: path[0]})
			}
			// A gap between booking segments is bridged by the flattened path;
			// the previous end waypoint stays the boundary.
			end := len(path) - 1
			waypoints = append(waypoints, domain.Waypoint{Index: end, Point: path[end]})

			load, capacity := rs.CurrentLoad, rs.Capacity
			name := rs.Name
			if name == "" {
				name = fmt.Sprintf("Segment %d", len(segments)+1)
			}
			sub := make([]domain.GeoPoint, len(rs.Path))
			copy(sub, rs.Path)
			segments = append(segments, domain.Segment{
				ID:            len(segments) + 1,
				Name:          name,
				StartWaypoint: len(waypoints) - 2,
				EndWaypoint:   len(waypoints) - 1,
				Status:        rs.Status(),
				Path:          sub,
				Ref:           rs.ID,
				Load:          &load,
				Capacity:      &capacity,
			})
		}
	}
	return path, waypoints, segments
}

func (b *Builder) assignStatus(ctx context.Context, seg *domain.Segment) {
	seg.Status = domain.StatusAvailable
	if b.capacity == nil {
		return
	}

	load, err := b.capacity.PathLoad(ctx, seg.Path)
	if err != nil {
		if !errors.Is(err, domain.ErrNoCapacityData) {
			slog.Warn("segment capacity lookup failed", "segment", seg.ID, "error", err)
		}
		return
	}
	seg.Status = load.Status()
	seg.Load = &load.CurrentLoad
	seg.Capacity = &load.Capacity
}
