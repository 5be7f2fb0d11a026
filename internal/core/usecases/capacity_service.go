package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/core/ports"
	"github.com/samirrijal/roadcap/internal/core/routeview"
	"github.com/samirrijal/roadcap/internal/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// CapacityService implements ports.CapacityLookup on top of the road segment
// table. A path's load is that of the most congested road segment it crosses.
type CapacityService struct {
	segments ports.RoadSegmentRepository
	cache    ports.CacheService
	ttl      int
}

// NewCapacityService creates a new CapacityService. cache may be nil.
func NewCapacityService(segments ports.RoadSegmentRepository, cache ports.CacheService, ttlSeconds int) *CapacityService {
	return &CapacityService{segments: segments, cache: cache, ttl: ttlSeconds}
}

// PathLoad returns the worst load along path.
func (s *CapacityService) PathLoad(ctx context.Context, path []domain.GeoPoint) (load domain.Load, err error) {
	if len(path) < 2 {
		return domain.Load{}, domain.ErrNoCapacityData
	}
	ctx, span := telemetry.Start(ctx, telemetry.SpanCapacityLookup, attribute.Int("points", len(path)))
	defer func() { telemetry.End(span, err) }()

	cacheKey := "load:" + routeview.EncodePolyline(path)
	if s.cache != nil && s.ttl > 0 {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var cached domain.Load
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	roads, err := s.segments.Intersecting(ctx, path)
	if err != nil {
		return domain.Load{}, fmt.Errorf("road segments along path: %w", err)
	}
	worst, ok := WorstLoad(roads)
	if !ok {
		return domain.Load{}, domain.ErrNoCapacityData
	}

	if s.cache != nil && s.ttl > 0 {
		if data, err := json.Marshal(worst); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.ttl)
		}
	}
	return worst, nil
}

// WorstLoad picks the load of the most congested road segment. Segments with
// no capacity count as saturated.
func WorstLoad(roads []domain.RoadSegment) (domain.Load, bool) {
	var (
		worst     domain.Load
		worstRate float64
		found     bool
	)
	for _, r := range roads {
		rate := loadRatio(r.CurrentLoad, r.Capacity)
		if !found || rate > worstRate {
			worst = domain.Load{CurrentLoad: r.CurrentLoad, Capacity: r.Capacity}
			worstRate = rate
			found = true
		}
	}
	return worst, found
}

func loadRatio(load, capacity int) float64 {
	if capacity <= 0 {
		return math.Inf(1)
	}
	return float64(load) / float64(capacity)
}
