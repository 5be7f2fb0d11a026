package postgres

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/pkg/geospatial"
)

// RoadSegmentRepo implements ports.RoadSegmentRepository over the booking
// backend's road_segments table. It never writes.
type RoadSegmentRepo struct {
	db *DB
}

// NewRoadSegmentRepo creates a new RoadSegmentRepo.
func NewRoadSegmentRepo(db *DB) *RoadSegmentRepo {
	return &RoadSegmentRepo{db: db}
}

// Intersecting returns the road segments whose geometry crosses path, ordered
// by where along path they are first touched.
func (r *RoadSegmentRepo) Intersecting(ctx context.Context, path []domain.GeoPoint) ([]domain.RoadSegment, error) {
	if len(path) < 2 {
		return nil, nil
	}
	line := wkt.MarshalString(geospatial.LineString(path))

	rows, err := r.db.Pool.Query(ctx, `
		WITH route AS (SELECT ST_GeomFromText($1, 4326) AS geom)
		SELECT rs.segment_id, COALESCE(rs.name, ''), ST_AsText(rs.geom), rs.current_load, rs.capacity
		FROM road_segments rs, route
		WHERE ST_Intersects(rs.geom, route.geom)
		ORDER BY ST_LineLocatePoint(route.geom, ST_ClosestPoint(route.geom, rs.geom)), rs.segment_id
	`, line)
	if err != nil {
		return nil, fmt.Errorf("query intersecting segments: %w", err)
	}
	defer rows.Close()

	var segments []domain.RoadSegment
	for rows.Next() {
		var (
			s    domain.RoadSegment
			geom string
		)
		if err := rows.Scan(&s.ID, &s.Name, &geom, &s.CurrentLoad, &s.Capacity); err != nil {
			return nil, fmt.Errorf("scan road segment: %w", err)
		}
		ls, err := wkt.UnmarshalLineString(geom)
		if err != nil {
			return nil, fmt.Errorf("road segment %s geometry: %w", s.ID, err)
		}
		s.Path = geospatial.PathOf(ls)
		segments = append(segments, s)
	}
	return segments, rows.Err()
}
