package routeview

import (
	"github.com/dhconnelly/rtreego"
	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/pkg/geospatial"
)

const (
	hitDimensions  = 2
	hitMinChildren = 2
	hitMaxChildren = 8

	// keeps degenerate (single point, axis-aligned) paths indexable
	rectPadding = 1e-9
)

// hitItem is one clickable overlay.
type hitItem struct {
	kind        SelectionKind
	segmentID   int
	alternative int
	path        []domain.GeoPoint
	rect        *rtreego.Rect
}

func (h *hitItem) Bounds() *rtreego.Rect {
	return h.rect
}

// hitIndex finds the overlay under a click.
type hitIndex struct {
	tree *rtreego.Rtree
}

func newHitIndex(s Snapshot) *hitIndex {
	idx := &hitIndex{tree: rtreego.NewTree(hitDimensions, hitMinChildren, hitMaxChildren)}
	for _, seg := range s.Segments {
		idx.add(&hitItem{kind: SelectSegment, segmentID: seg.ID, path: seg.Path})
	}
	if s.AlternativesVisible() {
		for i, alt := range s.Alternatives {
			idx.add(&hitItem{kind: SelectAlternative, alternative: i, path: alt.Path})
		}
	}
	return idx
}

func (idx *hitIndex) add(item *hitItem) {
	b, ok := domain.BoundsOf(item.path)
	if !ok {
		return
	}
	rect, err := rtreego.NewRect(
		rtreego.Point{b.MinLat - rectPadding, b.MinLon - rectPadding},
		[]float64{b.MaxLat - b.MinLat + 2*rectPadding, b.MaxLon - b.MinLon + 2*rectPadding},
	)
	if err != nil {
		return
	}
	item.rect = rect
	idx.tree.Insert(item)
}

// nearest returns the overlay closest to p within toleranceMeters. Ties go to
// segments over alternatives, then to the lower id or index.
func (idx *hitIndex) nearest(p domain.GeoPoint, toleranceMeters float64) (*hitItem, bool) {
	if toleranceMeters <= 0 || idx.tree.Size() == 0 {
		return nil, false
	}
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(p, toleranceMeters)
	query, err := rtreego.NewRect(rtreego.Point{minLat, minLon}, []float64{maxLat - minLat, maxLon - minLon})
	if err != nil {
		return nil, false
	}

	var (
		best     *hitItem
		bestDist float64
	)
	for _, sp := range idx.tree.SearchIntersect(query) {
		item := sp.(*hitItem)
		d := geospatial.DistanceToPath(p, item.path)
		if d > toleranceMeters {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && item.before(best)) {
			best, bestDist = item, d
		}
	}
	return best, best != nil
}

func (h *hitItem) before(o *hitItem) bool {
	if h.kind != o.kind {
		return h.kind == SelectSegment
	}
	if h.kind == SelectSegment {
		return h.segmentID < o.segmentID
	}
	return h.alternative < o.alternative
}
