package routeview

import "github.com/samirrijal/roadcap/internal/core/domain"

// Phase is the lifecycle stage of a view.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseResolving Phase = "resolving"
	PhaseReady     Phase = "ready"
)

// SelectionKind names what, if anything, is selected.
type SelectionKind string

const (
	SelectNone        SelectionKind = ""
	SelectSegment     SelectionKind = "segment"
	SelectAlternative SelectionKind = "alternative"
)

// Selection is the single selected segment or alternative route.
type Selection struct {
	Kind        SelectionKind `json:"kind,omitempty"`
	SegmentID   int           `json:"segment_id,omitempty"`
	Alternative int           `json:"alternative"`
}

// Snapshot is the complete derived state of a view. A snapshot is never
// modified once published; every change produces a new one.
type Snapshot struct {
	Generation   uint64                    `json:"generation"`
	Revision     uint64                    `json:"revision"`
	Phase        Phase                     `json:"phase"`
	Kind         InputKind                 `json:"kind"`
	Path         []domain.GeoPoint         `json:"path,omitempty"`
	Waypoints    []domain.Waypoint         `json:"waypoints,omitempty"`
	Segments     []domain.Segment          `json:"segments,omitempty"`
	Gateways     []domain.GatewayNode      `json:"gateways,omitempty"`
	Alternatives []domain.AlternativeRoute `json:"alternatives,omitempty"`
	Selection    Selection                 `json:"selection"`

	// per-request alternative results, merged into Alternatives
	highway []domain.AlternativeRoute
	toll    []domain.AlternativeRoute
}

// HasFullSegment reports whether any current segment is full.
func (s Snapshot) HasFullSegment() bool {
	for _, seg := range s.Segments {
		if seg.Status == domain.StatusFull {
			return true
		}
	}
	return false
}

// AlternativesVisible reports whether alternatives should be rendered.
func (s Snapshot) AlternativesVisible() bool {
	return len(s.Alternatives) > 0 && s.HasFullSegment()
}

// Segment returns the segment with the given id.
func (s Snapshot) Segment(id int) (domain.Segment, bool) {
	for _, seg := range s.Segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return domain.Segment{}, false
}

// SelectedSegment returns the selected segment, if a segment is selected.
func (s Snapshot) SelectedSegment() (domain.Segment, bool) {
	if s.Selection.Kind != SelectSegment {
		return domain.Segment{}, false
	}
	return s.Segment(s.Selection.SegmentID)
}

// SelectedAlternative returns the selected alternative, if one is selected.
func (s Snapshot) SelectedAlternative() (domain.AlternativeRoute, bool) {
	if s.Selection.Kind != SelectAlternative {
		return domain.AlternativeRoute{}, false
	}
	i := s.Selection.Alternative
	if i < 0 || i >= len(s.Alternatives) {
		return domain.AlternativeRoute{}, false
	}
	return s.Alternatives[i], true
}

// withAlternatives returns a copy of s with re-merged alternatives. A selected
// alternative follows its path to its new position, or is dropped.
func (s Snapshot) withAlternatives(highway, toll []domain.AlternativeRoute) Snapshot {
	next := s
	next.highway, next.toll = highway, toll
	next.Alternatives = MergeAlternatives(highway, toll)

	if prev, ok := s.SelectedAlternative(); ok {
		next.Selection = Selection{}
		for i, a := range next.Alternatives {
			if domain.SamePath(a.Path, prev.Path) {
				next.Selection = Selection{Kind: SelectAlternative, Alternative: i}
				break
			}
		}
	}
	return next
}
