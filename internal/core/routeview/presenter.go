package routeview

import (
	"fmt"

	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/pkg/geospatial"
	"github.com/twpayne/go-polyline"
)

// Overlay colors.
const (
	ColorAvailable = "#4CAF50"
	ColorLimited   = "#FFC107"
	ColorFull      = "#F44336"
	ColorGateway   = "#3F51B5"
	ColorMarkerRim = "#FFFFFF"
)

// StatusColor maps a capacity status to its overlay color.
func StatusColor(s domain.CapacityStatus) string {
	switch s {
	case domain.StatusLimited:
		return ColorLimited
	case domain.StatusFull:
		return ColorFull
	default:
		return ColorAvailable
	}
}

// FullSegmentHint is shown in the popup of a full segment.
const FullSegmentHint = "This segment is full. Please check alternative routes."

// AlternativeHint is shown in every alternative-route popup.
const AlternativeHint = "This alternative route avoids full segments."

// Stroke describes how a polyline is drawn.
type Stroke struct {
	Color   string  `json:"color"`
	Weight  int     `json:"weight"`
	Opacity float64 `json:"opacity"`
	Pattern []int   `json:"pattern,omitempty"`
}

var (
	segmentStroke     = Stroke{Weight: 5, Opacity: 0.8}
	alternativeStroke = Stroke{Weight: 3, Opacity: 0.6, Pattern: []int{10, 5}}
)

// SegmentOverlay is a colored, clickable segment line.
type SegmentOverlay struct {
	ID       int                   `json:"id"`
	Name     string                `json:"name"`
	Status   domain.CapacityStatus `json:"status"`
	Stroke   Stroke                `json:"stroke"`
	Path     []domain.GeoPoint     `json:"path"`
	Polyline string                `json:"polyline"`
	Midpoint domain.GeoPoint       `json:"midpoint"`
}

// MarkerSymbol is the marker glyph.
type MarkerSymbol string

const (
	SymbolCircle MarkerSymbol = "circle"
	SymbolStar   MarkerSymbol = "star"
)

// Marker is a point marker on the map.
type Marker struct {
	Key          string          `json:"key"`
	Position     domain.GeoPoint `json:"position"`
	Symbol       MarkerSymbol    `json:"symbol"`
	Scale        int             `json:"scale"`
	Fill         string          `json:"fill"`
	StrokeColor  string          `json:"stroke_color"`
	StrokeWeight int             `json:"stroke_weight"`
	Title        string          `json:"title,omitempty"`
	SegmentID    int             `json:"segment_id,omitempty"`
}

// AlternativeOverlay is a dashed alternative-route line.
type AlternativeOverlay struct {
	Key      string                `json:"key"`
	Index    int                   `json:"index"`
	Name     string                `json:"name"`
	Status   domain.CapacityStatus `json:"status"`
	Stroke   Stroke                `json:"stroke"`
	Path     []domain.GeoPoint     `json:"path"`
	Polyline string                `json:"polyline"`
	Distance string                `json:"distance"`
	Duration string                `json:"duration"`
}

// Popup is the single open info window.
type Popup struct {
	Kind   SelectionKind   `json:"kind"`
	Anchor domain.GeoPoint `json:"anchor"`
	Title  string          `json:"title"`
	Status string          `json:"status"`
	Lines  []string        `json:"lines,omitempty"`
}

// LegendItem is one legend row.
type LegendItem struct {
	Title string `json:"title"`
	Color string `json:"color"`
	Shape string `json:"shape"`
}

// Legend explains overlay colors and symbols.
type Legend struct {
	Header string       `json:"header"`
	Items  []LegendItem `json:"items"`
}

// DefaultLegend is the static legend.
func DefaultLegend() Legend {
	return Legend{
		Header: "Route Segment Capacity Legend",
		Items: []LegendItem{
			{Title: "Available Segment", Color: ColorAvailable, Shape: "line"},
			{Title: "Limited Capacity", Color: ColorLimited, Shape: "line"},
			{Title: "Full Segment", Color: ColorFull, Shape: "line"},
			{Title: "Gateway Node", Color: ColorGateway, Shape: "dot"},
			{Title: "Alternative Route", Color: ColorLimited, Shape: "dashed"},
		},
	}
}

// Viewport frames the route.
type Viewport struct {
	Center domain.GeoPoint `json:"center"`
	Zoom   int             `json:"zoom"`
}

// Scene is everything a map client needs to draw a view.
type Scene struct {
	Generation   uint64               `json:"generation"`
	Revision     uint64               `json:"revision"`
	Phase        Phase                `json:"phase"`
	Segments     []SegmentOverlay     `json:"segments"`
	Markers      []Marker             `json:"markers"`
	Alternatives []AlternativeOverlay `json:"alternatives"`
	Popup        *Popup               `json:"popup,omitempty"`
	Legend       *Legend              `json:"legend,omitempty"`
	Viewport     *Viewport            `json:"viewport,omitempty"`
}

// Present renders a snapshot. forceLegend shows the legend even without segments.
func Present(s Snapshot, forceLegend bool) Scene {
	scene := Scene{
		Generation:   s.Generation,
		Revision:     s.Revision,
		Phase:        s.Phase,
		Segments:     make([]SegmentOverlay, 0, len(s.Segments)),
		Markers:      make([]Marker, 0, len(s.Segments)+len(s.Gateways)),
		Alternatives: []AlternativeOverlay{},
	}

	for _, seg := range s.Segments {
		mid := segmentMidpoint(s, seg)
		stroke := segmentStroke
		stroke.Color = StatusColor(seg.Status)
		scene.Segments = append(scene.Segments, SegmentOverlay{
			ID:       seg.ID,
			Name:     seg.Name,
			Status:   seg.Status,
			Stroke:   stroke,
			Path:     seg.Path,
			Polyline: EncodePolyline(seg.Path),
			Midpoint: mid,
		})
		scene.Markers = append(scene.Markers, Marker{
			Key:          fmt.Sprintf("status-%d", seg.ID),
			Position:     mid,
			Symbol:       SymbolCircle,
			Scale:        7,
			Fill:         StatusColor(seg.Status),
			StrokeColor:  ColorMarkerRim,
			StrokeWeight: 2,
			SegmentID:    seg.ID,
		})
	}

	for i, g := range s.Gateways {
		scene.Markers = append(scene.Markers, Marker{
			Key:          fmt.Sprintf("gateway-%d", i),
			Position:     g.Location,
			Symbol:       SymbolStar,
			Scale:        10,
			Fill:         ColorGateway,
			StrokeColor:  ColorMarkerRim,
			StrokeWeight: 2,
			Title:        fmt.Sprintf("Gateway: %s, %s", g.Label, g.Region),
		})
	}

	if s.AlternativesVisible() {
		for i, alt := range s.Alternatives {
			stroke := alternativeStroke
			stroke.Color = StatusColor(alt.Status)
			scene.Alternatives = append(scene.Alternatives, AlternativeOverlay{
				Key:      fmt.Sprintf("alt-route-%d", i),
				Index:    i,
				Name:     alt.Name,
				Status:   alt.Status,
				Stroke:   stroke,
				Path:     alt.Path,
				Polyline: EncodePolyline(alt.Path),
				Distance: alt.DistanceText,
				Duration: alt.DurationText,
			})
		}
	}

	scene.Popup = popup(s)

	if len(s.Segments) > 0 || forceLegend {
		legend := DefaultLegend()
		scene.Legend = &legend
	}

	if len(s.Path) > 0 {
		first, last := s.Path[0], s.Path[len(s.Path)-1]
		scene.Viewport = &Viewport{Center: first.Midpoint(last), Zoom: geospatial.ZoomForSpan(first, last)}
	}
	return scene
}

func popup(s Snapshot) *Popup {
	if seg, ok := s.SelectedSegment(); ok {
		p := &Popup{
			Kind:   SelectSegment,
			Anchor: segmentMidpoint(s, seg),
			Title:  seg.Name,
			Status: "Status: " + seg.Status.Label(),
		}
		if seg.Status == domain.StatusFull {
			p.Lines = append(p.Lines, FullSegmentHint)
		}
		return p
	}

	if alt, ok := s.SelectedAlternative(); ok && len(alt.Path) > 0 {
		p := &Popup{
			Kind:   SelectAlternative,
			Anchor: alt.Path[len(alt.Path)/2],
			Title:  alt.Name,
			Status: "Status: " + alt.Status.Label(),
			Lines:  []string{AlternativeHint},
		}
		if alt.DistanceText != "" && alt.DurationText != "" {
			p.Lines = append(p.Lines, "Distance: "+alt.DistanceText, "Est. Time: "+alt.DurationText)
		}
		return p
	}
	return nil
}

func segmentMidpoint(s Snapshot, seg domain.Segment) domain.GeoPoint {
	var start, end domain.GeoPoint
	if seg.StartWaypoint < len(s.Waypoints) {
		start = s.Waypoints[seg.StartWaypoint].Point
	}
	if seg.EndWaypoint < len(s.Waypoints) {
		end = s.Waypoints[seg.EndWaypoint].Point
	}
	return seg.Midpoint(start, end)
}

// EncodePolyline encodes a path in the Google polyline format (precision 5).
func EncodePolyline(path []domain.GeoPoint) string {
	coords := make([][]float64, len(path))
	for i, p := range path {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}
