package routeview

import (
	"github.com/paulmach/orb/geojson"
	"github.com/samirrijal/roadcap/internal/pkg/geospatial"
)

// GeoJSON renders a scene as a feature collection: one LineString per segment
// and visible alternative, one Point per marker. Styling goes in properties.
func GeoJSON(scene Scene) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, seg := range scene.Segments {
		f := geojson.NewFeature(geospatial.LineString(seg.Path))
		f.ID = seg.ID
		f.Properties["layer"] = "segment"
		f.Properties["name"] = seg.Name
		f.Properties["status"] = string(seg.Status)
		f.Properties["stroke"] = seg.Stroke.Color
		f.Properties["stroke-width"] = seg.Stroke.Weight
		f.Properties["stroke-opacity"] = seg.Stroke.Opacity
		fc.Append(f)
	}

	for _, alt := range scene.Alternatives {
		f := geojson.NewFeature(geospatial.LineString(alt.Path))
		f.ID = alt.Key
		f.Properties["layer"] = "alternative"
		f.Properties["name"] = alt.Name
		f.Properties["status"] = string(alt.Status)
		f.Properties["stroke"] = alt.Stroke.Color
		f.Properties["stroke-width"] = alt.Stroke.Weight
		f.Properties["stroke-opacity"] = alt.Stroke.Opacity
		f.Properties["dash-array"] = alt.Stroke.Pattern
		f.Properties["distance"] = alt.Distance
		f.Properties["duration"] = alt.Duration
		fc.Append(f)
	}

	for _, m := range scene.Markers {
		f := geojson.NewFeature(geospatial.Point(m.Position))
		f.ID = m.Key
		f.Properties["layer"] = "marker"
		f.Properties["marker-symbol"] = string(m.Symbol)
		f.Properties["marker-color"] = m.Fill
		if m.Title != "" {
			f.Properties["title"] = m.Title
		}
		fc.Append(f)
	}
	return fc
}
