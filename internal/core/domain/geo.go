package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Lerp returns the point at fraction t along the straight line from p to q.
func (p GeoPoint) Lerp(q GeoPoint, t float64) GeoPoint {
	return GeoPoint{
		Lat: p.Lat + (q.Lat-p.Lat)*t,
		Lon: p.Lon + (q.Lon-p.Lon)*t,
	}
}

// Midpoint returns the coordinate average of p and q.
func (p GeoPoint) Midpoint(q GeoPoint) GeoPoint {
	return p.Lerp(q, 0.5)
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsOf returns the bounding box of a path. ok is false for an empty path.
func BoundsOf(path []GeoPoint) (b Bounds, ok bool) {
	if len(path) == 0 {
		return Bounds{}, false
	}
	b = Bounds{MinLat: path[0].Lat, MinLon: path[0].Lon, MaxLat: path[0].Lat, MaxLon: path[0].Lon}
	for _, p := range path[1:] {
		b.MinLat = min(b.MinLat, p.Lat)
		b.MinLon = min(b.MinLon, p.Lon)
		b.MaxLat = max(b.MaxLat, p.Lat)
		b.MaxLon = max(b.MaxLon, p.Lon)
	}
	return b, true
}

// SamePath reports whether two paths contain the same points in the same order.
func SamePath(a, b []GeoPoint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
