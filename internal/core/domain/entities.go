package domain

// CapacityStatus classifies how congested a stretch of road is.
type CapacityStatus string

const (
	StatusAvailable CapacityStatus = "available"
	StatusLimited   CapacityStatus = "limited"
	StatusFull      CapacityStatus = "full"
)

// Capacity thresholds on the load/capacity ratio.
const (
	LimitedRatio = 0.50
	FullRatio    = 0.70
)

// StatusForRatio maps a load/capacity ratio to a status.
func StatusForRatio(ratio float64) CapacityStatus {
	switch {
	case ratio < LimitedRatio:
		return StatusAvailable
	case ratio < FullRatio:
		return StatusLimited
	default:
		return StatusFull
	}
}

// StatusForLoad maps a current load and capacity to a status.
// A road with no capacity is always full.
func StatusForLoad(load, capacity int) CapacityStatus {
	if capacity <= 0 {
		return StatusFull
	}
	return StatusForRatio(float64(load) / float64(capacity))
}

// Label returns the capitalised display form used in popups.
func (s CapacityStatus) Label() string {
	switch s {
	case StatusAvailable:
		return "Available"
	case StatusLimited:
		return "Limited"
	case StatusFull:
		return "Full"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the known statuses.
func (s CapacityStatus) Valid() bool {
	return s == StatusAvailable || s == StatusLimited || s == StatusFull
}

// Route is a computed driving path between two points.
type Route struct {
	Path            []GeoPoint `json:"path"`
	DistanceMeters  float64    `json:"distance_meters"`
	DurationSeconds float64    `json:"duration_seconds"`
	StartAddress    string     `json:"start_address,omitempty"`
	EndAddress      string     `json:"end_address,omitempty"`
	Summary         string     `json:"summary,omitempty"`
}

// RouteOptions constrains a routing request.
type RouteOptions struct {
	AvoidHighways bool
	AvoidTolls    bool
	Alternatives  bool
}

// Waypoint is a segment boundary together with its index in the route path.
type Waypoint struct {
	Index int      `json:"index"`
	Point GeoPoint `json:"point"`
}

// Segment is a contiguous stretch of a route between two waypoints.
type Segment struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	StartWaypoint int            `json:"start_waypoint"`
	EndWaypoint   int            `json:"end_waypoint"`
	Status        CapacityStatus `json:"status"`
	Path          []GeoPoint     `json:"path"`
	Ref           string         `json:"ref,omitempty"`
	Load          *int           `json:"load,omitempty"`
	Capacity      *int           `json:"capacity,omitempty"`
}

// Midpoint is where the segment's status marker and popup are anchored.
func (s Segment) Midpoint(start, end GeoPoint) GeoPoint {
	if len(s.Path) == 0 {
		return start.Midpoint(end)
	}
	return s.Path[len(s.Path)/2]
}

// GatewayNode marks a route origin or destination.
type GatewayNode struct {
	Location GeoPoint `json:"location"`
	Label    string   `json:"label"`
	Region   string   `json:"region"`
}

// AlternativeRoute is a secondary path offered when the primary route is congested.
type AlternativeRoute struct {
	Name         string         `json:"name"`
	Path         []GeoPoint     `json:"path"`
	Status       CapacityStatus `json:"status"`
	DistanceText string         `json:"distance"`
	DurationText string         `json:"duration"`
}

// RoadSegment is a capacity-tracked stretch of road owned by the booking backend.
type RoadSegment struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Path        []GeoPoint `json:"path"`
	CurrentLoad int        `json:"current_load"`
	Capacity    int        `json:"capacity"`
}

// Status returns the capacity status of the road segment.
func (r RoadSegment) Status() CapacityStatus {
	return StatusForLoad(r.CurrentLoad, r.Capacity)
}

// RegionSegments groups a booking's road segments under a region name.
type RegionSegments struct {
	Region   string        `json:"region"`
	Segments []RoadSegment `json:"segments"`
}

// Load is an aggregate load reading for a path.
type Load struct {
	CurrentLoad int `json:"current_load"`
	Capacity    int `json:"capacity"`
}

// Status returns the capacity status of the reading.
func (l Load) Status() CapacityStatus {
	return StatusForLoad(l.CurrentLoad, l.Capacity)
}
