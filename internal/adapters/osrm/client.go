package osrm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/pkg/upstream"
	"github.com/twpayne/go-polyline"
	"github.com/valyala/fasthttp"
)

// OSRM response codes that mean "no route between these points".
var noRouteCodes = map[string]bool{
	"NoRoute":   true,
	"NoSegment": true,
}

// Client implements ports.RoutingProvider against an OSRM HTTP server.
type Client struct {
	http    *upstream.Client
	profile string
}

// New creates an OSRM client. profile is the OSRM routing profile ("driving").
func New(http *upstream.Client, profile string) *Client {
	if profile == "" {
		profile = "driving"
	}
	return &Client{http: http, profile: profile}
}

type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Legs     []struct {
			Summary string `json:"summary"`
		} `json:"legs"`
	} `json:"routes"`
}

// Routes returns the routes OSRM finds from origin to destination, best first.
func (c *Client) Routes(ctx context.Context, origin, destination domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error) {
	path := fmt.Sprintf("/route/v1/%s/%s;%s", c.profile, coord(origin), coord(destination))

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("overview", "full")
	args.Set("geometries", "polyline")
	args.Set("alternatives", strconv.FormatBool(opts.Alternatives))
	if exclude := Exclusions(opts); exclude != "" {
		args.Set("exclude", exclude)
	}

	var resp routeResponse
	err := c.http.GetJSON(ctx, "route", path, args, &resp)
	if noRouteCodes[resp.Code] {
		return nil, fmt.Errorf("osrm %s: %w", resp.Code, domain.ErrRouteUnavailable)
	}
	if err != nil {
		var serr *upstream.StatusError
		if errors.As(err, &serr) && resp.Message != "" {
			return nil, fmt.Errorf("osrm %s: %s: %w", resp.Code, resp.Message, err)
		}
		return nil, err
	}
	if resp.Code != "Ok" {
		return nil, fmt.Errorf("osrm returned code %q: %s", resp.Code, resp.Message)
	}
	if len(resp.Routes) == 0 {
		return nil, fmt.Errorf("osrm: %w", domain.ErrRouteUnavailable)
	}

	routes := make([]domain.Route, 0, len(resp.Routes))
	for i, r := range resp.Routes {
		pts, err := DecodeGeometry(r.Geometry)
		if err != nil {
			return nil, fmt.Errorf("osrm route %d geometry: %w", i, err)
		}
		route := domain.Route{
			Path:            pts,
			DistanceMeters:  r.Distance,
			DurationSeconds: r.Duration,
		}
		if len(r.Legs) > 0 {
			route.Summary = r.Legs[0].Summary
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// Exclusions maps route options to OSRM's exclude parameter.
func Exclusions(opts domain.RouteOptions) string {
	var classes []string
	if opts.AvoidHighways {
		classes = append(classes, "motorway")
	}
	if opts.AvoidTolls {
		classes = append(classes, "toll")
	}
	return strings.Join(classes, ",")
}

// DecodeGeometry decodes an OSRM polyline (precision 5) geometry.
func DecodeGeometry(geometry string) ([]domain.GeoPoint, error) {
	if geometry == "" {
		return nil, nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(geometry))
	if err != nil {
		return nil, err
	}
	pts := make([]domain.GeoPoint, len(coords))
	for i, c := range coords {
		pts[i] = domain.GeoPoint{Lat: c[0], Lon: c[1]}
	}
	return pts, nil
}

// OSRM takes lon,lat.
func coord(p domain.GeoPoint) string {
	return strconv.FormatFloat(p.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lat, 'f', 6, 64)
}
