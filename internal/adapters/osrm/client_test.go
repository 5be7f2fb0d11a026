package osrm_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/roadcap/internal/adapters/osrm"
	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/pkg/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-polyline"
)

var (
	dublin = domain.GeoPoint{Lat: 53.3498, Lon: -6.2603}
	galway = domain.GeoPoint{Lat: 53.2707, Lon: -9.0568}
)

func newClient(t *testing.T, h http.HandlerFunc) *osrm.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return osrm.New(upstream.New("osrm", srv.URL, time.Second), "driving")
}

func TestRoutes_DecodesGeometry(t *testing.T) {
	geometry := string(polyline.EncodeCoords([][]float64{{53.3498, -6.2603}, {53.3, -7.5}, {53.2707, -9.0568}}))

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/-6.260300,53.349800;-9.056800,53.270700", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		assert.Equal(t, "polyline", r.URL.Query().Get("geometries"))
		assert.Equal(t, "false", r.URL.Query().Get("alternatives"))
		assert.Empty(t, r.URL.Query().Get("exclude"))
		fmt.Fprintf(w, `{"code":"Ok","routes":[{"geometry":%q,"distance":208000.5,"duration":7500,"legs":[{"summary":"M6"}]}]}`, geometry)
	})

	routes, err := c.Routes(context.Background(), dublin, galway, domain.RouteOptions{})
	require.NoError(t, err)
	require.Len(t, routes, 1)

	r := routes[0]
	require.Len(t, r.Path, 3)
	assert.InDelta(t, 53.3498, r.Path[0].Lat, 1e-5)
	assert.InDelta(t, -9.0568, r.Path[2].Lon, 1e-5)
	assert.Equal(t, 208000.5, r.DistanceMeters)
	assert.Equal(t, 7500.0, r.DurationSeconds)
	assert.Equal(t, "M6", r.Summary)
}

func TestRoutes_SendsExclusions(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "motorway", r.URL.Query().Get("exclude"))
		assert.Equal(t, "true", r.URL.Query().Get("alternatives"))
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"geometry":"","distance":0,"duration":0}]}`))
	})

	routes, err := c.Routes(context.Background(), dublin, galway, domain.RouteOptions{AvoidHighways: true, Alternatives: true})
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Empty(t, routes[0].Path)
}

func TestRoutes_NoRouteIsUnavailable(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NoRoute","message":"Impossible route between points"}`))
	})

	_, err := c.Routes(context.Background(), dublin, galway, domain.RouteOptions{})
	assert.ErrorIs(t, err, domain.ErrRouteUnavailable)
}

func TestRoutes_ServerErrorIsNotUnavailable(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Routes(context.Background(), dublin, galway, domain.RouteOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRouteUnavailable)
}

func TestExclusions(t *testing.T) {
	assert.Equal(t, "", osrm.Exclusions(domain.RouteOptions{}))
	assert.Equal(t, "toll", osrm.Exclusions(domain.RouteOptions{AvoidTolls: true}))
	assert.Equal(t, "motorway,toll", osrm.Exclusions(domain.RouteOptions{AvoidHighways: true, AvoidTolls: true}))
}
