package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/roadcap/internal/adapters/http"
	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/core/routeview"
	"github.com/samirrijal/roadcap/internal/core/usecases"
)

// ---- Mock providers ----

type mockRouting struct {
	routesFn func(ctx context.Context, origin, destination domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error)
}

func (m *mockRouting) Routes(ctx context.Context, origin, destination domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error) {
	if m.routesFn != nil {
		return m.routesFn(ctx, origin, destination, opts)
	}
	return nil, domain.ErrRouteUnavailable
}

type mockBookings struct {
	segmentsFn func(ctx context.Context, bookingID string) ([]domain.RegionSegments, error)
}

func (m *mockBookings) BookingSegments(ctx context.Context, bookingID string) ([]domain.RegionSegments, error) {
	if m.segmentsFn != nil {
		return m.segmentsFn(ctx, bookingID)
	}
	return nil, domain.ErrBookingNotFound
}

// ---- Fixtures ----

func line(n int) []domain.GeoPoint {
	path := make([]domain.GeoPoint, n)
	for i := range path {
		path[i] = domain.GeoPoint{Lat: 53 + float64(i)*0.01, Lon: -6 - float64(i)*0.01}
	}
	return path
}

// primaryOnly answers primary requests with a 7-point route.
func primaryOnly() *mockRouting {
	return &mockRouting{
		routesFn: func(ctx context.Context, o, d domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error) {
			if opts.AvoidHighways || opts.AvoidTolls {
				return nil, domain.ErrRouteUnavailable
			}
			return []domain.Route{{Path: line(7), DistanceMeters: 9000, DurationSeconds: 600}}, nil
		},
	}
}

const routeBody = `{"origin":{"lat":53,"lon":-6},"destination":{"lat":53.06,"lon":-6.06}}`

// ---- Helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	views := usecases.NewViewService(primaryOnly(), nil, nil, nil, nil, usecases.ViewConfig{SegmentCount: 3})
	d := &handler.Dependencies{
		Views:    views,
		Bookings: usecases.NewBookingViewService(&mockBookings{}, views),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeError(t *testing.T, body io.Reader) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.NewDecoder(body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// createRoutedView creates a view and submits the fixture route to it.
func createRoutedView(t *testing.T, app *fiber.App, deps *handler.Dependencies) string {
	t.Helper()
	id, _ := deps.Views.Create()
	resp, err := app.Test(jsonRequest("PUT", "/v1/views/"+id+"/route", routeBody), -1)
	if err != nil {
		t.Fatalf("submit route: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("submit route: expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	_ = deps.Views.Wait(id)
	return id
}

// ---- View lifecycle ----

func TestCreateView(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	resp, err := app.Test(httptest.NewRequest("POST", "/v1/views", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var created handler.ViewCreated
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a view id")
	}
	if created.Scene.Phase != routeview.PhaseIdle {
		t.Errorf("expected idle scene, got %s", created.Scene.Phase)
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/views/"+created.ID {
		t.Errorf("unexpected Location %q", loc)
	}
	if deps.Views.Count() != 1 {
		t.Errorf("expected 1 view, got %d", deps.Views.Count())
	}
}

func TestGetView_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/views/missing", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if apiErr := decodeError(t, resp.Body); apiErr.Code != "not_found" {
		t.Errorf("expected not_found, got %s", apiErr.Code)
	}
}

func TestDeleteView(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	id, _ := deps.Views.Create()

	resp, _ := app.Test(httptest.NewRequest("DELETE", "/v1/views/"+id, nil), -1)
	if resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/views/"+id, nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestListViews_Pagination(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	for i := 0; i < 5; i++ {
		deps.Views.Create()
	}

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/views?offset=1&limit=2", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var page struct {
		Data       []usecases.ViewSummary `json:"data"`
		Pagination handler.Pagination     `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Data) != 2 {
		t.Errorf("expected 2 views, got %d", len(page.Data))
	}
	if page.Pagination.Total != 5 || page.Pagination.Offset != 1 || page.Pagination.Limit != 2 {
		t.Errorf("unexpected pagination: %+v", page.Pagination)
	}
	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="next"`) || !strings.Contains(link, `rel="prev"`) {
		t.Errorf("expected next and prev links, got %q", link)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}
}

// ---- Routes ----

func TestSubmitRoute_Success(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	id, _ := deps.Views.Create()

	resp, _ := app.Test(jsonRequest("PUT", "/v1/views/"+id+"/route", routeBody), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var scene routeview.Scene
	if err := json.NewDecoder(resp.Body).Decode(&scene); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if scene.Phase != routeview.PhaseReady {
		t.Errorf("expected ready, got %s", scene.Phase)
	}
	if len(scene.Segments) != 3 {
		t.Errorf("expected 3 segments, got %d", len(scene.Segments))
	}
	if scene.Legend == nil {
		t.Error("expected a legend once segments exist")
	}
	_ = deps.Views.Wait(id)
}

func TestSubmitRoute_Validation(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	id, _ := deps.Views.Create()

	cases := map[string]string{
		"bad json":         `{"origin":`,
		"missing origin":   `{"destination":{"lat":53,"lon":-6}}`,
		"latitude range":   `{"origin":{"lat":93,"lon":-6},"destination":{"lat":53,"lon":-6}}`,
		"single point path": `{"origin":{"lat":53,"lon":-6},"destination":{"lat":53.1,"lon":-6},"path":[{"lat":53,"lon":-6}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp, _ := app.Test(jsonRequest("PUT", "/v1/views/"+id+"/route", body), -1)
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			if apiErr := decodeError(t, resp.Body); apiErr.Code != "bad_request" {
				t.Errorf("expected bad_request, got %s", apiErr.Code)
			}
		})
	}
}

func TestSubmitRoute_ProviderErrorFallsBack(t *testing.T) {
	var failing atomic.Bool
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Views = usecases.NewViewService(&mockRouting{
			routesFn: func(ctx context.Context, o, dst domain.GeoPoint, opts domain.RouteOptions) ([]domain.Route, error) {
				if failing.Load() {
					return nil, errors.New("osrm: connection refused")
				}
				return primaryOnly().routesFn(ctx, o, dst, opts)
			},
		}, nil, nil, nil, nil, usecases.ViewConfig{SegmentCount: 3})
	})
	app := setupApp(deps)
	id, _ := deps.Views.Create()

	resp, _ := app.Test(jsonRequest("PUT", "/v1/views/"+id+"/route", routeBody), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	_ = deps.Views.Wait(id)

	failing.Store(true)
	body := `{"origin":{"lat":40,"lon":2},"destination":{"lat":41,"lon":3}}`
	resp, _ = app.Test(jsonRequest("PUT", "/v1/views/"+id+"/route", body), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	var scene routeview.Scene
	if err := json.NewDecoder(resp.Body).Decode(&scene); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(scene.Segments) == 0 {
		t.Fatal("expected fallback segments")
	}
	if first := scene.Segments[0].Path[0]; first != (domain.GeoPoint{Lat: 40, Lon: 2}) {
		t.Errorf("expected the new origin, got %v", first)
	}
	_ = deps.Views.Wait(id)
}

func TestLoadBooking_UpstreamError(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Bookings = usecases.NewBookingViewService(&mockBookings{
			segmentsFn: func(ctx context.Context, bookingID string) ([]domain.RegionSegments, error) {
				return nil, errors.New("booking api: connection refused")
			},
		}, d.Views)
	})
	app := setupApp(deps)
	id, _ := deps.Views.Create()

	resp, _ := app.Test(httptest.NewRequest("PUT", "/v1/views/"+id+"/booking/b-1", nil), -1)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if apiErr := decodeError(t, resp.Body); apiErr.Code != "upstream_error" {
		t.Errorf("expected upstream_error, got %s", apiErr.Code)
	}
}

func TestSubmitRoute_UnknownView(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(jsonRequest("PUT", "/v1/views/nope/route", routeBody), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Interaction ----

func TestSelectSegment(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	idle, _ := deps.Views.Create()
	resp, _ := app.Test(httptest.NewRequest("POST", "/v1/views/"+idle+"/segments/1/select", nil), -1)
	if resp.StatusCode != 409 {
		t.Fatalf("expected 409 before a route, got %d", resp.StatusCode)
	}

	id := createRoutedView(t, app, deps)

	resp, _ = app.Test(httptest.NewRequest("POST", "/v1/views/"+id+"/segments/2/select", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var scene routeview.Scene
	json.NewDecoder(resp.Body).Decode(&scene)
	if scene.Popup == nil || scene.Popup.Title != "Segment 2" {
		t.Errorf("expected Segment 2 popup, got %+v", scene.Popup)
	}

	resp, _ = app.Test(httptest.NewRequest("POST", "/v1/views/"+id+"/segments/9/select", nil), -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for unknown segment, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("POST", "/v1/views/"+id+"/segments/abc/select", nil), -1)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for non-numeric segment, got %d", resp.StatusCode)
	}
}

func TestSelectAlternative_NoneVisible(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	id := createRoutedView(t, app, deps)

	resp, _ := app.Test(httptest.NewRequest("POST", "/v1/views/"+id+"/alternatives/0/select", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestClick(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	id := createRoutedView(t, app, deps)

	p := line(7)[1]
	body := fmt.Sprintf(`{"lat":%f,"lon":%f}`, p.Lat, p.Lon)
	resp, _ := app.Test(jsonRequest("POST", "/v1/views/"+id+"/click", body), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var click handler.ClickResponse
	if err := json.NewDecoder(resp.Body).Decode(&click); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !click.Hit || click.Scene.Popup == nil || click.Scene.Popup.Title != "Segment 1" {
		t.Errorf("expected Segment 1 hit, got hit=%v popup=%+v", click.Hit, click.Scene.Popup)
	}

	resp, _ = app.Test(jsonRequest("POST", "/v1/views/"+id+"/click", `{"lat":40,"lon":2}`), -1)
	json.NewDecoder(resp.Body).Decode(&click)
	if click.Hit {
		t.Error("expected a miss far from the route")
	}
}

func TestClosePopup(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	id := createRoutedView(t, app, deps)

	if _, err := deps.Views.SelectSegment(id, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	resp, _ := app.Test(httptest.NewRequest("DELETE", "/v1/views/"+id+"/popup/bogus", nil), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for unknown kind, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/views/"+id+"/popup/segment", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var scene routeview.Scene
	json.NewDecoder(resp.Body).Decode(&scene)
	if scene.Popup != nil {
		t.Errorf("expected popup closed, got %+v", scene.Popup)
	}
}

// ---- Bookings ----

func TestLoadBooking(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Bookings = usecases.NewBookingViewService(&mockBookings{
			segmentsFn: func(ctx context.Context, bookingID string) ([]domain.RegionSegments, error) {
				if bookingID != "b-1" {
					return nil, domain.ErrBookingNotFound
				}
				return []domain.RegionSegments{{
					Region: "Leinster",
					Segments: []domain.RoadSegment{
						{ID: "r1", Name: "N11", Path: line(3), CurrentLoad: 10, Capacity: 100},
						{ID: "r2", Name: "M11", Path: line(4)[2:], CurrentLoad: 90, Capacity: 100},
					},
				}}, nil
			},
		}, d.Views)
	})
	app := setupApp(deps)
	id, _ := deps.Views.Create()

	resp, _ := app.Test(httptest.NewRequest("PUT", "/v1/views/"+id+"/booking/b-1", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	var scene routeview.Scene
	json.NewDecoder(resp.Body).Decode(&scene)
	if len(scene.Segments) != 2 || scene.Segments[1].Status != domain.StatusFull {
		t.Errorf("unexpected segments: %+v", scene.Segments)
	}

	resp, _ = app.Test(httptest.NewRequest("PUT", "/v1/views/"+id+"/booking/b-2", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for unknown booking, got %d", resp.StatusCode)
	}
}

func TestLoadBooking_NotConfigured(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) { d.Bookings = nil })
	app := setupApp(deps)
	id, _ := deps.Views.Create()

	resp, _ := app.Test(httptest.NewRequest("PUT", "/v1/views/"+id+"/booking/b-1", nil), -1)
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

// ---- Rendering ----

func TestGeoJSONView(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	id := createRoutedView(t, app, deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/views/"+id+"/geojson", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("unexpected content type %q", ct)
	}

	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %s", fc.Type)
	}
	// 3 segments + 3 status markers + 2 gateways
	if len(fc.Features) != 8 {
		t.Errorf("expected 8 features, got %d", len(fc.Features))
	}
}

func TestLegend(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/legend", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var legend routeview.Legend
	json.NewDecoder(resp.Body).Decode(&legend)
	if legend.Header != "Route Segment Capacity Legend" || len(legend.Items) != 5 {
		t.Errorf("unexpected legend: %+v", legend)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "max-age=86400") {
		t.Errorf("expected long cache, got %q", cc)
	}
}

func TestGetView_ETag(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	id, _ := deps.Views.Create()

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/views/"+id, nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}

	req := httptest.NewRequest("GET", "/v1/views/"+id, nil)
	req.Header.Set("If-None-Match", `W/"other", `+etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
}

func TestReady_NoBackingServices(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Checks["database"] != "not configured" || body.Checks["views"] != "ok" {
		t.Errorf("unexpected checks: %v", body.Checks)
	}
}

// ---- GraphQL ----

func TestGraphQL_View(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)
	id := createRoutedView(t, app, deps)

	query := fmt.Sprintf(`{"query":"{ view(id: \"%s\") { phase segments { id status } legend { header } } }"}`, id)
	resp, _ := app.Test(jsonRequest("POST", "/graphql", query), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			View struct {
				Phase    string `json:"phase"`
				Segments []struct {
					ID     int    `json:"id"`
					Status string `json:"status"`
				} `json:"segments"`
				Legend struct {
					Header string `json:"header"`
				} `json:"legend"`
			} `json:"view"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Data.View.Phase != "ready" || len(result.Data.View.Segments) != 3 {
		t.Errorf("unexpected view: %+v", result.Data.View)
	}
	if result.Data.View.Segments[0].ID != 1 {
		t.Errorf("expected first segment id 1, got %d", result.Data.View.Segments[0].ID)
	}
}

func TestGraphQL_UnknownView(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(jsonRequest("POST", "/graphql", `{"query":"{ view(id: \"nope\") { phase } }"}`), -1)
	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0].Message, "view not found") {
		t.Errorf("expected view not found error, got %+v", result.Errors)
	}
}
