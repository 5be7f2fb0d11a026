package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/core/ports"
	"github.com/samirrijal/roadcap/internal/core/routeview"
	"github.com/samirrijal/roadcap/internal/pkg/metrics"
	"github.com/samirrijal/roadcap/internal/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ViewConfig tunes the views a ViewService creates.
type ViewConfig struct {
	SegmentCount         int
	ClickToleranceMeters float64
	ShowLegend           bool
	GeocodeCacheTTL      int
}

// RouteRequest asks a view to show the route between two points. When Path is
// set it is used as the primary route instead of asking the routing provider.
type RouteRequest struct {
	Origin       domain.GeoPoint
	Destination  domain.GeoPoint
	Path         []domain.GeoPoint
	StartAddress string
	EndAddress   string
}

// ViewService keeps the live views and feeds them routes and interaction events.
type ViewService struct {
	routing   ports.RoutingProvider
	geocoder  ports.Geocoder
	publisher ports.ScenePublisher
	cache     ports.CacheService
	cfg       ViewConfig

	builder    *routeview.Builder
	reconciler *routeview.Reconciler

	mu    sync.RWMutex
	views map[string]*session
}

// session is one view plus what was last submitted to it.
type session struct {
	id   string
	view *routeview.View
	pump *scenePump

	mu      sync.Mutex
	request *RouteRequest
	input   routeview.RouteInput
}

// NewViewService creates a new ViewService. geocoder, capacity, publisher and
// cache may be nil.
func NewViewService(
	routing ports.RoutingProvider,
	geocoder ports.Geocoder,
	capacity ports.CapacityLookup,
	publisher ports.ScenePublisher,
	cache ports.CacheService,
	cfg ViewConfig,
) *ViewService {
	if cfg.ClickToleranceMeters <= 0 {
		cfg.ClickToleranceMeters = 75
	}
	s := &ViewService{
		routing:   routing,
		geocoder:  geocoder,
		publisher: publisher,
		cache:     cache,
		cfg:       cfg,
		builder:   routeview.NewBuilder(cfg.SegmentCount, capacity),
		views:     make(map[string]*session),
	}
	if routing != nil {
		s.reconciler = routeview.NewReconciler(routing, capacity)
	}
	return s
}

// Create opens a new idle view and returns its id.
func (s *ViewService) Create() (string, routeview.Scene) {
	sess := &session{id: uuid.NewString()}
	if s.publisher != nil {
		sess.pump = newScenePump(sess.id, s.publisher, s.cfg.ShowLegend)
	}
	opts := routeview.Options{Builder: s.builder, Reconciler: s.reconciler}
	if sess.pump != nil {
		opts.OnChange = sess.pump.offer
	}
	sess.view = routeview.New(opts)

	s.mu.Lock()
	s.views[sess.id] = sess
	s.mu.Unlock()
	metrics.ActiveViews.Inc()

	slog.Info("view created", "view", sess.id)
	return sess.id, s.present(sess.view.Snapshot())
}

// Delete closes a view and forgets it.
func (s *ViewService) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrViewNotFound
	}

	sess.view.Close()
	if sess.pump != nil {
		sess.pump.stop()
	}
	metrics.ActiveViews.Dec()
	slog.Info("view deleted", "view", id)
	return nil
}

// ViewSummary describes one live view.
type ViewSummary struct {
	ID         string              `json:"id"`
	Generation uint64              `json:"generation"`
	Phase      routeview.Phase     `json:"phase"`
	Kind       routeview.InputKind `json:"kind"`
	Segments   int                 `json:"segments"`
}

// List returns a summary of every live view, ordered by id.
func (s *ViewService) List() []ViewSummary {
	s.mu.RLock()
	sessions := make([]*session, 0, len(s.views))
	for _, sess := range s.views {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	out := make([]ViewSummary, 0, len(sessions))
	for _, sess := range sessions {
		snap := sess.view.Snapshot()
		out = append(out, ViewSummary{
			ID:         sess.id,
			Generation: snap.Generation,
			Phase:      snap.Phase,
			Kind:       snap.Kind,
			Segments:   len(snap.Segments),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of live views.
func (s *ViewService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

// Scene renders the current state of a view.
func (s *ViewService) Scene(id string) (routeview.Scene, error) {
	snap, err := s.Snapshot(id)
	if err != nil {
		return routeview.Scene{}, err
	}
	return s.present(snap), nil
}

// Snapshot returns the raw state of a view.
func (s *ViewService) Snapshot(id string) (routeview.Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return routeview.Snapshot{}, err
	}
	return sess.view.Snapshot(), nil
}

// Wait blocks until the view's alternative-route requests have settled.
func (s *ViewService) Wait(id string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.view.Wait()
	return nil
}

// SubmitRoute resolves the route for req and feeds it to the view. Submitting
// the same request twice leaves the view untouched.
func (s *ViewService) SubmitRoute(ctx context.Context, id string, req RouteRequest) (scene routeview.Scene, err error) {
	sess, err := s.get(id)
	if err != nil {
		return routeview.Scene{}, err
	}
	ctx, span := telemetry.Start(ctx, telemetry.SpanViewSubmit, attribute.String("view", id))
	defer func() { telemetry.End(span, err) }()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	in := sess.input
	if sess.request == nil || !sameRequest(*sess.request, req) {
		in, err = s.resolve(ctx, req)
		if err != nil {
			// new endpoints were asked for; the old route must not stay up
			sess.view.Update(ctx, routeview.RouteInput{})
			sess.request, sess.input = nil, routeview.RouteInput{}
			return routeview.Scene{}, err
		}
	}

	snap, changed := sess.view.Update(ctx, in)
	r := req
	sess.request, sess.input = &r, in
	if changed {
		slog.Info("view route updated", "view", id, "kind", snap.Kind, "phase", snap.Phase, "segments", len(snap.Segments))
	}
	return s.present(snap), nil
}

// resolve turns a request into engine input: a routed path, a client path, or
// the fallback endpoints when no route exists or the provider fails.
func (s *ViewService) resolve(ctx context.Context, req RouteRequest) (routeview.RouteInput, error) {
	if len(req.Path) > 0 {
		route := &domain.Route{
			Path:         append([]domain.GeoPoint(nil), req.Path...),
			StartAddress: req.StartAddress,
			EndAddress:   req.EndAddress,
		}
		s.fillAddresses(ctx, route)
		return routeview.RouteInput{Route: route}, nil
	}
	if s.routing == nil {
		return routeview.RouteInput{}, fmt.Errorf("no routing provider configured")
	}

	routes, err := s.routing.Routes(ctx, req.Origin, req.Destination, domain.RouteOptions{})
	switch {
	case err != nil && ctx.Err() != nil:
		return routeview.RouteInput{}, fmt.Errorf("primary route: %w", err)
	case errors.Is(err, domain.ErrRouteUnavailable) || (err == nil && len(routes) == 0):
		slog.Info("no route between endpoints, using fallback", "origin", req.Origin, "destination", req.Destination)
		return fallbackInput(req), nil
	case err != nil:
		slog.Warn("primary route request failed, using fallback",
			"origin", req.Origin, "destination", req.Destination, "error", err)
		return fallbackInput(req), nil
	}

	route := routes[0]
	route.StartAddress, route.EndAddress = req.StartAddress, req.EndAddress
	s.fillAddresses(ctx, &route)
	return routeview.RouteInput{Route: &route}, nil
}

func (s *ViewService) fillAddresses(ctx context.Context, route *domain.Route) {
	if len(route.Path) == 0 {
		return
	}
	if route.StartAddress == "" {
		route.StartAddress = s.address(ctx, route.Path[0])
	}
	if route.EndAddress == "" {
		route.EndAddress = s.address(ctx, route.Path[len(route.Path)-1])
	}
}

// address reverse-geocodes p through the cache. Failures yield "" so the
// gateway falls back to its placeholder label.
func (s *ViewService) address(ctx context.Context, p domain.GeoPoint) string {
	if s.geocoder == nil {
		return ""
	}
	cacheKey := fmt.Sprintf("geocode:%.5f,%.5f", p.Lat, p.Lon)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			return string(data)
		}
	}

	addr, err := s.geocoder.Address(ctx, p)
	if err != nil {
		slog.Warn("reverse geocoding failed", "lat", p.Lat, "lon", p.Lon, "error", err)
		return ""
	}
	if s.cache != nil && addr != "" && s.cfg.GeocodeCacheTTL > 0 {
		_ = s.cache.Set(ctx, cacheKey, []byte(addr), s.cfg.GeocodeCacheTTL)
	}
	return addr
}

func fallbackInput(req RouteRequest) routeview.RouteInput {
	start, end := req.Origin, req.Destination
	return routeview.RouteInput{Unavailable: true, FallbackStart: &start, FallbackEnd: &end}
}

// apply feeds raw input to a view, bypassing route resolution.
func (s *ViewService) apply(ctx context.Context, id string, in routeview.RouteInput) (routeview.Scene, error) {
	sess, err := s.get(id)
	if err != nil {
		return routeview.Scene{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	snap, _ := sess.view.Update(ctx, in)
	sess.request, sess.input = nil, in
	return s.present(snap), nil
}

// SelectSegment opens the popup of a segment.
func (s *ViewService) SelectSegment(id string, segmentID int) (routeview.Scene, error) {
	sess, err := s.get(id)
	if err != nil {
		return routeview.Scene{}, err
	}
	snap, err := sess.view.SelectSegment(segmentID)
	if err != nil {
		return routeview.Scene{}, err
	}
	return s.present(snap), nil
}

// SelectAlternative opens the popup of an alternative route.
func (s *ViewService) SelectAlternative(id string, index int) (routeview.Scene, error) {
	sess, err := s.get(id)
	if err != nil {
		return routeview.Scene{}, err
	}
	snap, err := sess.view.SelectAlternative(index)
	if err != nil {
		return routeview.Scene{}, err
	}
	return s.present(snap), nil
}

// ClosePopup closes the popup of the given kind.
func (s *ViewService) ClosePopup(id string, kind routeview.SelectionKind) (routeview.Scene, error) {
	sess, err := s.get(id)
	if err != nil {
		return routeview.Scene{}, err
	}
	return s.present(sess.view.ClosePopup(kind)), nil
}

// Click selects whatever overlay lies under p. hit reports whether anything did.
func (s *ViewService) Click(id string, p domain.GeoPoint) (scene routeview.Scene, hit bool, err error) {
	sess, err := s.get(id)
	if err != nil {
		return routeview.Scene{}, false, err
	}
	snap, hit, err := sess.view.Click(p, s.cfg.ClickToleranceMeters)
	if err != nil {
		return routeview.Scene{}, false, err
	}
	return s.present(snap), hit, nil
}

// Close closes every view.
func (s *ViewService) Close() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range views {
		sess.view.Close()
		if sess.pump != nil {
			sess.pump.stop()
		}
		metrics.ActiveViews.Dec()
	}
}

func (s *ViewService) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.views[id]
	if !ok {
		return nil, domain.ErrViewNotFound
	}
	return sess, nil
}

func (s *ViewService) present(snap routeview.Snapshot) routeview.Scene {
	return routeview.Present(snap, s.cfg.ShowLegend)
}

func sameRequest(a, b RouteRequest) bool {
	return a.Origin == b.Origin && a.Destination == b.Destination &&
		a.StartAddress == b.StartAddress && a.EndAddress == b.EndAddress &&
		domain.SamePath(a.Path, b.Path)
}

// scenePump publishes the latest scene of one view. Snapshots offered while a
// publish is in flight are coalesced; only the newest is sent.
type scenePump struct {
	viewID      string
	publisher   ports.ScenePublisher
	forceLegend bool

	mu      sync.Mutex
	pending *routeview.Snapshot
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newScenePump(viewID string, publisher ports.ScenePublisher, forceLegend bool) *scenePump {
	p := &scenePump{
		viewID:      viewID,
		publisher:   publisher,
		forceLegend: forceLegend,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	go p.run()
	return p
}

// offer is the view's OnChange hook. It never blocks.
func (p *scenePump) offer(snap routeview.Snapshot) {
	p.mu.Lock()
	p.pending = &snap
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *scenePump) run() {
	for {
		select {
		case <-p.done:
			return
		case <-p.wake:
		}

		p.mu.Lock()
		snap := p.pending
		p.pending = nil
		p.mu.Unlock()
		if snap == nil {
			continue
		}

		data, err := json.Marshal(routeview.Present(*snap, p.forceLegend))
		if err != nil {
			slog.Error("marshal scene", "view", p.viewID, "error", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.publisher.PublishScene(ctx, p.viewID, data); err != nil {
			slog.Warn("publish scene failed", "view", p.viewID, "generation", snap.Generation, "error", err)
		}
		cancel()
	}
}

func (p *scenePump) stop() {
	p.once.Do(func() { close(p.done) })
}
