// Package routeview turns driving routes into capacity segments, gateway
// markers and alternative-route overlays, and keeps that derived state
// consistent while inputs change and provider responses arrive out of order.
package routeview

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/pkg/metrics"
)

// Options configure a View.
type Options struct {
	Builder    *Builder
	Reconciler *Reconciler

	// Go runs one alternative-route request. Defaults to a new goroutine.
	Go func(func())

	// OnChange observes every published snapshot in order. It is called with
	// the view locked and must not call back into the view.
	OnChange func(Snapshot)
}

// View owns the derived state of one map session.
type View struct {
	builder    *Builder
	reconciler *Reconciler
	spawn      func(func())
	onChange   func(Snapshot)

	mu     sync.Mutex
	snap   Snapshot
	last   RouteInput
	seen   bool
	closed bool
	cancel context.CancelFunc
	hits   *hitIndex

	inflight sync.WaitGroup
}

// New creates an idle view.
func New(opts Options) *View {
	v := &View{
		builder:    opts.Builder,
		reconciler: opts.Reconciler,
		spawn:      opts.Go,
		onChange:   opts.OnChange,
		snap:       Snapshot{Phase: PhaseIdle, Kind: InputNone},
	}
	if v.builder == nil {
		v.builder = NewBuilder(DefaultSegmentCount, nil)
	}
	if v.spawn == nil {
		v.spawn = func(f func()) { go f() }
	}
	v.hits = newHitIndex(v.snap)
	return v
}

// Snapshot returns the current state.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// Update feeds new input to the view. Unchanged input, or any input after
// Close, is a no-op and returns changed=false. Otherwise all derived state is cleared and published before
// the new state is built, and alternative-route requests are dispatched for
// the new generation.
func (v *View) Update(ctx context.Context, in RouteInput) (snap Snapshot, changed bool) {
	v.mu.Lock()
	if v.closed || (v.seen && !in.differs(v.last)) {
		defer v.mu.Unlock()
		return v.snap, false
	}
	v.seen = true
	v.last = in
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}

	gen := v.snap.Generation + 1
	kind := in.Kind()
	cleared := Snapshot{Generation: gen, Phase: PhaseResolving, Kind: kind}
	if kind == InputNone {
		cleared.Phase = PhaseIdle
	}
	cleared = v.install(cleared)
	v.mu.Unlock()

	metrics.ViewRebuilds.WithLabelValues(string(kind)).Inc()
	if kind == InputNone {
		return cleared, true
	}

	next, ok := v.derive(ctx, in, gen, kind)

	v.mu.Lock()
	if v.snap.Generation != gen {
		// superseded while building
		defer v.mu.Unlock()
		return v.snap, true
	}
	if !ok {
		next = Snapshot{Generation: gen, Phase: PhaseIdle, Kind: kind}
		next = v.install(next)
		v.mu.Unlock()
		return next, true
	}
	next = v.install(next)
	var jobs []func()
	if !v.closed {
		jobs = v.prepareAlternatives(ctx, gen, next.Path)
	}
	v.mu.Unlock()

	for _, job := range jobs {
		v.spawn(job)
	}
	return next, true
}

func (v *View) derive(ctx context.Context, in RouteInput, gen uint64, kind InputKind) (Snapshot, bool) {
	s := Snapshot{Generation: gen, Phase: PhaseReady, Kind: kind}
	startAddress, endAddress := in.StartAddress, in.EndAddress

	switch kind {
	case InputBooking:
		s.Path, s.Waypoints, s.Segments = v.builder.BuildFromRegions(in.Regions)
	case InputRoute:
		s.Path = in.Route.Path
		if in.Route.StartAddress != "" || in.Route.EndAddress != "" {
			startAddress, endAddress = in.Route.StartAddress, in.Route.EndAddress
		}
		s.Waypoints, s.Segments = v.builder.Build(ctx, s.Path)
	case InputFallback:
		s.Path = FallbackPath(*in.FallbackStart, *in.FallbackEnd)
		// fallback routes never carry addresses
		startAddress, endAddress = "", ""
		s.Waypoints, s.Segments = v.builder.Build(ctx, s.Path)
	}

	if len(s.Segments) == 0 {
		slog.Warn("route has no usable geometry", "kind", kind, "points", len(s.Path))
		return Snapshot{}, false
	}
	s.Gateways = Gateways(s.Waypoints[0], s.Waypoints[len(s.Waypoints)-1], startAddress, endAddress)
	return s, true
}

// prepareAlternatives builds the request jobs for generation gen. Called with
// the view locked; the jobs must be started after unlocking.
func (v *View) prepareAlternatives(ctx context.Context, gen uint64, primary []domain.GeoPoint) []func() {
	if v.reconciler == nil || len(primary) < 2 {
		return nil
	}
	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	v.cancel = cancel

	start, end := primary[0], primary[len(primary)-1]
	jobs := make([]func(), 0, len(AlternativeRequests))
	for _, req := range AlternativeRequests {
		v.inflight.Add(1)
		jobs = append(jobs, func() {
			defer v.inflight.Done()
			entries, err := v.reconciler.Fetch(actx, req, primary, start, end)
			v.applyAlternatives(gen, req, entries, err)
		})
	}
	return jobs
}

// applyAlternatives installs one request's result if it still belongs to the
// current generation.
func (v *View) applyAlternatives(gen uint64, req AlternativeRequest, entries []domain.AlternativeRoute, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.snap.Generation != gen || v.snap.Phase != PhaseReady {
		metrics.AlternativeResponses.WithLabelValues(string(req), "stale").Inc()
		slog.Debug("discarding stale alternative response", "request", req, "generation", gen, "current", v.snap.Generation)
		return
	}
	if err != nil {
		metrics.AlternativeResponses.WithLabelValues(string(req), "error").Inc()
		slog.Warn("alternative route request failed", "request", req, "error", err)
		return
	}

	highway, toll := v.snap.highway, v.snap.toll
	switch req {
	case RequestAvoidHighways:
		highway = entries
	case RequestAvoidTolls:
		toll = entries
	}
	outcome := "ok"
	if len(entries) == 0 {
		outcome = "empty"
	}
	metrics.AlternativeResponses.WithLabelValues(string(req), outcome).Inc()
	v.install(v.snap.withAlternatives(highway, toll))
}

// SelectSegment selects a segment and clears any alternative selection.
func (v *View) SelectSegment(id int) (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.snap.Phase != PhaseReady {
		return v.snap, domain.ErrNotReady
	}
	if _, ok := v.snap.Segment(id); !ok {
		return v.snap, domain.ErrUnknownSegment
	}
	next := v.snap
	next.Selection = Selection{Kind: SelectSegment, SegmentID: id}
	next = v.install(next)
	return next, nil
}

// SelectAlternative selects a visible alternative route and clears any
// segment selection.
func (v *View) SelectAlternative(index int) (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.snap.Phase != PhaseReady {
		return v.snap, domain.ErrNotReady
	}
	if !v.snap.AlternativesVisible() || index < 0 || index >= len(v.snap.Alternatives) {
		return v.snap, domain.ErrUnknownAlternative
	}
	next := v.snap
	next.Selection = Selection{Kind: SelectAlternative, Alternative: index}
	next = v.install(next)
	return next, nil
}

// ClosePopup clears the selection of the given kind only.
func (v *View) ClosePopup(kind SelectionKind) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	if kind == SelectNone || v.snap.Selection.Kind != kind {
		return v.snap
	}
	next := v.snap
	next.Selection = Selection{}
	next = v.install(next)
	return next
}

// Click selects the overlay nearest to p within toleranceMeters. hit is false
// when nothing is close enough; the selection is then left as it was.
func (v *View) Click(p domain.GeoPoint, toleranceMeters float64) (snap Snapshot, hit bool, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.snap.Phase != PhaseReady {
		return v.snap, false, domain.ErrNotReady
	}
	item, ok := v.hits.nearest(p, toleranceMeters)
	if !ok {
		return v.snap, false, nil
	}
	next := v.snap
	switch item.kind {
	case SelectSegment:
		next.Selection = Selection{Kind: SelectSegment, SegmentID: item.segmentID}
	case SelectAlternative:
		next.Selection = Selection{Kind: SelectAlternative, Alternative: item.alternative}
	}
	next = v.install(next)
	return next, true, nil
}

// Wait blocks until every dispatched alternative request has been applied or discarded.
func (v *View) Wait() {
	v.inflight.Wait()
}

// Close cancels in-flight alternative requests. A closed view ignores further
// input and dispatches no new requests.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

// install stamps s with the next revision and publishes it as the current
// snapshot. Caller holds v.mu.
func (v *View) install(s Snapshot) Snapshot {
	s.Revision = v.snap.Revision + 1
	v.snap = s
	v.hits = newHitIndex(s)
	if v.onChange != nil {
		v.onChange(s)
	}
	return s
}
