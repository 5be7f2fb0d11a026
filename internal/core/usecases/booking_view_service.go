package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/core/ports"
	"github.com/samirrijal/roadcap/internal/core/routeview"
	"github.com/samirrijal/roadcap/internal/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// BookingViewService shows a booking's road segments in a view.
type BookingViewService struct {
	bookings ports.BookingBackend
	views    *ViewService
}

// NewBookingViewService creates a new BookingViewService.
func NewBookingViewService(bookings ports.BookingBackend, views *ViewService) *BookingViewService {
	return &BookingViewService{bookings: bookings, views: views}
}

// Load fetches the booking's segments and feeds them to the view. Each
// backend road segment becomes one view segment with its own capacity status.
func (s *BookingViewService) Load(ctx context.Context, viewID, bookingID string) (scene routeview.Scene, err error) {
	ctx, span := telemetry.Start(ctx, telemetry.SpanBookingSegments,
		attribute.String("view", viewID),
		attribute.String("booking", bookingID),
	)
	defer func() { telemetry.End(span, err) }()

	if _, err := s.views.get(viewID); err != nil {
		return routeview.Scene{}, err
	}

	regions, err := s.bookings.BookingSegments(ctx, bookingID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		return routeview.Scene{}, err
	}
	if err != nil {
		return routeview.Scene{}, fmt.Errorf("load booking %s: %w: %w", bookingID, domain.ErrUpstream, err)
	}
	if countSegments(regions) == 0 {
		return routeview.Scene{}, fmt.Errorf("booking %s has no segments: %w", bookingID, domain.ErrBookingNotFound)
	}

	in := routeview.RouteInput{Regions: regions}
	if first, last, ok := endpoints(regions); ok {
		in.StartAddress = s.views.address(ctx, first)
		in.EndAddress = s.views.address(ctx, last)
	}

	slog.Info("booking loaded into view", "view", viewID, "booking", bookingID, "regions", len(regions))
	return s.views.apply(ctx, viewID, in)
}

func countSegments(regions []domain.RegionSegments) int {
	n := 0
	for _, r := range regions {
		n += len(r.Segments)
	}
	return n
}

// endpoints returns the first and last point of the booking's geometry.
func endpoints(regions []domain.RegionSegments) (first, last domain.GeoPoint, ok bool) {
	for _, r := range regions {
		for _, seg := range r.Segments {
			if len(seg.Path) == 0 {
				continue
			}
			if !ok {
				first, ok = seg.Path[0], true
			}
			last = seg.Path[len(seg.Path)-1]
		}
	}
	return first, last, ok
}
