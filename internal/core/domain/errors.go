package domain

import "errors"

var (
	ErrViewNotFound       = errors.New("view not found")
	ErrNotReady           = errors.New("view is not ready")
	ErrUnknownSegment     = errors.New("unknown segment")
	ErrUnknownAlternative = errors.New("unknown alternative route")
	ErrRouteUnavailable   = errors.New("route unavailable")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrNoCapacityData     = errors.New("no capacity data")
	ErrUpstream           = errors.New("upstream service failed")
)
