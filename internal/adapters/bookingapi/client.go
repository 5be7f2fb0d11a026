package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/pkg/upstream"
	"github.com/valyala/fasthttp"
)

// Client implements ports.BookingBackend against the booking HTTP API.
type Client struct {
	http *upstream.Client
}

// New creates a booking API client.
func New(http *upstream.Client) *Client {
	return &Client{http: http}
}

// segmentDTO is one road segment as the booking API returns it.
// Path points are [lat, lon] pairs.
type segmentDTO struct {
	SegmentID   string       `json:"segment_id"`
	Name        string       `json:"name"`
	Path        [][2]float64 `json:"path"`
	CurrentLoad int          `json:"current_load"`
	Capacity    int          `json:"capacity"`
}

// BookingSegments returns the booking's road segments grouped by region, in
// the order the API lists them.
func (c *Client) BookingSegments(ctx context.Context, bookingID string) ([]domain.RegionSegments, error) {
	var raw json.RawMessage
	err := c.http.GetJSON(ctx, "segments", "/bookings/"+url.PathEscape(bookingID)+"/segments", nil, &raw)
	if err != nil {
		var serr *upstream.StatusError
		if errors.As(err, &serr) && serr.Status == fasthttp.StatusNotFound {
			return nil, fmt.Errorf("booking %s: %w", bookingID, domain.ErrBookingNotFound)
		}
		return nil, err
	}
	regions, err := DecodeRegions(raw)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, err)
	}
	return regions, nil
}

// DecodeRegions decodes a region → segment-list object, keeping the key order
// of the document since it is the travel order.
func DecodeRegions(data []byte) ([]domain.RegionSegments, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("decode regions: expected object, got %v", tok)
	}

	var regions []domain.RegionSegments
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode regions: %w", err)
		}
		region, _ := tok.(string)

		var dtos []segmentDTO
		if err := dec.Decode(&dtos); err != nil {
			return nil, fmt.Errorf("decode region %q: %w", region, err)
		}

		rs := domain.RegionSegments{Region: region, Segments: make([]domain.RoadSegment, 0, len(dtos))}
		for _, d := range dtos {
			seg := domain.RoadSegment{
				ID:          d.SegmentID,
				Name:        d.Name,
				CurrentLoad: d.CurrentLoad,
				Capacity:    d.Capacity,
				Path:        make([]domain.GeoPoint, len(d.Path)),
			}
			for i, p := range d.Path {
				seg.Path[i] = domain.GeoPoint{Lat: p[0], Lon: p[1]}
			}
			rs.Segments = append(rs.Segments, seg)
		}
		regions = append(regions, rs)
	}
	return regions, nil
}
