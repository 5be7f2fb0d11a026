package nominatim

import (
	"context"
	"fmt"
	"strconv"

	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/pkg/upstream"
	"github.com/valyala/fasthttp"
)

// Client implements ports.Geocoder with Nominatim reverse geocoding.
type Client struct {
	http *upstream.Client
}

// New creates a Nominatim client. Nominatim's usage policy requires an
// identifying User-Agent, set on the upstream client.
func New(http *upstream.Client) *Client {
	return &Client{http: http}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Address returns the formatted address nearest to p.
func (c *Client) Address(ctx context.Context, p domain.GeoPoint) (string, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("format", "jsonv2")
	args.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	args.Set("lon", strconv.FormatFloat(p.Lon, 'f', 6, 64))
	args.Set("zoom", "10")

	var resp reverseResponse
	if err := c.http.GetJSON(ctx, "reverse", "/reverse", args, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("nominatim: %s", resp.Error)
	}
	return resp.DisplayName, nil
}
