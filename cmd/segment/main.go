package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samirrijal/roadcap/internal/adapters/nominatim"
	"github.com/samirrijal/roadcap/internal/adapters/osrm"
	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/core/ports"
	"github.com/samirrijal/roadcap/internal/core/routeview"
	"github.com/samirrijal/roadcap/internal/core/usecases"
	"github.com/samirrijal/roadcap/internal/pkg/logging"
	"github.com/samirrijal/roadcap/internal/pkg/upstream"
)

var (
	segmentCount int
	format       string
	timeout      time.Duration
	verbose      bool

	from, to     string
	osrmURL      string
	osrmProfile  string
	nominatimURL string
)

var rootCmd = &cobra.Command{
	Use:   "roadcap-segment",
	Short: "Segment a route and print its map scene",
	Long: `Splits a route into capacity segments with gateway markers and alternative
routes, and prints the resulting scene as JSON or GeoJSON.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logging.Setup("roadcap-segment", level, "text")
	},
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Route between two points with OSRM and segment the result",
	RunE:  runRoute,
}

var pathCmd = &cobra.Command{
	Use:   "path <polyline>",
	Short: "Segment an encoded polyline without calling a routing server",
	Args:  cobra.ExactArgs(1),
	RunE:  runPath,
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&segmentCount, "segments", "n", 3, "Number of segments")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "o", "json", "Output format: json or geojson")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "Overall timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.PersistentFlags().StringVar(&nominatimURL, "nominatim", "", "Nominatim base URL for gateway names (optional)")

	routeCmd.Flags().StringVar(&from, "from", "", "Origin as lat,lon")
	routeCmd.Flags().StringVar(&to, "to", "", "Destination as lat,lon")
	routeCmd.Flags().StringVar(&osrmURL, "osrm", "http://localhost:5000", "OSRM base URL")
	routeCmd.Flags().StringVar(&osrmProfile, "profile", "driving", "OSRM profile")
	_ = routeCmd.MarkFlagRequired("from")
	_ = routeCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(routeCmd, pathCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runRoute(cmd *cobra.Command, args []string) error {
	origin, err := parsePoint(from)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	destination, err := parsePoint(to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	routing := osrm.New(upstream.New("osrm", osrmURL, timeout), osrmProfile)
	return segment(cmd.Context(), cmd.OutOrStdout(), routing, usecases.RouteRequest{Origin: origin, Destination: destination})
}

func runPath(cmd *cobra.Command, args []string) error {
	path, err := osrm.DecodeGeometry(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("decode polyline: %w", err)
	}
	if len(path) < 2 {
		return fmt.Errorf("polyline needs at least 2 points, got %d", len(path))
	}
	req := usecases.RouteRequest{Origin: path[0], Destination: path[len(path)-1], Path: path}
	return segment(cmd.Context(), cmd.OutOrStdout(), nil, req)
}

// segment runs one request through a throwaway view and writes the settled scene.
func segment(ctx context.Context, w io.Writer, routing ports.RoutingProvider, req usecases.RouteRequest) error {
	if format != "json" && format != "geojson" {
		return fmt.Errorf("unknown format %q", format)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var geocoder ports.Geocoder
	if nominatimURL != "" {
		geocoder = nominatim.New(upstream.New("nominatim", nominatimURL, timeout))
	}

	views := usecases.NewViewService(routing, geocoder, nil, nil, nil, usecases.ViewConfig{SegmentCount: segmentCount})
	defer views.Close()

	id, _ := views.Create()
	if _, err := views.SubmitRoute(ctx, id, req); err != nil {
		return err
	}
	if err := views.Wait(id); err != nil {
		return err
	}
	scene, err := views.Scene(id)
	if err != nil {
		return err
	}
	return writeScene(w, scene)
}

func writeScene(w io.Writer, scene routeview.Scene) error {
	var v any = scene
	if format == "geojson" {
		v = routeview.GeoJSON(scene)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parsePoint parses "lat,lon".
func parsePoint(s string) (domain.GeoPoint, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.GeoPoint{}, fmt.Errorf("expected lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return domain.GeoPoint{}, fmt.Errorf("coordinate out of range: %q", s)
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}
