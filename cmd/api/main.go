package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/roadcap/internal/adapters/bookingapi"
	"github.com/samirrijal/roadcap/internal/adapters/http"
	natsadapter "github.com/samirrijal/roadcap/internal/adapters/nats"
	"github.com/samirrijal/roadcap/internal/adapters/nominatim"
	"github.com/samirrijal/roadcap/internal/adapters/osrm"
	"github.com/samirrijal/roadcap/internal/adapters/postgres"
	"github.com/samirrijal/roadcap/internal/adapters/valkey"
	"github.com/samirrijal/roadcap/internal/core/ports"
	"github.com/samirrijal/roadcap/internal/core/usecases"
	"github.com/samirrijal/roadcap/internal/pkg/config"
	"github.com/samirrijal/roadcap/internal/pkg/logging"
	"github.com/samirrijal/roadcap/internal/pkg/metrics"
	"github.com/samirrijal/roadcap/internal/pkg/telemetry"
	"github.com/samirrijal/roadcap/internal/pkg/upstream"
)

func main() {
	cfg, err := config.Load("roadcap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{}

	// Cache
	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer c.Close()
		cache, deps.Cache = c, c
	}

	// Capacity source
	var capacity ports.CapacityLookup
	if cfg.Capacity.Source == "postgres" {
		db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		deps.DB = db
		capacity = usecases.NewCapacityService(postgres.NewRoadSegmentRepo(db), cache, cfg.Capacity.CacheTTL)
		go reportPoolStats(ctx, db)
	}

	// Scene fan-out
	var publisher ports.ScenePublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.Subject); err != nil {
		slog.Warn("nats unavailable, scene push disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
		deps.NATS = pub.Conn()

		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			deps.Scenes = sub
		}
	}

	// Upstream services
	routing := osrm.New(
		upstream.New("osrm", cfg.OSRM.BaseURL, cfg.OSRM.Timeout()),
		cfg.OSRM.Profile,
	)
	geocoder := nominatim.New(
		upstream.New("nominatim", cfg.Geocoder.BaseURL, cfg.Geocoder.Timeout(), upstream.WithUserAgent(cfg.Geocoder.UserAgent)),
	)
	bookings := bookingapi.New(
		upstream.New("booking_api", cfg.BookingAPI.BaseURL, cfg.BookingAPI.Timeout()),
	)

	// Use cases
	views := usecases.NewViewService(routing, geocoder, capacity, publisher, cache, usecases.ViewConfig{
		SegmentCount:         cfg.Segmentation.SegmentCount,
		ClickToleranceMeters: cfg.Segmentation.ClickToleranceMeters,
		ShowLegend:           cfg.Segmentation.ShowLegend,
		GeocodeCacheTTL:      cfg.Geocoder.CacheTTL,
	})
	defer views.Close()

	deps.Views = views
	deps.Bookings = usecases.NewBookingViewService(bookings, views)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // client-supplied paths can be long
		AppName:      "roadcap API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "ETag, Link, Location",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "capacity_source", cfg.Capacity.Source)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats exports connection pool gauges until ctx is done.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Stat())
		case <-ctx.Done():
			return
		}
	}
}
