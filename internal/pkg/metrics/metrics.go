package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadcap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadcap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadcap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// View engine metrics
	ViewRebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadcap",
		Subsystem: "view",
		Name:      "rebuilds_total",
		Help:      "Total derived-state rebuilds by input kind",
	}, []string{"kind"})

	AlternativeResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadcap",
		Subsystem: "view",
		Name:      "alternative_responses_total",
		Help:      "Alternative-route responses by request and outcome",
	}, []string{"request", "outcome"})

	ActiveViews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roadcap",
		Subsystem: "view",
		Name:      "active",
		Help:      "Current number of open views",
	})

	ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadcap",
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Duration of upstream provider requests",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"provider", "operation"})

	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadcap",
		Subsystem: "provider",
		Name:      "errors_total",
		Help:      "Total upstream provider errors",
	}, []string{"provider", "operation"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roadcap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadcap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadcap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roadcap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roadcap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roadcap",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})

	DBPoolEmptyAcquires = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadcap",
		Subsystem: "db",
		Name:      "pool_empty_acquires_total",
		Help:      "Total times a connection had to be established when acquiring from pool",
	})

	DBPoolAcquires = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadcap",
		Subsystem: "db",
		Name:      "pool_acquires_total",
		Help:      "Total successful connection acquisitions from the pool",
	})

	DBPoolAcquireSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadcap",
		Subsystem: "db",
		Name:      "pool_acquire_seconds_total",
		Help:      "Total time spent acquiring connections from the pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat the pool gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
	EmptyAcquireCount() int64
	AcquireCount() int64
	AcquireDuration() time.Duration
}

var (
	poolMu   sync.Mutex
	lastPool struct {
		empty, acquires int64
		acquireTime     time.Duration
	}
)

// UpdateDBPoolMetrics copies pool statistics into the db gauges. Pool counters
// are cumulative, so only the growth since the previous call is added.
func UpdateDBPoolMetrics(stat PoolStat) {
	DBPoolConnsAcquired.Set(float64(stat.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(stat.IdleConns()))
	DBPoolConnsOpen.Set(float64(stat.TotalConns()))

	poolMu.Lock()
	defer poolMu.Unlock()
	if d := stat.EmptyAcquireCount() - lastPool.empty; d > 0 {
		DBPoolEmptyAcquires.Add(float64(d))
	}
	if d := stat.AcquireCount() - lastPool.acquires; d > 0 {
		DBPoolAcquires.Add(float64(d))
	}
	if d := stat.AcquireDuration() - lastPool.acquireTime; d > 0 {
		DBPoolAcquireSeconds.Add(d.Seconds())
	}
	lastPool.empty = stat.EmptyAcquireCount()
	lastPool.acquires = stat.AcquireCount()
	lastPool.acquireTime = stat.AcquireDuration()
}
