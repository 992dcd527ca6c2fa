// Package metrics exposes Prometheus collectors for the dashboard service:
// HTTP traffic, backend fetch outcomes and fetch cycle timings.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dashboard"

// Collector owns a private registry so several instances can coexist in
// tests.
type Collector struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	fetches         *prometheus.CounterVec
	fetchAttempts   *prometheus.HistogramVec
	degraded        *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	cyclesDiscarded prometheus.Counter
}

// New creates a Collector with Go runtime and process collectors registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_fetches_total",
				Help:      "Settled backend requests by section and outcome",
			},
			[]string{"section", "outcome"},
		),
		fetchAttempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_fetch_attempts",
				Help:      "Attempts used per settled backend request",
				Buckets:   []float64{1, 2},
			},
			[]string{"section"},
		),
		degraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sections_degraded_total",
				Help:      "Sections that fell back to their default value",
			},
			[]string{"section"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_cycle_duration_seconds",
				Help:      "Time from the start of a fetch cycle until every request settled",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		cyclesDiscarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_cycles_discarded_total",
				Help:      "Fetch cycles superseded by a newer cycle before committing",
			},
		),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.fetches,
		c.fetchAttempts,
		c.degraded,
		c.cycleDuration,
		c.cyclesDiscarded,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// FetchSettled records the outcome of one backend request.
func (c *Collector) FetchSettled(section string, ok bool, attempts int) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	c.fetches.WithLabelValues(section, outcome).Inc()
	c.fetchAttempts.WithLabelValues(section).Observe(float64(attempts))
}

// SectionDegraded counts a section that fell back.
func (c *Collector) SectionDegraded(section string) {
	c.degraded.WithLabelValues(section).Inc()
}

// CycleCompleted records the duration of a settled cycle.
func (c *Collector) CycleCompleted(d time.Duration, _ int) {
	c.cycleDuration.Observe(d.Seconds())
}

// CycleDiscarded counts a stale cycle.
func (c *Collector) CycleDiscarded() {
	c.cyclesDiscarded.Inc()
}

// Middleware records request counts and latencies per route template.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			status := ctx.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method

			c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
