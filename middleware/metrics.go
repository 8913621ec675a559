package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/dmitrymomot/krustie/core/handler"
)

// unmatchedRoute labels requests that did not resolve to a route, keeping the
// label set bounded.
const unmatchedRoute = "unmatched"

const localInFlight = "metrics_in_flight"

// MetricsConfig configures the Prometheus metrics collector.
type MetricsConfig struct {
	// Namespace prefixes every metric name
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"krustie"`
	// Buckets for the duration histogram (default: prometheus.DefBuckets)
	Buckets []float64 `env:"METRICS_BUCKETS" envSeparator:","`
	// RuntimeCollectors registers the Go and process collectors
	RuntimeCollectors bool `env:"METRICS_RUNTIME" envDefault:"true"`
}

// Metrics records request counts, durations, response sizes and in-flight
// requests into its own registry.
//
// It is both a pipeline middleware, which tracks in-flight requests, and a
// dispatcher observer, which records finalized responses:
//
//	m := middleware.NewMetrics(middleware.MetricsConfig{Namespace: "app"})
//	root.Use(m)
//	root.Get("/metrics", m.Handler())
//	d := dispatch.New(root, dispatch.WithObserver(m))
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a new registry.
func NewMetrics(cfg MetricsConfig) *Metrics {
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = prometheus.DefBuckets
	}

	labels := []string{"method", "route", "status"}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   cfg.Buckets,
		}, labels),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response body size in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}, labels),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		}),
	}

	m.registry.MustRegister(m.requests, m.duration, m.size, m.inFlight)

	if cfg.RuntimeCollectors {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return m
}

// Process implements handler.Middleware. It marks the request as in flight
// until the dispatcher reports it finalized.
func (m *Metrics) Process(req *handler.Request, res *handler.Response) handler.Result {
	if _, tracked := res.Local(localInFlight); !tracked {
		m.inFlight.Inc()
		res.SetLocal(localInFlight, true)
	}
	return handler.Next
}

// Observe records a finalized response. It satisfies dispatch.Observer.
func (m *Metrics) Observe(req *handler.Request, res *handler.Response, elapsed time.Duration) {
	if _, tracked := res.Local(localInFlight); tracked {
		m.inFlight.Dec()
	}

	route := res.LocalString(handler.LocalRoute)
	if route == "" {
		route = unmatchedRoute
	}

	status := strconv.Itoa(res.StatusCode())
	method := string(req.Method())
	if method == "" {
		method = "INVALID"
	}

	m.requests.WithLabelValues(method, route, status).Inc()
	m.duration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
	m.size.WithLabelValues(method, route, status).Observe(float64(len(res.BodyBytes())))
}

// Register adds application collectors to the metrics registry.
func (m *Metrics) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Gatherer returns the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler returns a route handler exposing the registry in the Prometheus
// text format.
func (m *Metrics) Handler() handler.HandlerFunc {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	return func(req *handler.Request, res *handler.Response) {
		families, err := m.registry.Gather()
		if err != nil {
			res.Status(http.StatusInternalServerError).Text(err.Error())
			return
		}

		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				res.Status(http.StatusInternalServerError).Text(err.Error())
				return
			}
		}

		res.Body(buf.Bytes(), string(format))
	}
}

// HTTPHandler exposes the registry as a plain net/http handler, for serving
// metrics on a separate listener.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
