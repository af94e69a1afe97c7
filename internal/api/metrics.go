package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
)

// Metrics bundles the Prometheus collectors for the HTTP surface.
type Metrics struct {
	gatherer prometheus.Gatherer

	Requests         *prometheus.CounterVec
	Durations        *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	Facilities       prometheus.Gauge
	HighlightMatches prometheus.Histogram
}

// NewMetrics registers the collectors against reg, defaulting to the global
// registry when nil. Registering twice on one registry reuses the existing
// collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{gatherer: gatherer}
	var err error

	if m.Requests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "healthmap_http_requests_total",
		Help: "HTTP requests handled, labeled by route pattern, method and status code.",
	}, []string{"route", "method", "code"})); err != nil {
		return nil, err
	}
	if m.Durations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "healthmap_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"route"})); err != nil {
		return nil, err
	}
	if m.CacheLookups, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "healthmap_cache_lookups_total",
		Help: "Result cache lookups, labeled by kind and result (hit or miss).",
	}, []string{"kind", "result"})); err != nil {
		return nil, err
	}
	if m.Facilities, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "healthmap_snapshot_facilities",
		Help: "Facilities in the current snapshot.",
	})); err != nil {
		return nil, err
	}
	if m.HighlightMatches, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "healthmap_highlight_matches",
		Help:    "Facilities matched per highlight request.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
	})); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler exposes the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations keyed by the matched chi
// route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.Durations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) cacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, eris.Errorf("api: collector %T already registered with incompatible type", c)
		}
		return c, eris.Wrap(err, "api: register collector")
	}
	return c, nil
}
