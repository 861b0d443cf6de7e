package metrics

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// EnvLatencyBuckets overrides the latency buckets, in seconds, formatted like "0.1,1,10".
	EnvLatencyBuckets     = "REALIA_HTTP_LATENCY_BUCKETS"
	RequestsCollectorName = "http_requests_total"
	LatencyCollectorName  = "http_request_duration_seconds"
)

// mint streams stay open for the whole pipeline, so the buckets reach into minutes
var defaultBuckets = []float64{0.05, 0.25, 1, 5, 15, 60, 180}

// Middleware counts requests and observes their latency partitioned by status code,
// method and route pattern.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func latencyBuckets() []float64 {
	conf, ok := os.LookupEnv(EnvLatencyBuckets)
	if !ok {
		return defaultBuckets
	}
	var buckets []float64
	for _, v := range strings.Split(conf, ",") {
		f64v, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return defaultBuckets
		}
		buckets = append(buckets, f64v)
	}
	return buckets
}

func NewMiddleware(name string) *Middleware {
	var m Middleware
	m.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem:   realia,
			Name:        RequestsCollectorName,
			Help:        "Number of HTTP requests partitioned by status code, method and route.",
			ConstLabels: prometheus.Labels{"service": name},
		}, []string{"code", "method", "path"})

	m.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem:   realia,
		Name:        LatencyCollectorName,
		Help:        "Time spent on the request partitioned by status code, method and route.",
		ConstLabels: prometheus.Labels{"service": name},
		Buckets:     latencyBuckets(),
	}, []string{"code", "method", "path"})

	return &m
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			return
		}
		rp := rctx.RoutePattern()
		if rp == "" {
			// unmatched paths would blow up the label cardinality
			rp = "unmatched"
		}
		code := strconv.Itoa(ww.Status())
		m.requests.WithLabelValues(code, r.Method, rp).Inc()
		m.latency.WithLabelValues(code, r.Method, rp).Observe(time.Since(start).Seconds())
	}
	return http.HandlerFunc(fn)
}

func (m *Middleware) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.requests, m.latency}
}

// MustRegisterDefault registers the collectors to the default registerer. A middleware
// created again for the same service reuses the collectors registered first.
func (m *Middleware) MustRegisterDefault() {
	m.requests = register(m.requests).(*prometheus.CounterVec)
	m.latency = register(m.latency).(*prometheus.HistogramVec)
}

func register(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
