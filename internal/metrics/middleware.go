package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Label values used when a request has no route or no target.
const (
	RouteUnmatched = "unmatched"
	TargetNone     = "none"
	TargetUnknown  = "unknown"
)

// API request metrics, labeled by route pattern and by the index or
// collection the request addressed.
var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syncdex",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "route", "target", "status"}, // status: 2xx / 4xx / 5xx
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "syncdex",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"route", "target"},
	)

	APIRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "syncdex",
			Subsystem: "api",
			Name:      "requests_in_flight",
			Help:      "API requests currently being served",
		},
	)
)

func init() {
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(APIRequestsInFlight)
}

// Middleware records API request count, latency and in-flight requests.
// It must run inside a chi router so the matched route is known.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			APIRequestsInFlight.Inc()
			defer APIRequestsInFlight.Dec()

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route, target := routeLabels(r, status)
			APIRequestsTotal.WithLabelValues(r.Method, route, target, StatusClass(status)).Inc()
			APIRequestDuration.WithLabelValues(route, target).Observe(time.Since(start).Seconds())
		})
	}
}

// routeLabels reads the matched route pattern and the {index} or
// {collection} parameter. A 404 on a matched route means the name was not
// declared, so the name is replaced to keep label values bounded.
func routeLabels(r *http.Request, status int) (route, target string) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return RouteUnmatched, TargetNone
	}
	route = rctx.RoutePattern()
	target = rctx.URLParam("index")
	if target == "" {
		target = rctx.URLParam("collection")
	}
	switch {
	case target == "":
		target = TargetNone
	case status == http.StatusNotFound:
		target = TargetUnknown
	}
	return route, target
}

// StatusClass folds an HTTP status code into 2xx, 3xx, 4xx or 5xx.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
