// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "residencyhub"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route, method and status."},
		[]string{"route", "method", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by route.", Buckets: prometheus.DefBuckets},
		[]string{"route", "method"},
	)
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "login_attempts_total", Help: "Login attempts by provider and result."},
		[]string{"provider", "result"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Requests rejected by limiter."},
		[]string{"limiter"},
	)
	ImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "import_rows_total", Help: "CSV rows processed by import kind and result."},
		[]string{"kind", "result"},
	)
	BackfillFixed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "oncall_backfill_documents_total", Help: "On-call documents touched by the date backfill."},
		[]string{"action"},
	)
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "job_runs_total", Help: "Scheduled job runs by job and result."},
		[]string{"job", "result"},
	)
)

// Registry is the app's private registry. Tests may register against it
// repeatedly without colliding with the global default.
var Registry = newRegistry()

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests,
		HTTPDuration,
		LoginAttempts,
		RateLimitRejected,
		ImportRows,
		BackfillFixed,
		JobRuns,
	)
	return reg
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Middleware records request counts and latency. The route label is the chi
// route pattern so path parameters don't explode cardinality.
func Middleware(next http.Handler) http.Handler {
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
		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveImport adds the ok/rejected row counts of one import.
func ObserveImport(kind string, ok, rejected int) {
	if ok > 0 {
		ImportRows.WithLabelValues(kind, "ok").Add(float64(ok))
	}
	if rejected > 0 {
		ImportRows.WithLabelValues(kind, "rejected").Add(float64(rejected))
	}
}

// ObserveBackfill adds the fixed/merged counts of one backfill run.
func ObserveBackfill(fixed, merged int) {
	BackfillFixed.WithLabelValues("fixed").Add(float64(fixed))
	BackfillFixed.WithLabelValues("merged").Add(float64(merged))
}
