package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Provider call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_dispatches_total",
			Help: "Total number of chat dispatches by outcome",
		},
		[]string{"outcome"},
	)
	DispatchTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_dispatch_tokens",
			Help:    "Estimated token counts per dispatch",
			Buckets: []float64{16, 64, 256, 1024, 4096, 16384},
		},
		[]string{"kind"},
	)

	EnrichLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrich_lookups_total",
			Help: "Total number of reference enrichment lookups by source and outcome",
		},
		[]string{"source", "outcome"},
	)
)

// InitMetrics registers all Prometheus collectors once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(DispatchesTotal)
	prometheus.MustRegister(DispatchTokens)
	prometheus.MustRegister(EnrichLookupsTotal)
}

// RecordAIRequest records one provider call attempt.
func RecordAIRequest(provider string, ok bool, d time.Duration) {
	outcome := "error"
	if ok {
		outcome = "success"
	}
	AIRequestsTotal.WithLabelValues(provider, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordDispatch records the final outcome of one dispatch.
func RecordDispatch(outcome string) {
	DispatchesTotal.WithLabelValues(outcome).Inc()
}

// RecordEnrichLookup records one reference lookup attempt.
func RecordEnrichLookup(source, outcome string) {
	EnrichLookupsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordDispatchTokens records estimated prompt/reply token counts.
func RecordDispatchTokens(prompt, reply int) {
	DispatchTokens.WithLabelValues("prompt").Observe(float64(prompt))
	DispatchTokens.WithLabelValues("reply").Observe(float64(reply))
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}
