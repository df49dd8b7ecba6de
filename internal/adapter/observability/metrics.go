package observability

import (
	"net/http"
	"strconv"
	"sync"
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
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60, 180},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of completion requests by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Completion request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		},
		[]string{"provider", "operation"},
	)
	AIFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallbacks_total",
			Help: "Total number of canned or rule-based fallbacks served per task",
		},
		[]string{"task"},
	)
	AIPromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens",
			Help:    "Approximate prompt size in tokens per task",
			Buckets: prometheus.ExponentialBuckets(16, 2, 9),
		},
		[]string{"task"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Approximate tokens exchanged with the completion endpoint, by task and direction",
		},
		[]string{"task", "direction"},
	)

	EvaluationScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_score",
			Help:    "Distribution of answer scores ([0,100])",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
	SessionsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_started_total",
			Help: "Total number of interview and practice sessions started",
		},
		[]string{"kind"},
	)
)

var initMetricsOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initMetricsOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			AIFallbacksTotal,
			AIPromptTokens,
			AITokensTotal,
			EvaluationScore,
			SessionsStartedTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveCompletion records one completion attempt. outcome is "ok", "error" or "short_circuit".
func ObserveCompletion(provider, operation, outcome string, d time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	if outcome != "short_circuit" {
		AIRequestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
	}
}

// ObserveFallback counts a fallback served for task.
func ObserveFallback(task string) {
	AIFallbacksTotal.WithLabelValues(task).Inc()
}

// ObservePromptTokens records the token size of a prompt for task.
func ObservePromptTokens(task string, n int) {
	if n > 0 {
		AIPromptTokens.WithLabelValues(task).Observe(float64(n))
	}
}

// ObserveTokenUsage adds the prompt and completion token counts of a successful call for task.
func ObserveTokenUsage(task string, prompt, completion int) {
	if prompt > 0 {
		AITokensTotal.WithLabelValues(task, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		AITokensTotal.WithLabelValues(task, "completion").Add(float64(completion))
	}
}

// ObserveScore records a final answer score.
func ObserveScore(score int) {
	if score >= 0 && score <= 100 {
		EvaluationScore.Observe(float64(score))
	}
}

// SessionStarted counts a new session of kind (interview|practice).
func SessionStarted(kind string) {
	SessionsStartedTotal.WithLabelValues(kind).Inc()
}
