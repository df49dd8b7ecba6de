// Package app wires configuration, adapters and handlers into the HTTP application.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/ratelimiter"
)

// ParseOrigins splits a comma-separated origin list, defaulting to ["*"].
func ParseOrigins(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middleware and routes. quota may be nil.
func BuildRouter(cfg config.Config, srv *httpserver.Server, quota ratelimiter.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", srv.RootHandler())
	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(httpserver.TimeoutMiddleware(cfg.RequestTimeout))
		if cfg.RateLimitPerMin > 0 {
			api.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
		}

		api.Route("/auth", func(a chi.Router) {
			a.Post("/register", srv.RegisterHandler())
			a.Post("/login", srv.LoginHandler())
		})

		api.Group(func(authed chi.Router) {
			authed.Use(srv.Tokens.RequireAuth)

			// routes that call the completion endpoint draw from the caller's AI quota
			aiQuota := httpserver.Quota(quota)

			authed.Route("/interview", func(iv chi.Router) {
				iv.Post("/start", srv.StartInterviewHandler())
				iv.Get("/history", srv.InterviewHistoryHandler())
				iv.With(aiQuota).Get("/{interviewId}/question", srv.InterviewQuestionHandler())
				iv.With(aiQuota).Post("/{interviewId}/answer", srv.InterviewAnswerHandler())
				iv.Post("/{interviewId}/complete", srv.CompleteInterviewHandler())
			})

			authed.Route("/practice", func(p chi.Router) {
				p.Post("/start-session", srv.StartPracticeHandler())
				p.Get("/history", srv.PracticeHistoryHandler())
				p.Delete("/session/{sessionId}", srv.DeleteSessionHandler())
				p.Group(func(ai chi.Router) {
					ai.Use(aiQuota)
					ai.Post("/generate-question", srv.GenerateQuestionHandler())
					ai.Post("/answer-question", srv.AnswerQuestionHandler())
					ai.Post("/evaluate-answer", srv.EvaluateAnswerHandler())
					ai.Post("/modify-answer", srv.ModifyAnswerHandler())
				})
			})
		})
	})

	return httpserver.SecurityHeaders(r)
}
