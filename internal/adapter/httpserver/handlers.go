// Package httpserver exposes the interview coach over HTTP: JSON handlers for the auth,
// interview and practice routes plus the middleware stack they run behind.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

// ReadinessCheck probes one dependency.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Interviews usecase.InterviewService
	Practice   usecase.PracticeService
	Auth       usecase.AuthService
	Tokens     *TokenIssuer
	Checks     []ReadinessCheck
}

// NewServer constructs a Server.
func NewServer(cfg config.Config, iv usecase.InterviewService, ps usecase.PracticeService, auth usecase.AuthService, tokens *TokenIssuer, checks ...ReadinessCheck) *Server {
	return &Server{Cfg: cfg, Interviews: iv, Practice: ps, Auth: auth, Tokens: tokens, Checks: checks}
}

// RootHandler answers with a liveness banner.
func (s *Server) RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "AI Interview Game API is running!"})
	}
}

// HealthzHandler reports process liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes every configured dependency and answers 503 when any fails.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		checks := make([]check, 0, len(s.Checks))
		ok := true
		for _, c := range s.Checks {
			res := check{Name: c.Name, OK: true}
			if err := c.Check(ctx); err != nil {
				res.OK, res.Details = false, err.Error()
				ok = false
			}
			checks = append(checks, res)
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
