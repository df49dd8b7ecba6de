package httpserver

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/ratelimiter"
)

const requestIDHeader = "X-Request-Id"

// Recoverer turns panics into a 500 error envelope.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					observability.LoggerFromContext(r.Context()).Error("panic recovered",
						slog.Any("recover", rec), slog.String("path", r.URL.Path))
					writeError(w, r, fmt.Errorf("%w: panic", domain.ErrInternal), nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

var (
	reqIDMu      sync.Mutex
	reqIDEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0) //nolint:gosec // Weak random is sufficient for ULID entropy.
)

func newReqID() string {
	reqIDMu.Lock()
	defer reqIDMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), reqIDEntropy)
	if err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return id.String()
}

// RequestID propagates or assigns a request id and attaches a logger carrying it and the
// trace ids to the request context.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" || len(reqID) > 128 {
				reqID = newReqID()
			}
			spanCtx := trace.SpanContextFromContext(r.Context())
			lg := slog.Default().With(
				slog.String("request_id", reqID),
				slog.String("trace_id", spanCtx.TraceID().String()),
			)
			ctx := observability.ContextWithLogger(r.Context(), lg)
			ctx = observability.ContextWithRequestID(ctx, reqID)
			w.Header().Set(requestIDHeader, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TimeoutMiddleware answers 503 when the handler runs past d.
func TimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":{"code":"TIMEOUT","message":"request timed out","details":null}}`)
	}
}

// SecurityHeaders adds strict security headers suitable for a JSON API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// AccessLog logs one line per request, at a level chosen by status class.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r = r.WithContext(observability.ContextWithUserSlot(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("route", routePattern(r)),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			}
			if uid := observability.AuthenticatedUser(r.Context()); uid != "" {
				attrs = append(attrs, slog.String("user_id", uid))
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}
			observability.LoggerFromContext(r.Context()).LogAttrs(r.Context(), level, "http_access", attrs...)
		})
	}
}

// Quota charges one token per request to the authenticated user's bucket. It must run after
// RequireAuth. Limiter errors fail open.
func Quota(l ratelimiter.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := observability.UserIDFromContext(r.Context())
			if uid == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed, retryAfter, err := l.Allow(r.Context(), uid, 1)
			if err != nil {
				observability.LoggerFromContext(r.Context()).Warn("quota check failed, allowing", slog.Any("error", err))
			}
			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, r, fmt.Errorf("%w: AI quota exhausted, retry in %ds", domain.ErrRateLimited, secs),
					map[string]int{"retryAfterSeconds": secs})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
