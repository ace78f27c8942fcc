package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"portalx/internal/ratelimit/models"
	dErrors "portalx/pkg/domain-errors"
	"portalx/pkg/platform/httputil"
	"portalx/pkg/platform/middleware/metadata"
)

// RateLimiter is the slice of the rate limit service the middleware needs.
type RateLimiter interface {
	Check(ctx context.Context, ip, route string, class models.RouteClass) *models.Result
	MarkSuccess(ctx context.Context, ip, route string, class models.RouteClass)
}

// Middleware applies sliding-window admission control per route class.
type Middleware struct {
	limiter  RateLimiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit admits or rejects requests against the class quota, keyed by
// (client IP, request path). Quota headers are set on every response; a
// rejection is a 429 with Retry-After equal to the window.
//
// For skip-successful classes the response status is captured and, when it
// indicates success, the recorded attempt is retracted so repeated
// successful logins don't exhaust the auth quota while repeated failures do.
func (m *Middleware) RateLimit(class models.RouteClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := metadata.GetClientIP(ctx)
			route := r.URL.Path

			result := m.limiter.Check(ctx, ip, route, class)

			// Quota headers go out regardless of outcome.
			addRateLimitHeaders(w, result)

			if !result.Allowed {
				m.logger.Warn("rate limit exceeded",
					"class", class,
					"route", route,
					"request_id", metadata.GetRequestID(ctx),
				)
				writeRateLimitExceeded(w, result)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < http.StatusBadRequest {
				m.limiter.MarkSuccess(ctx, ip, route, class)
			}
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil || result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	msg := result.Message
	if msg == "" {
		msg = "too many requests"
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, msg))
}

// statusRecorder captures the response status for the skip-successful policy.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	return r.ResponseWriter.Write(b)
}
