package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"watchdesk/internal/ratelimit/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/httputil"
	"watchdesk/pkg/requestcontext"
)

type RateLimiter interface {
	CheckSearch(ctx context.Context, userID id.UserID) (*models.RateLimitResult, error)
	CheckLogin(ctx context.Context, email, ip string) (*models.RateLimitResult, error)
	ResetLogin(ctx context.Context, email, ip string)
}

type Middleware struct {
	limiter  RateLimiter
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through.
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

// RateLimitSearch throttles the authenticated caller's searches. It must be
// mounted behind RequireAuth.
func (m *Middleware) RateLimitSearch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		result, err := m.limiter.CheckSearch(ctx, requestcontext.UserID(ctx))
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check search rate limit",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			writeRateLimitExceeded(w, result, "Too many searches. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitLogin throttles login attempts per (email, client address). A
// successful login clears the bucket. Bodies without an email pass through;
// the handler rejects them.
func (m *Middleware) RateLimitLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		email := peekEmail(r)
		if email == "" {
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.limiter.CheckLogin(ctx, email, ip)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check login rate limit",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			writeRateLimitExceeded(w, result, "Too many login attempts. Please try again later.")
			return
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if ww.Status() == http.StatusOK {
			m.limiter.ResetLogin(ctx, email, ip)
		}
	})
}

// peekEmail reads the email from a JSON body and restores the body for the
// next handler.
func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.TrimSpace(payload.Email)
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil || result.Limit == 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	if !result.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	}
	if result.Degraded {
		w.Header().Set("X-RateLimit-Status", "degraded")
	}
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult, message string) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    message,
		RetryAfter: result.RetryAfter,
	})
}
