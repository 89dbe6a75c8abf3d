package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-poster-orders/internal/auth"
	"github.com/ariefcatur/go-poster-orders/internal/metrics"
	"github.com/ariefcatur/go-poster-orders/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Middleware = func(http.Handler) http.Handler

func RequestLogger(log *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func Instrument(sm *metrics.ServerMetrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			sm.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			sm.LatencyMS.WithLabelValues(route, r.Method).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}

// Authenticate requires a valid bearer token and stores the identity in the
// request context: 401 when missing, 403 when invalid.
func Authenticate(v *auth.Verifier) Middleware {
	return authenticate(v, func(w http.ResponseWriter, missing bool) {
		if missing {
			writeError(w, http.StatusUnauthorized, "Missing token")
			return
		}
		writeError(w, http.StatusForbidden, "Invalid token")
	})
}

// AuthenticateOrNotFound is Authenticate for resources whose existence must
// not leak: every failure looks like a missing order.
func AuthenticateOrNotFound(v *auth.Verifier) Middleware {
	return authenticate(v, func(w http.ResponseWriter, _ bool) {
		writeError(w, http.StatusNotFound, "Order not found")
	})
}

func authenticate(v *auth.Verifier, fail func(w http.ResponseWriter, missing bool)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				fail(w, true)
				return
			}
			id, err := v.Verify(token)
			if err != nil {
				fail(w, false)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

type RoleLookup interface {
	Role(ctx context.Context, userID int64) (string, error)
}

// RequireAdmin re-reads the caller's role instead of trusting the token, so
// a demoted admin loses access immediately.
func RequireAdmin(roles RoleLookup, log *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			role, err := roles.Role(r.Context(), id.UserID)
			switch {
			case errors.Is(err, users.ErrNotFound):
				writeError(w, http.StatusNotFound, "User not found")
				return
			case err != nil:
				log.Error("role lookup", zap.Int64("user_id", id.UserID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, msgServerError)
				return
			case role != auth.RoleAdmin:
				writeError(w, http.StatusForbidden, "Admin only")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type RateLimiter interface {
	Allow(ctx context.Context, userID int64) (bool, error)
}

// CheckoutLimit throttles checkouts per user. It fails open when the limiter
// itself is unavailable.
func CheckoutLimit(l RateLimiter, log *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			allowed, err := l.Allow(r.Context(), id.UserID)
			if err != nil {
				log.Warn("rate limiter unavailable", zap.Int64("user_id", id.UserID), zap.Error(err))
				allowed = true
			}
			if !allowed {
				writeError(w, http.StatusTooManyRequests, "Too many checkout attempts, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
