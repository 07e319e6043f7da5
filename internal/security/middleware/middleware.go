package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/eventcrm/internal/observability/metrics"
	"github.com/aryan0dhankhar/eventcrm/internal/security/audit"
	"github.com/aryan0dhankhar/eventcrm/internal/security/ratelimit"
)

// ErrMalformedAuthorization is returned for an Authorization header that is not "Bearer <token>".
var ErrMalformedAuthorization = errors.New("authorization header must be 'Bearer <token>'")

const RequestIDHeader = "X-Request-ID"

type tokenContextKey struct{}

// ExtractToken returns the token of a "Bearer <token>" header value.
func ExtractToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedAuthorization
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMalformedAuthorization
	}
	return token, nil
}

// BearerToken stores the bearer token of the request in its context.
// Requests without an Authorization header pass through with no token; the
// services reject them. A malformed header is answered with 401 here.
func BearerToken(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token, err := ExtractToken(header)
			if err != nil {
				log.Debug("rejected authorization header", slog.String("path", r.URL.Path))
				writeJSONError(w, http.StatusUnauthorized, "invalid auth")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tokenContextKey{}, token)))
		})
	}
}

// TokenFromContext returns the bearer token stored by BearerToken, or "".
func TokenFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(tokenContextKey{}).(string); ok {
		return t
	}
	return ""
}

// RequestID tags each request with an ID (reusing a well-formed inbound one),
// exposes it on the response and in the audit context, and logs completion.
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(reqID); err != nil {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			start := time.Now()
			next.ServeHTTP(w, r.WithContext(audit.WithRequestID(r.Context(), reqID)))

			log.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// LoginRateLimit throttles login attempts per client address.
func LoginRateLimit(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientAddr(r)
			if !limiter.Allow(key) {
				wait := limiter.RetryAfter(key)
				log.Warn("login rate limit exceeded",
					slog.String("client", key),
					slog.Duration("retry_after", wait),
				)
				metrics.ObserveLogin("rate_limited")
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second)/time.Second)))
				writeJSONError(w, http.StatusTooManyRequests, "too many login attempts")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddr is the host part of the request's remote address.
func ClientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
