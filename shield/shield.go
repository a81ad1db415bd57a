// Package shield provides HTTP middleware for the crawld API: security
// headers, body limits, request IDs, request logging, per-IP rate
// limiting, and HEAD method handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultAPIStack(logger) {
//	    r.Use(mw)
//	}
package shield

import (
	"log/slog"
	"net/http"
)

// DefaultAPIStack returns the standard middleware stack for a JSON API.
// Ordered: HeadToGet → SecurityHeaders → MaxBody → RequestID →
// RequestLogger → RateLimiter. Health checks bypass the rate limiter.
func DefaultAPIStack(log *slog.Logger) []func(http.Handler) http.Handler {
	rl := NewRateLimiter(120, 60, "/health")
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(64 * 1024),
		RequestID,
		RequestLogger(log),
		rl.Middleware,
	}
}
