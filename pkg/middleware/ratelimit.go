package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// RateLimitConfig bounds requests per client IP on a set of paths.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Disabled bool
	// Paths are matched exactly against r.URL.Path. Other paths are not limited.
	Paths []string
}

// RateLimit returns middleware that limits requests per client IP on
// cfg.Paths using go-chi/httprate. Limited requests get a JSON 429.
func RateLimit(cfg RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	if cfg.Disabled || cfg.Requests <= 0 || len(cfg.Paths) == 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	paths := make(map[string]struct{}, len(cfg.Paths))
	for _, p := range cfg.Paths {
		paths[p] = struct{}{}
	}

	limiter := httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if logger != nil {
				logger.Warn("Rate limit exceeded",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests"})
		}),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := paths[r.URL.Path]; ok {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
