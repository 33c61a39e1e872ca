// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const (
	rateLimitExceededMessage = "too many redirections for this short url, try again later"

	// HashParam is the chi URL parameter carrying the short URL hash.
	HashParam = "hash"

	headerLimit     = "X-RateLimit-Limit"
	headerRemaining = "X-RateLimit-Remaining"
	headerReset     = "X-RateLimit-Reset"
	headerRetry     = "Retry-After"
)

// TooManyRedirectsResponse is the 429 body.
type TooManyRedirectsResponse struct {
	Error            string    `json:"error"`
	Key              string    `json:"key"`
	CurrentRedirects int       `json:"current_redirects"`
	MaxRedirects     int       `json:"max_redirects"`
	WindowSeconds    int       `json:"window_seconds"`
	ResetAt          time.Time `json:"reset_at"`
}

// KnownKey reports whether key names a stored short URL.
type KnownKey func(ctx context.Context, key string) (bool, error)

// NewRedirectLimiterMiddleware gates the route on the hash URL parameter.
// Admitted requests carry X-RateLimit-* headers; denied ones get a 429.
// When known is set, keys it does not recognize skip the limiter entirely
// and never get a counter.
func NewRedirectLimiterMiddleware(limiter ports.RedirectLimiter, known KnownKey, logger log.Logger, now func() time.Time) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := chi.URLParam(r, HashParam)
			if limiter == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if known != nil {
				ok, err := known(r.Context(), key)
				if err != nil {
					_ = level.Warn(logger).Log("msg", "hash lookup failed, applying limit", "hash", key, "err", err)
				} else if !ok {
					next.ServeHTTP(w, r)
					return
				}
			}

			if !limiter.IsAllowed(key) {
				info := Snapshot(limiter, key)
				_ = level.Info(logger).Log(
					"msg", "redirect limit exceeded",
					"hash", key,
					"ip", ClientIP(r),
					"current", info.CurrentRedirects,
					"max", info.MaxRedirects,
				)
				writeTooManyRequests(w, info, now())
				return
			}

			writeRateLimitHeaders(w, Snapshot(limiter, key))
			next.ServeHTTP(w, r)
		})
	}
}

// Snapshot collects the diagnostic view of key.
func Snapshot(limiter ports.RedirectLimiter, key string) domain.RateLimitInfo {
	resetAt, ok := limiter.ResetAt(key)
	return domain.RateLimitInfo{
		Key:              key,
		CurrentRedirects: limiter.CurrentRedirects(key),
		MaxRedirects:     limiter.MaxRedirects(),
		WindowSeconds:    limiter.WindowSeconds(),
		ResetAt:          resetAt,
		HasWindow:        ok,
	}
}

func writeRateLimitHeaders(w http.ResponseWriter, info domain.RateLimitInfo) {
	w.Header().Set(headerLimit, strconv.Itoa(info.MaxRedirects))
	w.Header().Set(headerRemaining, strconv.Itoa(info.Remaining()))
	if info.HasWindow {
		w.Header().Set(headerReset, strconv.FormatInt(info.ResetAt.Unix(), 10))
	}
}

func writeTooManyRequests(w http.ResponseWriter, info domain.RateLimitInfo, now time.Time) {
	writeRateLimitHeaders(w, info)
	if info.HasWindow {
		w.Header().Set(headerRetry, strconv.Itoa(retryAfterSeconds(info.ResetAt, now)))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(TooManyRedirectsResponse{
		Error:            rateLimitExceededMessage,
		Key:              info.Key,
		CurrentRedirects: info.CurrentRedirects,
		MaxRedirects:     info.MaxRedirects,
		WindowSeconds:    info.WindowSeconds,
		ResetAt:          info.ResetAt.UTC(),
	})
}

func retryAfterSeconds(resetAt, now time.Time) int {
	seconds := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// ClientIP picks the visitor address from the proxy headers, falling back to
// the connection address.
func ClientIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if xRealIP != "" {
		return xRealIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}

	return host
}
