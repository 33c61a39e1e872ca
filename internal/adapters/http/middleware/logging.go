package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// RequestLogger writes one log line per request.
func RequestLogger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func(begin time.Time) {
				l := level.Debug(logger)
				if ww.Status() >= http.StatusInternalServerError {
					l = level.Error(logger)
				}
				_ = l.Log(
					"bytes", ww.BytesWritten(),
					"duration_ns", time.Since(begin).Nanoseconds(),
					"method", r.Method,
					"path", r.URL.Path,
					"remote", ClientIP(r),
					"request_id", chimiddleware.GetReqID(r.Context()),
					"status", ww.Status(),
				)
			}(time.Now())

			next.ServeHTTP(ww, r)
		})
	}
}
