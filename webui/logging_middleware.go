package webui

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"thumbnail_studio/logging"
)

// RequestLogger logs one line per request. Paths in skip are not logged
// unless they fail.
func RequestLogger(logger *logging.Logger, skip ...string) func(http.Handler) http.Handler {
	log := logger.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status < http.StatusBadRequest && slices.Contains(skip, r.URL.Path) {
				return
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			}
			if id := middleware.GetReqID(r.Context()); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}

			switch {
			case status >= http.StatusInternalServerError:
				log.Error("request", fields...)
			case status >= http.StatusBadRequest:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
		})
	}
}
