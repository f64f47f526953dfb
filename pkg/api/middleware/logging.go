package middleware

import (
	"net/http"
	"time"

	"github.com/dd0wney/aspire-acoustics/pkg/logging"
)

// Logging logs one line per request with status, size and latency. Server
// errors log at Error, client errors at Warn, everything else at Debug except
// mutations, which log at Info.
func Logging(logger logging.Logger) func(http.Handler) http.Handler {
	logger = logging.OrNop(logger).With(logging.Component("http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", rec.statusCode),
				logging.Int("bytes", rec.bytesWritten),
				logging.Latency(time.Since(start)),
			}
			if id := GetRequestID(r); id != "" {
				fields = append(fields, logging.RequestID(id))
			}

			switch {
			case rec.statusCode >= 500:
				logger.Error("request failed", fields...)
			case rec.statusCode >= 400:
				logger.Warn("request rejected", fields...)
			case r.Method == http.MethodGet || r.Method == http.MethodHead:
				logger.Debug("request served", fields...)
			default:
				logger.Info("request served", fields...)
			}
		})
	}
}
