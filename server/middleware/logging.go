package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/mira/logger"
)

// probePaths are polled by orchestrators and not worth a log line each.
var probePaths = map[string]bool{
	"/health":    true,
	"/v1/health": true,
	"/ready":     true,
	"/alive":     true,
}

// RequestLogger returns middleware that logs every request with method,
// path, status, duration and response size. Probe paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				"method":             r.Method,
				"path":               r.URL.Path,
				logger.FieldStatus:   sw.Status(),
				logger.FieldDuration: duration.Milliseconds(),
				"bytes":              sw.bytes,
			}
			if r.URL.RawQuery != "" {
				fields["query"] = r.URL.RawQuery
			}
			if id := r.Header.Get(HeaderRequestID); id != "" {
				fields[logger.FieldRequestID] = id
			}

			logByStatus(log, fields, sw.Status())
		})
	}
}

// logByStatus logs request fields at a level matching the status code.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
