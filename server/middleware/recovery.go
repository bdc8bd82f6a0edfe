package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "github.com/kbukum/mira/errors"
	"github.com/kbukum/mira/logger"
)

// Recovery turns a handler panic into a 500 carrying the standard error
// body. http.ErrAbortHandler is re-raised so net/http can drop the
// connection.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				log.Error("Panic recovered", map[string]interface{}{
					logger.FieldError:     fmt.Sprint(rec),
					logger.FieldRequestID: r.Header.Get(HeaderRequestID),
					"stack":               string(debug.Stack()),
					"path":                r.URL.Path,
					"method":              r.Method,
				})
				appErr := apperrors.Internal(fmt.Errorf("panic: %v", rec))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(appErr.HTTPStatus())
				_ = json.NewEncoder(w).Encode(appErr.Body(r.Header.Get(HeaderRequestID)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
