package httpmiddleware

import (
	"net/http"

	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 response with a JSON message
// body. The panic value and stack are logged to lg, which must not depend on
// inner middleware: Recovery usually runs outside InjectLogger.
func Recovery(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				fields := []zap.Field{
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				}
				// RequestID has already echoed the id when it ran inside us.
				if id := w.Header().Get(RequestIDHeader); id != "" {
					fields = append(fields, zap.String("request_id", id))
				}
				lg.Error("Handler panic", fields...)
				w.Header().Set("Connection", "close")
				WriteMessage(w, http.StatusInternalServerError, "Internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
