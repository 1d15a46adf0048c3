package middleware

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"

	"go.uber.org/zap"
)

// RespondWithError sends a minimal HTML error page. Handlers use it for
// NOT_FOUND and data-store failures; form validation failures re-render the
// originating form instead.
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)

	fmt.Fprintf(w,
		"<!doctype html><html><head><title>%d %s</title></head><body><h1>%d %s</h1><p>%s</p></body></html>",
		statusCode, html.EscapeString(http.StatusText(statusCode)),
		statusCode, html.EscapeString(http.StatusText(statusCode)),
		html.EscapeString(message),
	)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 pages
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)

					RespondWithError(w, http.StatusInternalServerError, "something went wrong")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response, used by the health endpoint
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
