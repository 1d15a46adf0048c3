package middleware

import (
	"context"
	"net/http"

	"bazaar/internal/domain"

	"go.uber.org/zap"
)

type contextKey string

const (
	UserKey contextKey = "user"

	// SessionCookie is the name of the signed session cookie
	SessionCookie = "bazaar_session"
)

// UserResolver turns a session cookie value into its user. Implemented by the
// account service.
type UserResolver interface {
	UserBySession(ctx context.Context, cookieValue string) (*domain.User, error)
}

// CurrentUser resolves the session cookie, if any, and stores the user in the
// request context. Anonymous requests pass through untouched; a stale or
// tampered cookie is treated as anonymous.
func CurrentUser(resolver UserResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.UserBySession(r.Context(), cookie.Value)
			if err != nil {
				logger.Debug("Session cookie did not resolve", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", user.ID.String()),
				zap.String("username", user.Username),
			)

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser gates routes that need an authenticated user. Anonymous
// requests are redirected to the login page, never silently dropped.
func RequireUser(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetUser(r.Context()); !ok {
				logger.Debug("Anonymous request to protected route",
					zap.String("path", r.URL.Path),
				)
				http.Redirect(w, r, "/login/", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUser extracts the authenticated user from the request context
func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok
}
