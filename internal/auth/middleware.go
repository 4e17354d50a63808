package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/mojomaniac/skillswap/internal/apperror"
)

type contextKey struct{ name string }

var (
	userIDKey        = contextKey{"user_id"}
	errMissingBearer = apperror.New(apperror.KindUnauthorized, "missing bearer token")
)

// Verifier validates a bearer token and returns the subject user id.
type Verifier interface {
	Verify(token string) (string, error)
}

// RequireSession returns middleware that validates the Authorization bearer
// token and places the user id in the request context. onError renders the
// failure so the error-to-status mapping stays in one place.
func RequireSession(verifier Verifier, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				onError(w, r, errMissingBearer)
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the authenticated user id set by RequireSession.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
