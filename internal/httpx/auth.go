package httpx

import (
	"context"
	"net/http"
)

type ctxKey int

const userKey ctxKey = 0

// WithUser lifts the caller identity off the request. The gateway in front
// of this service authenticates and injects X-User-ID; here it is only used
// for scoping.
func WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := r.Header.Get("X-User-ID"); uid != "" {
			r = r.WithContext(context.WithValue(r.Context(), userKey, uid))
		}
		next.ServeHTTP(w, r)
	})
}

func UserFrom(ctx context.Context) string {
	uid, _ := ctx.Value(userKey).(string)
	return uid
}

// RequireUser turns anonymous calls into 401 when auth is required;
// in open mode it passes everything through.
func RequireUser(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if required && UserFrom(r.Context()) == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
