package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"gbv_reporter/logging"
)

// AuthMiddleware requires "Authorization: Bearer <apiKey>". An empty
// apiKey rejects every request.
func AuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if apiKey == "" || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				logging.FromContext(r.Context()).Warn("rejected api request", "path", r.URL.Path)
				http.Error(w, "invalid token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
