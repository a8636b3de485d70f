package middleware

import (
	"net/http"
)

// RequireAdmin rejects requests from non-admin users. It must run after
// AuthMiddleware has populated the request context.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			unauthorized(w, "Missing authentication")
			return
		}
		if !user.IsAdmin() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"Admin access required","code":"auth_error"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
