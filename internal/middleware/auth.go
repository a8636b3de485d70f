package middleware

import (
	"context"
	"net/http"
	"strings"

	"app/internal/model"
	"app/internal/service"
	"app/internal/util"

	"github.com/rs/zerolog"
)

type contextKey string

// UserContextKey holds the authenticated *model.User for the request.
const UserContextKey contextKey = "user"

// UserFromContext returns the authenticated user placed by AuthMiddleware.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*model.User)
	return user, ok
}

// AuthMiddleware verifies the Bearer token and resolves the caller to a
// local user record, provisioning one on first sight.
type AuthMiddleware struct {
	jwtSecret   string
	userService service.UserService
	logger      zerolog.Logger
}

func NewAuthMiddleware(jwtSecret string, userService service.UserService, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:   jwtSecret,
		userService: userService,
		logger:      logger.With().Str("middleware", "auth").Logger(),
	}
}

func (m *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(w, "Missing or malformed Authorization header")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := util.ValidateJWT(tokenString, m.jwtSecret)
		if err != nil {
			m.logger.Debug().Err(err).Msg("Token rejected")
			unauthorized(w, "Invalid or expired token")
			return
		}

		user, err := m.userService.EnsureUser(r.Context(), claims.Subject, claims.Email, claims.Name)
		if err != nil {
			m.logger.Error().Err(err).Str("auth_id", claims.Subject).Msg("Failed to resolve user")
			http.Error(w, `{"error":"Failed to resolve user","code":"persistence_error"}`, http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `","code":"auth_error"}`))
}
