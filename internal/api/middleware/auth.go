package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dom/sleeplog/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
)

func Auth(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug().Msg("missing authorization header")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug().Msg("invalid authorization header format")
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			userID, err := authService.UserIDFromToken(parts[1])
			if err != nil {
				logger.Debug().Err(err).Msg("token validation failed")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			// Later log lines of this request carry the user.
			ctx := logger.With().Str("user_id", userID.String()).Logger().WithContext(r.Context())
			ctx = context.WithValue(ctx, UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// WithUserID returns ctx carrying userID, as Auth would.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
