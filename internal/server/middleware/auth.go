package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/meshsync/internal/jwt"
	"github.com/iudanet/meshsync/internal/server/handlers"
)

// TokenValidator проверяет токен устройства
type TokenValidator interface {
	ValidateDeviceToken(token string) (*jwt.DeviceClaims, error)
}

// AuthMiddleware создает middleware для проверки JWT токена устройства
func AuthMiddleware(logger *slog.Logger, validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header", "path", r.URL.Path)
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateDeviceToken(parts[1])
			if err != nil {
				logger.Warn("Invalid device token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			ctx := handlers.WithDevice(r.Context(), claims.DeviceID, claims.BusinessID)
			logger.Debug("Device authenticated", "device_id", claims.DeviceID, "business_id", claims.BusinessID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
