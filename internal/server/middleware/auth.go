package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lucastechai/nvidia-stock-api/internal/server/handlers"
)

// AccessVerifier validates an access token and returns its subject
type AccessVerifier interface {
	VerifyAccess(token string) (string, error)
}

// Auth создает middleware для проверки bearer access token
func Auth(logger *slog.Logger, verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			username, err := verifier.VerifyAccess(parts[1])
			if err != nil {
				logger.Warn("invalid access token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			// Добавляем principal в контекст запроса
			ctx := context.WithValue(r.Context(), handlers.UsernameKey, username)

			logger.Debug("user authenticated", "username", username)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
