package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lucastechai/nvidia-stock-api/pkg/api"
)

// contextKey — отдельный тип для ключей контекста, чтобы избежать коллизий
type contextKey string

// UsernameKey is the request-context key under which the auth middleware
// stores the authenticated principal's username.
const UsernameKey contextKey = "username"

// writeJSON отправляет JSON ответ
func writeJSON(logger *slog.Logger, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// writeError отправляет JSON ответ с ошибкой
func writeError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	writeJSON(logger, w, resp, statusCode)
}
