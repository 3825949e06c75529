package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lucastechai/nvidia-stock-api/internal/db"
	"github.com/lucastechai/nvidia-stock-api/pkg/api"
)

// Pinger is the slice of the access layer the health probe needs
type Pinger interface {
	ExecuteSelect(ctx context.Context, query string, args ...any) ([]db.Row, error)
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger *slog.Logger
	db     Pinger
}

// NewHealthHandler создает новый handler для health check
func NewHealthHandler(logger *slog.Logger, db Pinger) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		db:     db,
	}
}

// Health обрабатывает GET /api/v1/health/
// Проверяет доступность базы данных одним SELECT 1 через слой доступа.
// Детали внутренней ошибки наружу не отдаются.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, err := h.db.ExecuteSelect(ctx, "SELECT 1"); err != nil {
		h.logger.ErrorContext(ctx, "health check failed", slog.Any("error", err))
		writeError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.HealthResponse{
		Status:  "ok",
		Message: "API is healthy and database is connected.",
	}

	writeJSON(h.logger, w, resp, http.StatusOK)
}
