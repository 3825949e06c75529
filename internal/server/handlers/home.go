package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lucastechai/nvidia-stock-api/pkg/api"
)

// HomeHandler обрабатывает корневой endpoint
type HomeHandler struct {
	logger *slog.Logger
}

// NewHomeHandler создает новый handler для корневого endpoint
func NewHomeHandler(logger *slog.Logger) *HomeHandler {
	return &HomeHandler{logger: logger}
}

// Home обрабатывает GET /
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	resp := api.MessageResponse{
		Message: "Welcome to the Nvidia Stock History API",
	}

	writeJSON(h.logger, w, resp, http.StatusOK)
}
