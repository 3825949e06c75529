package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lucastechai/nvidia-stock-api/internal/db"
	"github.com/lucastechai/nvidia-stock-api/internal/models"
	"github.com/lucastechai/nvidia-stock-api/internal/server/jwt"
	"github.com/lucastechai/nvidia-stock-api/internal/server/users"
	"github.com/lucastechai/nvidia-stock-api/internal/validation"
	"github.com/lucastechai/nvidia-stock-api/pkg/api"
)

// CredentialStore defines the slice of the credential store the handler needs
type CredentialStore interface {
	// Register creates a new user, resolving username collisions with a
	// numeric suffix; exact duplicates yield users.ErrUserAlreadyExists
	Register(ctx context.Context, username, password string) (*models.User, error)

	// Authenticate verifies a username/password pair; failures are reported
	// uniformly as users.ErrInvalidCredentials
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger *slog.Logger
	store  CredentialStore
	tokens *jwt.Service
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, store CredentialStore, tokens *jwt.Service) *AuthHandler {
	return &AuthHandler{
		logger: logger,
		store:  store,
		tokens: tokens,
	}
}

// Register обрабатывает POST /api/v1/auth/register
// Регистрация нового пользователя, в ответ выдается пара токенов
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode register request", slog.Any("error", err))
		writeError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		h.logger.WarnContext(ctx, "invalid username", slog.String("username", req.Username), slog.Any("error", err))
		writeError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		writeError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.store.Register(ctx, req.Username, req.Password)
	if err != nil {
		// ErrConstraint — проигранная гонка за UNIQUE(username) между probing
		// и insert, для клиента это тот же конфликт
		if errors.Is(err, users.ErrUserAlreadyExists) || errors.Is(err, db.ErrConstraint) {
			h.logger.WarnContext(ctx, "duplicate registration", slog.String("username", req.Username))
			writeError(h.logger, w, "user already exists", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to register user", slog.Any("error", err))
		writeError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Username мог получить числовой суффикс, токены выпускаются на
	// фактически сохраненное имя
	resp, err := h.issueTokenPair(user.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue tokens", slog.Any("error", err))
		writeError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("username", user.Username),
		slog.Int64("user_id", user.ID))

	writeJSON(h.logger, w, resp, http.StatusOK)
}

// Login обрабатывает POST /api/v1/auth/login
// Аутентификация пользователя по username и паролю
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode login request", slog.Any("error", err))
		writeError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.store.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			// Единый ответ для неизвестного username и неверного пароля
			h.logger.WarnContext(ctx, "login failed", slog.String("username", req.Username))
			writeError(h.logger, w, "invalid username or password", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to authenticate user", slog.Any("error", err))
		writeError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp, err := h.issueTokenPair(user.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue tokens", slog.Any("error", err))
		writeError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("username", user.Username),
		slog.Int64("user_id", user.ID))

	writeJSON(h.logger, w, resp, http.StatusOK)
}

// Protected обрабатывает GET /api/v1/auth/protected
// Доступен только с валидным access token (через auth middleware)
func (h *AuthHandler) Protected(w http.ResponseWriter, r *http.Request) {
	username, ok := r.Context().Value(UsernameKey).(string)
	if !ok || username == "" {
		writeError(h.logger, w, "invalid authentication credentials", http.StatusUnauthorized)
		return
	}

	resp := api.MessageResponse{
		Message: fmt.Sprintf("Authenticated access granted to %s!", username),
	}

	writeJSON(h.logger, w, resp, http.StatusOK)
}

// Refresh обрабатывает POST /api/v1/auth/refresh
// Выпускает новый access token по валидному refresh token.
// Refresh token намеренно возвращается тем же (ротации нет).
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode refresh request", slog.Any("error", err))
		writeError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	claims, err := h.tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		h.logger.WarnContext(ctx, "refresh token rejected", slog.Any("error", err))
		writeError(h.logger, w, "invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	accessToken, err := h.tokens.IssueAccess(claims.Subject)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue access token", slog.Any("error", err))
		writeError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "access token refreshed", slog.String("username", claims.Subject))

	resp := api.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: req.RefreshToken,
		TokenType:    "bearer",
	}

	writeJSON(h.logger, w, resp, http.StatusOK)
}

// issueTokenPair выпускает пару access+refresh токенов для пользователя
func (h *AuthHandler) issueTokenPair(username string) (api.TokenResponse, error) {
	accessToken, err := h.tokens.IssueAccess(username)
	if err != nil {
		return api.TokenResponse{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := h.tokens.IssueRefresh(username)
	if err != nil {
		return api.TokenResponse{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return api.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}
