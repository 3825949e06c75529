package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucastechai/nvidia-stock-api/internal/db"
	"github.com/lucastechai/nvidia-stock-api/internal/server/jwt"
	"github.com/lucastechai/nvidia-stock-api/pkg/api"
)

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	manager, err := db.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, manager.Close())
	})

	tokens := jwt.NewService("server-test-secret", 30*time.Minute)

	return New("localhost:0", logger, manager, tokens).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeTokens(t *testing.T, rec *httptest.ResponseRecorder) api.TokenResponse {
	t.Helper()

	var resp api.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// Полный цикл через router: регистрация, коллизия username, логин
func TestServer_AuthFlow(t *testing.T) {
	handler := setupTestServer(t)
	tokens := jwt.NewService("server-test-secret", 30*time.Minute)

	// Первая регистрация alice
	rec := postJSON(t, handler, "/api/v1/auth/register", api.UserRequest{Username: "alice", Password: "p1"})
	require.Equal(t, http.StatusOK, rec.Code)

	pair := decodeTokens(t, rec)
	username, err := tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	// Та же пара username/password повторно — конфликт
	rec = postJSON(t, handler, "/api/v1/auth/register", api.UserRequest{Username: "alice", Password: "p1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Тот же username с другим паролем — новый пользователь alice1
	rec = postJSON(t, handler, "/api/v1/auth/register", api.UserRequest{Username: "alice", Password: "p2"})
	require.Equal(t, http.StatusOK, rec.Code)

	pair = decodeTokens(t, rec)
	username, err = tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice1", username)

	// Логин оригинальной alice с ее паролем
	rec = postJSON(t, handler, "/api/v1/auth/login", api.UserRequest{Username: "alice", Password: "p1"})
	require.Equal(t, http.StatusOK, rec.Code)

	pair = decodeTokens(t, rec)
	username, err = tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	// Неверный пароль — uniform отказ
	rec = postJSON(t, handler, "/api/v1/auth/login", api.UserRequest{Username: "alice", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_RefreshFlow(t *testing.T) {
	handler := setupTestServer(t)

	rec := postJSON(t, handler, "/api/v1/auth/register", api.UserRequest{Username: "bob", Password: "p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	pair := decodeTokens(t, rec)

	// Refresh выдает новый access и возвращает тот же refresh
	rec = postJSON(t, handler, "/api/v1/auth/refresh", api.RefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)

	refreshed := decodeTokens(t, rec)
	assert.Equal(t, pair.RefreshToken, refreshed.RefreshToken)
	assert.NotEmpty(t, refreshed.AccessToken)

	// Access token не принимается как refresh
	rec = postJSON(t, handler, "/api/v1/auth/refresh", api.RefreshRequest{RefreshToken: pair.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ProtectedEndpoints(t *testing.T) {
	handler := setupTestServer(t)

	rec := postJSON(t, handler, "/api/v1/auth/register", api.UserRequest{Username: "carol", Password: "p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	pair := decodeTokens(t, rec)

	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// С валидным access token
	rec2 := get("/api/v1/auth/protected", pair.AccessToken)
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Contains(t, rec2.Body.String(), "carol")

	rec2 = get("/api/v1/health/", pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec2.Code)

	// Без токена
	rec2 = get("/api/v1/auth/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)

	rec2 = get("/api/v1/health/", "")
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)

	// Refresh token не дает доступа
	rec2 = get("/api/v1/auth/protected", pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestServer_Home(t *testing.T) {
	handler := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nvidia Stock History API")
}
