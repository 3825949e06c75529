// server собирает HTTP-сервер: chi router, middleware и маршруты REST API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lucastechai/nvidia-stock-api/internal/db"
	"github.com/lucastechai/nvidia-stock-api/internal/server/handlers"
	"github.com/lucastechai/nvidia-stock-api/internal/server/jwt"
	"github.com/lucastechai/nvidia-stock-api/internal/server/middleware"
	"github.com/lucastechai/nvidia-stock-api/internal/server/users"
)

// Лимит на auth endpoints против перебора паролей
const (
	authRateLimit  = 20
	authRateWindow = time.Minute
)

// Server represents the HTTP server with its dependencies
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the server over the access layer and the token service.
func New(addr string, logger *slog.Logger, manager *db.Manager, tokens *jwt.Service) *Server {
	store := users.NewStore(manager, logger)

	authHandler := handlers.NewAuthHandler(logger, store, tokens)
	healthHandler := handlers.NewHealthHandler(logger, manager)
	homeHandler := handlers.NewHomeHandler(logger)

	requireAuth := middleware.Auth(logger, tokens)

	r := chi.NewRouter()

	// Middleware (внешний -> внутренний)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger, "/api/v1/health/"))

	r.Get("/", homeHandler.Home)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimit(authRateLimit, authRateWindow, logger))

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.With(requireAuth).Get("/protected", authHandler.Protected)
		})

		r.With(requireAuth).Get("/health/", healthHandler.Health)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the root router, used by tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
