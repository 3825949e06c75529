package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lucastechai/nvidia-stock-api/internal/config"
	"github.com/lucastechai/nvidia-stock-api/internal/db"
	"github.com/lucastechai/nvidia-stock-api/internal/server"
	"github.com/lucastechai/nvidia-stock-api/internal/server/jwt"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("starting server", "env", cfg.Env, "version", Version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	manager, err := db.New(ctx, cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := manager.Close(); cerr != nil {
			logger.Warn("failed to close database", "error", cerr)
		}
	}()

	tokens := jwt.NewService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())

	srv := server.New(cfg.HTTP.Addr(), logger, manager, tokens)

	if err := srv.Run(ctx, cfg.HTTP.ShutdownTimeout); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// setupLogger настраивает slog под окружение: локально — текст с debug,
// иначе — JSON с info
func setupLogger(env string) *slog.Logger {
	if env == "local" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func printVersion() {
	fmt.Printf("Nvidia Stock History API Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
