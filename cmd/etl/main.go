// Command etl выполняет разовый прогон пайплайна котировок:
// выгрузка исторических данных → CSV → массовая загрузка в SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lucastechai/nvidia-stock-api/internal/config"
	"github.com/lucastechai/nvidia-stock-api/internal/db"
	"github.com/lucastechai/nvidia-stock-api/internal/etl"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("etl failed", "error", err)
		os.Exit(1)
	}

	logger.Info("process finished")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	market := etl.NewMarket(cfg.Market.BaseURL, logger)

	candles, err := market.History(ctx, cfg.Market.Symbol, cfg.Market.Period, cfg.Market.Interval)
	if err != nil {
		if errors.Is(err, etl.ErrNoData) {
			return fmt.Errorf("no data was returned, check the parameters: %w", err)
		}
		return fmt.Errorf("data extraction failed: %w", err)
	}

	logger.Info("data statistics",
		"records", len(candles),
		"from", candles[0].Date.Format("2006-01-02"),
		"to", candles[len(candles)-1].Date.Format("2006-01-02"))

	if err := etl.WriteCandlesCSV(cfg.Market.CSVPath, candles); err != nil {
		return fmt.Errorf("csv write failed: %w", err)
	}
	logger.Info("data saved", "path", cfg.Market.CSVPath)

	manager, err := db.New(ctx, cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = manager.Close()
	}()

	loader := etl.NewLoader(manager, logger)

	loaded, err := loader.LoadCSV(ctx, cfg.Market.CSVPath, cfg.Market.Table)
	if err != nil {
		return fmt.Errorf("data load failed: %w", err)
	}
	logger.Info("data load completed", "table", cfg.Market.Table, "rows", loaded)

	return nil
}
