package etl

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lucastechai/nvidia-stock-api/internal/models"
)

// csvTimeLayout — формат дат в CSV файле
const csvTimeLayout = time.RFC3339

// csvHeader — заголовок в том виде, как его отдает провайдер
var csvHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume", "Dividends", "Stock Splits"}

// WriteCandlesCSV serializes candles to a CSV file at path, creating parent
// directories as needed.
func WriteCandlesCSV(path string, candles []models.Candle) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, c := range candles {
		record := []string{
			c.Date.Format(csvTimeLayout),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			strconv.FormatInt(c.Volume, 10),
			formatFloat(c.Dividends),
			formatFloat(c.StockSplits),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
