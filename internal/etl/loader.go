package etl

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lucastechai/nvidia-stock-api/internal/db"
)

// Loader replaces the contents of a destination table with the rows of a CSV
// file. Load semantics are drop-and-recreate: prior contents are always
// discarded, never merged.
type Loader struct {
	manager *db.Manager
	logger  *slog.Logger
}

// NewLoader creates a new bulk loader over the access layer
func NewLoader(manager *db.Manager, logger *slog.Logger) *Loader {
	return &Loader{
		manager: manager,
		logger:  logger,
	}
}

// LoadCSV reads the CSV at csvPath and bulk-loads it into table.
// Column names are lower-cased with spaces replaced by underscores
// ("Stock Splits" becomes "stock_splits"). Returns the number of loaded rows.
func (l *Loader) LoadCSV(ctx context.Context, csvPath, table string) (int64, error) {
	// TableExists заодно валидирует имя таблицы до интерполяции в DDL
	if _, err := l.manager.TableExists(ctx, table); err != nil {
		return 0, err
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open csv: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = normalizeColumn(name)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read csv records: %w", err)
	}

	l.logger.InfoContext(ctx, "loading csv into table",
		slog.String("csv", csvPath),
		slog.String("table", table),
		slog.Int("records", len(records)))

	if err := l.recreateTable(ctx, table, columns); err != nil {
		return 0, err
	}

	if len(records) == 0 {
		return 0, nil
	}

	values := make([][]any, 0, len(records))
	for i, record := range records {
		if len(record) != len(columns) {
			return 0, fmt.Errorf("csv row %d has %d fields, expected %d", i+1, len(record), len(columns))
		}
		tuple, err := typedTuple(columns, record)
		if err != nil {
			return 0, fmt.Errorf("csv row %d: %w", i+1, err)
		}
		values = append(values, tuple)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders)

	loaded, err := l.manager.ExecuteBatchInsert(ctx, query, values)
	if err != nil {
		return 0, fmt.Errorf("bulk insert failed: %w", err)
	}

	l.logger.InfoContext(ctx, "data loaded successfully", slog.Int64("rows", loaded))

	return loaded, nil
}

// recreateTable сбрасывает таблицу и создает ее заново под колонки CSV
func (l *Loader) recreateTable(ctx context.Context, table string, columns []string) error {
	if err := l.manager.ExecuteDDL(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", col, columnType(col))
	}

	query := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if err := l.manager.ExecuteDDL(ctx, query); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// normalizeColumn приводит заголовок CSV к имени колонки
func normalizeColumn(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// columnType возвращает SQLite тип для колонки котировок
func columnType(column string) string {
	switch column {
	case "date":
		return "TEXT"
	case "volume":
		return "INTEGER"
	default:
		return "REAL"
	}
}

// typedTuple преобразует строковые значения CSV в типизированные bind values
func typedTuple(columns []string, record []string) ([]any, error) {
	tuple := make([]any, len(columns))
	for i, col := range columns {
		switch columnType(col) {
		case "TEXT":
			tuple[i] = record[i]
		case "INTEGER":
			v, err := strconv.ParseInt(record[i], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			tuple[i] = v
		default:
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			tuple[i] = v
		}
	}
	return tuple, nil
}
