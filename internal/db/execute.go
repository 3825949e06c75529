package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Row is a single result row keyed by column name, detached from any live
// connection handle.
type Row map[string]any

// Column describes one column of a table schema, in declaration order.
type Column struct {
	Name         string
	Type         string
	NotNull      bool
	DefaultValue any
	PrimaryKey   bool
}

// identifierPattern — допустимые имена таблиц: буквы, цифры, "_" и "-"
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// statementVerb возвращает первый токен запроса в верхнем регистре
func statementVerb(query string) string {
	fields := strings.Fields(strings.TrimSpace(query))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// checkVerb проверяет, что глагол запроса совпадает с ожидаемым методом,
// до какого-либо обращения к базе
func checkVerb(query, want string) error {
	if got := statementVerb(query); got != want {
		return fmt.Errorf("%w: expected %s statement, got %q", ErrInvalidStatement, want, got)
	}
	return nil
}

// wrapDriverError нормализует ошибку драйвера в таксономию пакета
func wrapDriverError(err error) error {
	if err == nil {
		return nil
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return fmt.Errorf("%w: %v", ErrConstraint, err)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: try again later", ErrLocked)
		}
	}

	// modernc не всегда даёт extended code, дифференцируем по тексту
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "constraint"):
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	case strings.Contains(msg, "locked") || strings.Contains(msg, "busy"):
		return fmt.Errorf("%w: try again later", ErrLocked)
	case strings.Contains(msg, "no such table"):
		return fmt.Errorf("%w: %v", ErrUnknownTable, err)
	case strings.Contains(msg, "syntax error"):
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	case se != nil:
		return fmt.Errorf("%w: %v", ErrOperational, err)
	default:
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
}

// execScoped выполняет ровно один statement в рамках транзакции:
// begin → exec → commit. Никакая транзакция не живет дольше одного вызова.
func (m *Manager) execScoped(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapDriverError(err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, wrapDriverError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapDriverError(err)
	}

	return res, nil
}

// ExecuteInsert executes a single INSERT statement and returns the id
// assigned to the new row. Fails with ErrInvalidStatement for non-INSERT
// queries and with ErrNoInsertID when the store reports no new row.
func (m *Manager) ExecuteInsert(ctx context.Context, query string, args ...any) (int64, error) {
	if err := checkVerb(query, "INSERT"); err != nil {
		return 0, err
	}

	res, err := m.execScoped(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDriverError(err)
	}
	if affected == 0 {
		return 0, ErrNoInsertID
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoInsertID, err)
	}

	return id, nil
}

// ExecuteSelect executes a single SELECT statement and returns the matching
// rows in result order. An empty result is a nil-error empty slice.
func (m *Manager) ExecuteSelect(ctx context.Context, query string, args ...any) ([]Row, error) {
	if err := checkVerb(query, "SELECT"); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDriverError(err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// ExecuteUpdate executes a single UPDATE statement and returns the number of
// affected rows.
func (m *Manager) ExecuteUpdate(ctx context.Context, query string, args ...any) (int64, error) {
	if err := checkVerb(query, "UPDATE"); err != nil {
		return 0, err
	}
	return m.execAffected(ctx, query, args...)
}

// ExecuteDelete executes a single DELETE statement and returns the number of
// deleted rows.
func (m *Manager) ExecuteDelete(ctx context.Context, query string, args ...any) (int64, error) {
	if err := checkVerb(query, "DELETE"); err != nil {
		return 0, err
	}
	return m.execAffected(ctx, query, args...)
}

func (m *Manager) execAffected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := m.execScoped(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDriverError(err)
	}

	return affected, nil
}

// ExecuteDDL executes a single CREATE, DROP or ALTER statement. Used by the
// bulk loader for its drop-and-recreate semantics.
func (m *Manager) ExecuteDDL(ctx context.Context, query string) error {
	switch statementVerb(query) {
	case "CREATE", "DROP", "ALTER":
	default:
		return fmt.Errorf("%w: expected DDL statement, got %q", ErrInvalidStatement, statementVerb(query))
	}

	_, err := m.execScoped(ctx, query)
	return err
}

// ExecuteBatchInsert executes one INSERT statement per element of values
// inside a single transaction and returns the total number of inserted rows.
// Every element must have the same non-zero arity.
func (m *Manager) ExecuteBatchInsert(ctx context.Context, query string, values [][]any) (int64, error) {
	if err := checkVerb(query, "INSERT"); err != nil {
		return 0, err
	}

	if len(values) == 0 {
		return 0, fmt.Errorf("%w: empty batch", ErrInvalidBatch)
	}
	arity := len(values[0])
	if arity == 0 {
		return 0, fmt.Errorf("%w: empty value tuple", ErrInvalidBatch)
	}
	for i, tuple := range values {
		if len(tuple) != arity {
			return 0, fmt.Errorf("%w: row %d has %d values, expected %d", ErrInvalidBatch, i, len(tuple), arity)
		}
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapDriverError(err)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return 0, wrapDriverError(err)
	}
	defer stmt.Close()

	var total int64
	for _, tuple := range values {
		res, err := stmt.ExecContext(ctx, tuple...)
		if err != nil {
			_ = tx.Rollback()
			return 0, wrapDriverError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return 0, wrapDriverError(err)
		}
		total += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapDriverError(err)
	}

	return total, nil
}

// TableExists reports whether a table with the given name exists.
func (m *Manager) TableExists(ctx context.Context, name string) (bool, error) {
	if err := validateIdentifier(name); err != nil {
		return false, err
	}

	rows, err := m.ExecuteSelect(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		strings.TrimSpace(name),
	)
	if err != nil {
		return false, err
	}

	return len(rows) > 0, nil
}

// TableSchema returns the ordered column descriptors of a table.
// Fails with ErrUnknownTable when the table is absent.
func (m *Manager) TableSchema(ctx context.Context, name string) ([]Column, error) {
	exists, err := m.TableExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}

	// Имя уже провалидировано, интерполяция безопасна: PRAGMA не принимает
	// bind параметры
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", name))
	if err != nil {
		return nil, wrapDriverError(err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			cid     int
			col     Column
			notNull int
			pk      int
			defVal  sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &defVal, &pk); err != nil {
			return nil, wrapDriverError(err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		if defVal.Valid {
			col.DefaultValue = defVal.String
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverError(err)
	}

	return columns, nil
}

// validateIdentifier проверяет имя таблицы до интерполяции в запрос
func validateIdentifier(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: table name cannot be empty", ErrInvalidIdentifier)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidIdentifier, name)
	}
	return nil
}

// scanRows снимает результат в независимые от соединения значения
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, wrapDriverError(err)
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrapDriverError(err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDriverError(err)
	}

	return result, nil
}
