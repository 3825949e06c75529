package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestManager(t *testing.T) *Manager {
	t.Helper()

	// Используем in-memory database для тестов
	m, err := New(context.Background(), ":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = m.Close()
	})

	return m
}

func TestExecuteInsert(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	id, err := m.ExecuteInsert(ctx,
		"INSERT INTO users (username, hashed_password) VALUES (?, ?)",
		"alice", "hash1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	id, err = m.ExecuteInsert(ctx,
		"INSERT INTO users (username, hashed_password) VALUES (?, ?)",
		"bob", "hash2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
}

func TestExecuteInsert_WrongVerb(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, err := m.ExecuteInsert(ctx, "SELECT * FROM users")
	assert.ErrorIs(t, err, ErrInvalidStatement)
}

func TestExecuteInsert_ConstraintViolation(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, err := m.ExecuteInsert(ctx,
		"INSERT INTO users (username, hashed_password) VALUES (?, ?)",
		"alice", "hash1")
	require.NoError(t, err)

	// Повторная вставка того же username нарушает UNIQUE constraint
	_, err = m.ExecuteInsert(ctx,
		"INSERT INTO users (username, hashed_password) VALUES (?, ?)",
		"alice", "hash2")
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestExecuteSelect(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, err := m.ExecuteInsert(ctx,
		"INSERT INTO users (username, hashed_password) VALUES (?, ?)",
		"alice", "hash1")
	require.NoError(t, err)

	rows, err := m.ExecuteSelect(ctx,
		"SELECT id, username, hashed_password FROM users WHERE username = ?", "alice")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0]["username"])
	assert.Equal(t, "hash1", rows[0]["hashed_password"])
}

func TestExecuteSelect_EmptyResult(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	// Отсутствие строк — не ошибка
	rows, err := m.ExecuteSelect(ctx,
		"SELECT id FROM users WHERE username = ?", "nobody")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecuteSelect_WrongVerb(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	// Глагол проверяется до обращения к базе
	_, err := m.ExecuteSelect(ctx, "UPDATE users SET username = 'x'")
	assert.ErrorIs(t, err, ErrInvalidStatement)
}

func TestExecuteSelect_UnknownTable(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, err := m.ExecuteSelect(ctx, "SELECT * FROM missing_table")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestExecuteSelect_SyntaxError(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, err := m.ExecuteSelect(ctx, "SELECT FROM WHERE")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestExecuteUpdate(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, err := m.ExecuteInsert(ctx,
		"INSERT INTO users (username, hashed_password) VALUES (?, ?)",
		"alice", "hash1")
	require.NoError(t, err)

	affected, err := m.ExecuteUpdate(ctx,
		"UPDATE users SET hashed_password = ? WHERE username = ?", "hash2", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = m.ExecuteUpdate(ctx,
		"UPDATE users SET hashed_password = ? WHERE username = ?", "hash3", "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestExecuteUpdate_WrongVerb(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, err := m.ExecuteUpdate(ctx, "DELETE FROM users")
	assert.ErrorIs(t, err, ErrInvalidStatement)
}

func TestExecuteDelete(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, err := m.ExecuteInsert(ctx,
		"INSERT INTO users (username, hashed_password) VALUES (?, ?)",
		"alice", "hash1")
	require.NoError(t, err)

	affected, err := m.ExecuteDelete(ctx, "DELETE FROM users WHERE username = ?", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}

func TestExecuteBatchInsert(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	values := [][]any{
		{"user1", "hash1"},
		{"user2", "hash2"},
		{"user3", "hash3"},
	}

	inserted, err := m.ExecuteBatchInsert(ctx,
		"INSERT INTO users (username, hashed_password) VALUES (?, ?)", values)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inserted)

	rows, err := m.ExecuteSelect(ctx, "SELECT id FROM users")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExecuteBatchInsert_InvalidShape(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	tests := []struct {
		name   string
		values [][]any
	}{
		{name: "empty batch", values: [][]any{}},
		{name: "empty tuple", values: [][]any{{}}},
		{name: "ragged arity", values: [][]any{{"a", "b"}, {"c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ExecuteBatchInsert(ctx,
				"INSERT INTO users (username, hashed_password) VALUES (?, ?)", tt.values)
			assert.ErrorIs(t, err, ErrInvalidBatch)
		})
	}
}

func TestExecuteBatchInsert_WrongVerb(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, err := m.ExecuteBatchInsert(ctx, "UPDATE users SET username = ?", [][]any{{"x"}})
	assert.ErrorIs(t, err, ErrInvalidStatement)
}

func TestExecuteBatchInsert_RollbackOnFailure(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	// Дубликат внутри батча откатывает весь батч
	values := [][]any{
		{"user1", "hash1"},
		{"user1", "hash2"},
	}

	_, err := m.ExecuteBatchInsert(ctx,
		"INSERT INTO users (username, hashed_password) VALUES (?, ?)", values)
	assert.ErrorIs(t, err, ErrConstraint)

	rows, err := m.ExecuteSelect(ctx, "SELECT id FROM users")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecuteDDL(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	err := m.ExecuteDDL(ctx, "CREATE TABLE scratch (id INTEGER PRIMARY KEY, note TEXT)")
	require.NoError(t, err)

	exists, err := m.TableExists(ctx, "scratch")
	require.NoError(t, err)
	assert.True(t, exists)

	err = m.ExecuteDDL(ctx, "DROP TABLE scratch")
	require.NoError(t, err)

	exists, err = m.TableExists(ctx, "scratch")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExecuteDDL_WrongVerb(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	err := m.ExecuteDDL(ctx, "INSERT INTO users (username) VALUES ('x')")
	assert.ErrorIs(t, err, ErrInvalidStatement)
}

func TestTableExists(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	exists, err := m.TableExists(ctx, "users")
	require.NoError(t, err)
	assert.True(t, exists)

	// Отсутствующая таблица — false без ошибки
	exists, err = m.TableExists(ctx, "nonexistent_table")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTableExists_InvalidIdentifier(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	tests := []string{"", "   ", "users; DROP TABLE users", "users'--", "имя"}
	for _, name := range tests {
		_, err := m.TableExists(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, "name %q", name)
	}
}

func TestTableSchema(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	columns, err := m.TableSchema(ctx, "users")
	require.NoError(t, err)
	require.Len(t, columns, 4)

	// Колонки в порядке объявления
	assert.Equal(t, "id", columns[0].Name)
	assert.True(t, columns[0].PrimaryKey)
	assert.Equal(t, "username", columns[1].Name)
	assert.True(t, columns[1].NotNull)
	assert.Equal(t, "hashed_password", columns[2].Name)
	assert.Equal(t, "created_at", columns[3].Name)
}

func TestTableSchema_UnknownTable(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, err := m.TableSchema(ctx, "nonexistent_table")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestStatementVerb(t *testing.T) {
	assert.Equal(t, "SELECT", statementVerb("  select * from users"))
	assert.Equal(t, "INSERT", statementVerb("\n\tINSERT INTO x VALUES (1)"))
	assert.Equal(t, "", statementVerb("   "))
}
