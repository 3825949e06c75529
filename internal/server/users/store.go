// users реализует credential store: поиск пользователя по username,
// регистрацию с разрешением коллизий числовым суффиксом и проверку пароля.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lucastechai/nvidia-stock-api/internal/db"
	"github.com/lucastechai/nvidia-stock-api/internal/models"
)

// Executor is the slice of the database access layer the store needs.
type Executor interface {
	ExecuteInsert(ctx context.Context, query string, args ...any) (int64, error)
	ExecuteSelect(ctx context.Context, query string, args ...any) ([]db.Row, error)
}

// Store maps usernames to stored credentials through the access layer.
type Store struct {
	exec   Executor
	logger *slog.Logger
}

// NewStore creates a new credential store
func NewStore(exec Executor, logger *slog.Logger) *Store {
	return &Store{
		exec:   exec,
		logger: logger,
	}
}

// FindByUsername retrieves a user by username.
// Returns ErrUserNotFound if no such user exists.
func (s *Store) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	rows, err := s.exec.ExecuteSelect(ctx,
		"SELECT id, username, hashed_password, created_at FROM users WHERE username = ? LIMIT 1",
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select user: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrUserNotFound
	}

	return userFromRow(rows[0]), nil
}

// Register creates a new user with collision handling:
//  1. free username → hash password, insert, return the new record;
//  2. username taken with the SAME password → ErrUserAlreadyExists, no new
//     record is created;
//  3. username taken with a DIFFERENT password → probe username1, username2,
//     ... until a free name is found and insert under it. The stored
//     credential of the existing user is never touched.
func (s *Store) Register(ctx context.Context, username, password string) (*models.User, error) {
	existing, err := s.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	if existing != nil {
		if bcrypt.CompareHashAndPassword([]byte(existing.HashedPassword), []byte(password)) == nil {
			// Точный дубликат: тот же username, тот же пароль
			return nil, ErrUserAlreadyExists
		}

		// Имя занято с другим паролем, подбираем свободный суффикс
		suffixed, err := s.nextFreeUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "username taken, registering under suffixed name",
			slog.String("requested", username),
			slog.String("assigned", suffixed))
		username = suffixed
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := s.exec.ExecuteInsert(ctx,
		"INSERT INTO users (username, hashed_password) VALUES (?, ?)",
		username, string(hashed),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &models.User{
		ID:             id,
		Username:       username,
		HashedPassword: string(hashed),
		CreatedAt:      time.Now(),
	}, nil
}

// Authenticate verifies a username/password pair.
// Both unknown username and wrong password yield the same
// ErrInvalidCredentials, so callers cannot enumerate usernames.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// nextFreeUsername перебирает base1, base2, ... до первого незанятого имени
func (s *Store) nextFreeUsername(ctx context.Context, base string) (string, error) {
	for suffix := 1; ; suffix++ {
		candidate := fmt.Sprintf("%s%d", base, suffix)
		_, err := s.FindByUsername(ctx, candidate)
		if errors.Is(err, ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// userFromRow собирает модель из строки результата
func userFromRow(row db.Row) *models.User {
	user := &models.User{}

	if v, ok := row["id"].(int64); ok {
		user.ID = v
	}
	if v, ok := row["username"].(string); ok {
		user.Username = v
	}
	if v, ok := row["hashed_password"].(string); ok {
		user.HashedPassword = v
	}
	switch v := row["created_at"].(type) {
	case time.Time:
		user.CreatedAt = v
	case string:
		// SQLite хранит CURRENT_TIMESTAMP как текст
		if t, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			user.CreatedAt = t
		}
	}

	return user
}
