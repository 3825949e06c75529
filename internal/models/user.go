package models

import "time"

// User представляет пользователя в системе
type User struct {
	ID             int64     `json:"id"`         // rowid, назначается базой при вставке
	Username       string    `json:"username"`   // уникальный username (может получить числовой суффикс)
	HashedPassword string    `json:"-"`          // bcrypt хеш пароля, наружу не отдается
	CreatedAt      time.Time `json:"created_at"` // время создания
}
