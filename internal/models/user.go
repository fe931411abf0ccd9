package models

import (
	"time"

	"github.com/google/uuid"
)

// User - учётная запись пользователя.
// Roles — упорядоченный список имён ролей; может быть пустым.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
