package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken - запись журнала refresh-токенов.
//
// Хранится только хэш исходной строки токена (TokenHash, уникален по всей
// таблице); сам токен никогда не сохраняется. ExpiresAt копируется из claims
// выпущенного токена в момент создания записи. RevokedAt выставляется не более
// одного раза — при ротации или явном отзыве — и после этого не очищается.
// UserAgent и IP — метаданные запроса для аудита; в проверках валидности
// не участвуют.
type RefreshToken struct {
	ID        int64
	TokenHash string
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent string
	IP        string
}

// Revoked сообщает, был ли токен отозван.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}
