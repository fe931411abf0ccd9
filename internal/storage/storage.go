package storage

import (
	"context"
	"errors"
	"time"

	"auth-service/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/token_hash).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RefreshTokenStorage выполняет операции над журналом refresh-токенов.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новую запись журнала.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит запись по хэшу токена.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshToken атомарно выставляет revoked_at = now, если он ещё NULL.
	// Это единственная условная запись в системе: гонка двух конкурентных
	// ротаций одного токена разрешается именно здесь. Возвращает:
	//
	//	(true, nil)  — запись была активна и отозвана этим вызовом;
	//	(false, nil) — запись существует, но уже была отозвана;
	//	(false, ErrNotFound) — записи нет.
	RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error)
	// DeleteExpiredTokens удаляет все записи с expires_at <= now.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	Close()
}
