// service содержит бизнес-логику auth-сервиса:
// регистрацию/аутентификацию пользователей, выпуск/проверку токенов,
// ротацию refresh-токенов и работу с хранилищем через интерфейсы
// из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//     Единственный разделяемый изменяемый ресурс — журнал refresh-токенов;
//     гонка конкурентных ротаций разрешается условной записью в хранилище.
//   - Все отказы запроса схлопываются в грубые ошибки ниже; какая именно
//     проверка не прошла, наружу не сообщается (детали — только в логах).
//   - Ошибки возвращаются и далее маппятся транспортом
//     на HTTP-статусы (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"
	"fmt"
	"time"

	"auth-service/internal/cache"
	"auth-service/internal/config"
	"auth-service/internal/storage"
	"auth-service/internal/token"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Неизвестный email и неверный пароль намеренно неразличимы снаружи.
	// На уровне транспорта маппится в HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken — refresh-токен не принят: не найден, отозван,
	// просрочен, не прошёл криптографическую проверку, принадлежит другому
	// пользователю или проиграл гонку ротации. Какая именно причина —
	// наружу не сообщается. Транспорт: HTTP 401.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidToken — access-токен некорректен по формату/подписи.
	// Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия access-токена истёк.
	// Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrEmailTaken — e-mail уже занят другим пользователем.
	// Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidEmail — e-mail имеет некорректный формат или не проходит политику валидации.
	// Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политикам сложности.
	// Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой.
	// Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")
)

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	codec   *token.Codec
	rcache  cache.RefreshCache // может быть nil, если кэш не сконфигурирован
	now     func() time.Time
}

// New создаёт новый экземпляр Service.
// Пустой секрет подписи — ошибка конфигурации; сервис с ним не создаётся.
func New(storage storage.Storage, cfg config.AuthConfig) (*Service, error) {
	const op = "service.New"

	s := &Service{
		storage: storage,
		cfg:     cfg,
		now:     time.Now,
	}

	codec, err := token.New(token.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
	}, func() time.Time { return s.now() })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.codec = codec

	return s, nil
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
// Вызывается при инициализации, до начала обработки запросов.
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}

// SetClock подменяет источник времени (для тестов).
// Вызывается при инициализации, до начала обработки запросов.
func (s *Service) SetClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.now = nowFn
	}
}
