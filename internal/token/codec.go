// token реализует выпуск и проверку подписанных bearer-токенов.
//
// Кодек — чисто криптографический компонент: он превращает тройку
// (subject, roles, ttl) в компактную подписанную строку и обратно в
// проверенные claims. Состояния, кроме один раз выведенного ключа подписи,
// у него нет; экземпляр безопасен для конкурентного использования.
//
// Access- и refresh-токены структурно идентичны и различаются только TTL.
// Отдельного claim «тип токена» нет: refresh-токен опознаётся по наличию
// его хэша в журнале. Любой код, который начнёт сохранять туда хэши
// access-токенов, молча сделает их обновляемыми — не делайте так.
package token

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrEmptySecret — секрет подписи пуст; фатальная ошибка конфигурации на старте.
	ErrEmptySecret = errors.New("signing secret is empty")

	// ErrMalformed — строка не разбирается в ожидаемую форму токена.
	ErrMalformed = errors.New("token malformed")

	// ErrSignatureInvalid — подпись не сходится (чужой/ротированный секрет,
	// подмена алгоритма или вмешательство в полезную нагрузку).
	ErrSignatureInvalid = errors.New("token signature invalid")

	// ErrExpired — срок действия токена истёк (expiresAt <= now).
	ErrExpired = errors.New("token expired")
)

// Config — статические параметры кодека.
type Config struct {
	// Secret — секрет, из которого один раз выводится ключ подписи.
	Secret string
	// Issuer — значение claim iss.
	Issuer string
	// Audience — значения claim aud.
	Audience []string
}

// Claims — полезная нагрузка токена: subject, упорядоченный список ролей,
// jti (новый на каждый выпуск), iat и exp.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Codec подписывает claims в компактные строки и проверяет их обратно.
// Ключ подписи выводится из секрета один раз при создании и далее неизменен.
type Codec struct {
	cfg Config
	key []byte
	now func() time.Time
}

// New создаёт кодек. Пустой (или состоящий из пробелов) секрет — ошибка
// конфигурации: сервис не должен стартовать без ключа подписи.
// nowFn == nil означает системные часы.
func New(cfg Config, nowFn func() time.Time) (*Codec, error) {
	const op = "token.New"

	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySecret)
	}

	if nowFn == nil {
		nowFn = time.Now
	}

	// Ключ фиксированной длины из секрета произвольной длины.
	key := sha256.Sum256([]byte(cfg.Secret))

	return &Codec{cfg: cfg, key: key[:], now: nowFn}, nil
}

// Issue подписывает новую пару claims в компактную строку.
// jti генерируется заново на каждый вызов, поэтому две строки, выпущенные
// в один и тот же момент для одного subject/roles, всё равно различаются.
// Возвращает и строку, и claims, чтобы вызывающий сохранял ровно тот
// expiresAt, который попал в токен, а не пересчитывал его.
func (c *Codec) Issue(subject string, roles []string, ttl time.Duration) (string, *Claims, error) {
	const op = "token.Issue"

	now := c.now().UTC()

	claims := &Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    c.cfg.Issuer,
			Audience:  jwt.ClaimStrings(c.cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	return signed, claims, nil
}

// Verify проверяет подпись и срок действия строки токена.
//
// Алгоритм зафиксирован: токен с любым другим заявленным алгоритмом
// отклоняется как ErrSignatureInvalid (защита от downgrade). Leeway нет:
// токен с expiresAt, равным текущему моменту, уже просрочен.
func (c *Codec) Verify(raw string) (*Claims, error) {
	const op = "token.Verify"

	parsed, err := jwt.ParseWithClaims(raw, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrSignatureInvalid
			}

			return c.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(c.cfg.Issuer),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%s: %w", op, ErrMalformed)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%s: %w", op, ErrExpired)
		default:
			return nil, fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrSignatureInvalid)
	}

	return claims, nil
}
