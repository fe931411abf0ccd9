package models

// TokenTypeBearer — единственный поддерживаемый тип токена в ответах.
const TokenTypeBearer = "Bearer"

// TokenPair — пара токенов, выдаваемая при аутентификации/ротации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API; нигде не хранится;
//   - RefreshToken — долгоживущий JWT для обновления пары; на сервере
//     хранится только его хэш;
//   - TokenType — фиксированная метка "Bearer";
//   - ExpiresIn — срок жизни access-токена в секундах.
type TokenPair struct {
	// AccessToken — JWT для авторизации запросов.
	AccessToken string
	// RefreshToken — JWT для обновления пары.
	RefreshToken string
	// TokenType — тип токена для заголовка Authorization.
	TokenType string
	// ExpiresIn — TTL access-токена в секундах.
	ExpiresIn int64
}

// RequestMeta — метаданные входящего запроса, сохраняемые в журнале
// refresh-токенов для аудита.
type RequestMeta struct {
	UserAgent string
	IP        string
}
