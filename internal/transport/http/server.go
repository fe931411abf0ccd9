// transport/http содержит реализацию HTTP-эндпоинтов auth-сервиса.
// Здесь выполняется только маппинг данных и ошибок доменного слоя (service) в HTTP.
// Вся валидация и бизнес-логика находятся в пакете service.
//
// Принципы:
//   - Контекст запроса прокидывается в сервис без потерь;
//   - Ошибки сервиса транслируются в HTTP-статусы пакетом internal/errors:
//   - ErrInvalidEmail/ErrWeakPassword/ErrEmptyPassword -> 400;
//   - ErrEmailTaken -> 409;
//   - ErrInvalidCredentials/ErrInvalidRefreshToken/ErrInvalidToken/ErrTokenExpired -> 401;
//   - иные ошибки -> 500 c единым безопасным сообщением;
//   - Validate при невалидном/просроченном токене НЕ возвращает ошибку, а
//     отдаёт {valid:false} (контракт эндпоинта).
//
// Безопасность:
//   - Для 500 наружу не утекают детали внутренних ошибок; подробности должны
//     попадать в логи через мидлвары на уровне сервера.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"auth-service/internal/service"
	"auth-service/internal/transport/http/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Options — параметры сборки HTTP-сервера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	// AllowedOrigins — список origin'ов для CORS; пустой список отключает CORS.
	AllowedOrigins []string
	// Health — опциональная проверка зависимостей для /healthz
	// (обычно ping хранилища); nil означает «всегда ок».
	Health func() error
}

// AuthServer — HTTP-сервер авторизации поверх сервисного слоя.
type AuthServer struct {
	service *service.Service
	opts    Options
}

// NewAuthServer создаёт HTTP-сервер авторизации поверх сервисного слоя.
func NewAuthServer(service *service.Service, opts Options) *AuthServer {
	return &AuthServer{service: service, opts: opts}
}

// Handler собирает http.Handler с роутером mux и подключёнными middleware/роутами.
func (s *AuthServer) Handler() http.Handler {
	r := mux.NewRouter()

	// Middleware (внешний -> внутренний).
	r.Use(
		mux.MiddlewareFunc(middleware.Recover()),              // безопасно ловим паники
		mux.MiddlewareFunc(middleware.RequestID()),            // формируем/прокидываем X-Request-Id (до логирования!)
		mux.MiddlewareFunc(middleware.Logging(s.opts.Logger)), // кладём request-scoped логгер в контекст и логируем
		mux.MiddlewareFunc(middleware.Metrics()),              // метрики запросов
		mux.MiddlewareFunc(middleware.AuthBearer()),           // вынимаем Bearer токен в контекст
	)
	if s.opts.Timeout > 0 {
		r.Use(mux.MiddlewareFunc(middleware.Timeout(s.opts.Timeout))) // общий дедлайн запроса
	}

	// auth
	r.HandleFunc("/auth/register", s.registerUser).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.loginUser).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", s.refreshToken).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.revokeToken).Methods(http.MethodPost)
	r.HandleFunc("/auth/validate", s.validateToken).Methods(http.MethodGet)

	// служебные
	r.HandleFunc("/livez", s.livez).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if len(s.opts.AllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		})
		return c.Handler(r)
	}

	return r
}

func (s *AuthServer) livez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *AuthServer) healthz(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unhealthy"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
