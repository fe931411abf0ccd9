package http

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	apierrors "auth-service/internal/errors"
	"auth-service/internal/models"
	"auth-service/internal/service"
	"auth-service/internal/transport/http/middleware"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type validateResponse struct {
	Valid  bool     `json:"valid"`
	UserID string   `json:"user_id,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

func (s *AuthServer) registerUser(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidEmail)
		return
	}

	tp, err := s.service.RegisterUser(r.Context(), in.Email, in.Password, requestMeta(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, pairToResponse(tp))
}

func (s *AuthServer) loginUser(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, service.ErrInvalidCredentials)
		return
	}

	tp, err := s.service.LoginUser(r.Context(), in.Email, in.Password, requestMeta(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pairToResponse(tp))
}

func (s *AuthServer) refreshToken(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil || in.RefreshToken == "" {
		apierrors.WriteError(w, r, service.ErrInvalidRefreshToken)
		return
	}

	tp, err := s.service.RefreshToken(r.Context(), in.RefreshToken, requestMeta(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pairToResponse(tp))
}

func (s *AuthServer) revokeToken(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil || in.RefreshToken == "" {
		apierrors.WriteError(w, r, service.ErrInvalidRefreshToken)
		return
	}

	if err := s.service.RevokeToken(r.Context(), in.RefreshToken); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// validateToken проверяет access-токен из Authorization: Bearer.
// Невалидный или просроченный токен — это не ошибка вызова: возвращаем
// 200 и {valid:false}, чтобы вызывающий мог различать состояние токена
// без разбора статусов.
func (s *AuthServer) validateToken(w http.ResponseWriter, r *http.Request) {
	raw, _ := r.Context().Value(middleware.CtxAuthToken).(string)
	if raw == "" {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	uid, roles, err := s.service.ValidateAccessToken(r.Context(), raw)
	if err != nil {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false})
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid:  true,
		UserID: uid.String(),
		Roles:  roles,
	})
}

func pairToResponse(tp *models.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  tp.AccessToken,
		RefreshToken: tp.RefreshToken,
		TokenType:    tp.TokenType,
		ExpiresIn:    tp.ExpiresIn,
	}
}

// requestMeta извлекает метаданные клиента для журнала refresh-токенов.
func requestMeta(r *http.Request) models.RequestMeta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		// Берём первый адрес из цепочки прокси.
		if idx := strings.IndexByte(ip, ','); idx > 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}

	return models.RequestMeta{
		UserAgent: r.UserAgent(),
		IP:        ip,
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
