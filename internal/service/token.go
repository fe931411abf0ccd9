package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"auth-service/internal/cache"
	"auth-service/internal/models"
	"auth-service/internal/pkg/log"
	"auth-service/internal/storage"
)

// RefreshToken выполняет ротацию: отзывает предъявленный refresh-токен и
// выпускает новую пару. Проверки идут строго по порядку, любая неудача
// обрывает операцию одним и тем же ErrInvalidRefreshToken:
//
//  1. поиск записи журнала по хэшу;
//  2. запись не отозвана;
//  3. запись не просрочена (expires_at <= now — просрочена);
//  4. криптографическая проверка самой строки токена;
//  5. subject из claims совпадает с владельцем записи;
//  6. условный отзыв старой записи — из двух конкурентных вызовов
//     по одному токену ротацию выигрывает ровно один;
//  7. выпуск и сохранение новой пары.
//
// Отзыв фиксируется в хранилище до выпуска новой пары: даже если ответ
// не дойдёт до клиента, старый токен уже мёртв и повторно не сыграет.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string, meta models.RequestMeta) (*models.TokenPair, error) {
	const op = "service.token.RefreshToken"

	lg := log.From(ctx)

	now := s.now().UTC()
	hash := hashToken(refreshToken)

	// Кэш — только негативный fast-path: по нему можно отказать,
	// но нельзя принять. Решение о приёме всегда за БД.
	if s.rcache != nil {
		if entry, ok, cerr := s.rcache.Get(ctx, hash); cerr == nil && ok {
			if entry.Revoked || !now.Before(entry.ExpiresAt) {
				lg.Warn("refresh_rejected_by_cache", slog.String("op", op))
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
			}
		}
	}

	rec, err := s.storage.RefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_lookup_not_found", slog.String("op", op))
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if rec.Revoked() {
		// Повторное предъявление уже использованного токена.
		lg.Warn("refresh_replay_detected",
			slog.String("op", op),
			slog.String("user_id", rec.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	if !now.Before(rec.ExpiresAt) {
		lg.Warn("refresh_expired",
			slog.String("op", op),
			slog.String("user_id", rec.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	// Запись в журнале есть и выглядит живой — дополнительно проверяем
	// саму строку токена (защита от рассинхронизации журнала и токена).
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		lg.Warn("refresh_verify_failed",
			slog.String("op", op),
			slog.String("user_id", rec.UserID.String()),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	if claims.Subject != rec.UserID.String() {
		lg.Warn("refresh_subject_mismatch",
			slog.String("op", op),
			slog.String("user_id", rec.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	won, err := s.storage.RevokeRefreshToken(ctx, hash, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !won {
		// Конкурентная ротация того же токена успела первой.
		lg.Warn("refresh_rotation_lost",
			slog.String("op", op),
			slog.String("user_id", rec.UserID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	if s.rcache != nil {
		if cerr := s.rcache.MarkRevoked(ctx, hash); cerr != nil {
			lg.Warn("refresh_cache_mark_revoked_failed",
				slog.String("op", op),
				slog.String("err", cerr.Error()),
			)
		}
	}

	user, err := s.storage.UserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.issueTokenPair(ctx, user, meta)
}

// issueTokenPair выпускает новую пару access+refresh токенов и сохраняет
// запись журнала для refresh-токена. ExpiresAt записи копируется из claims
// выпущенного токена, а не пересчитывается.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User, meta models.RequestMeta) (*models.TokenPair, error) {
	const op = "service.token.issueTokenPair"

	lg := log.From(ctx)

	accessToken, _, err := s.codec.Issue(user.ID.String(), user.Roles, s.cfg.AccessTokenTTL)
	if err != nil {
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, refreshClaims, err := s.codec.Issue(user.ID.String(), user.Roles, s.cfg.RefreshTokenTTL)
	if err != nil {
		lg.Error("refresh_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash := hashToken(refreshToken)

	rec := &models.RefreshToken{
		TokenHash: hash,
		UserID:    user.ID,
		IssuedAt:  refreshClaims.IssuedAt.Time,
		ExpiresAt: refreshClaims.ExpiresAt.Time,
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
	}

	if err := s.storage.SaveRefreshToken(ctx, rec); err != nil {
		// jti делает строки токенов уникальными, поэтому совпадение хэшей —
		// не штатная коллизия, а внутренняя ошибка.
		lg.Error("save_refresh_token_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.rcache != nil {
		entry := &cache.RefreshEntry{
			UserID:    user.ID,
			Revoked:   false,
			ExpiresAt: rec.ExpiresAt,
		}
		ttl := rec.ExpiresAt.Sub(rec.IssuedAt)
		if cerr := s.rcache.Set(ctx, hash, entry, ttl); cerr != nil {
			lg.Warn("refresh_cache_set_failed",
				slog.String("op", op),
				slog.String("err", cerr.Error()),
			)
		}
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    models.TokenTypeBearer,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// hashToken - one-way хэш строки токена для журнала (sha256 → base64url).
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
