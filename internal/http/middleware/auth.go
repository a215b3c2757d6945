package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/music-catalog/internal/errors"
	"github.com/pribylovaa/music-catalog/internal/metrics"
	"github.com/pribylovaa/music-catalog/internal/models"
	"github.com/pribylovaa/music-catalog/internal/pkg/log"
	"github.com/pribylovaa/music-catalog/internal/service"
	"github.com/pribylovaa/music-catalog/internal/token"
)

// TokenVerifier — проверка токена (реализуется *token.Manager).
type TokenVerifier interface {
	Verify(tokenStr string, expected token.Role) (models.Identity, error)
}

type identityKey struct{}

// Authorize извлекает access-токен из запроса и проверяет его.
//
// Порядок извлечения:
//  1. cookie accessToken;
//  2. заголовок Authorization: Bearer <token>.
//
// Заголовок с другой схемой или без значения считается отсутствующим.
// Нет токена - service.ErrUnauthorized (401); токен не прошёл проверку -
// ошибка из семейства token.ErrInvalidToken (403).
func Authorize(r *http.Request, v TokenVerifier) (models.Identity, error) {
	const op = "middleware.auth.Authorize"

	raw := extractToken(r)
	if raw == "" {
		return models.Identity{}, fmt.Errorf("%s: %w", op, service.ErrUnauthorized)
	}

	id, err := v.Verify(raw, token.RoleAccess)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// RequireAuth пропускает запрос дальше только с валидным access-токеном.
// Установленная личность доступна обработчику через IdentityFrom, а логгер
// в контексте получает атрибут user_id. Токены не обновляются неявно.
func RequireAuth(v TokenVerifier, m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := Authorize(r, v)
			if err != nil {
				result := metrics.ResultForbidden
				if errors.Is(err, service.ErrUnauthorized) {
					result = metrics.ResultRejected
				} else {
					log.From(r.Context()).Info("access_token_rejected",
						slog.String("reason", err.Error()),
					)
				}
				m.AuthEvent("authorize", result)

				apierrors.WriteError(w, r, err)
				return
			}

			m.AuthEvent("authorize", metrics.ResultOK)

			ctx := WithIdentity(r.Context(), id)
			ctx = log.With(ctx, slog.String("user_id", id.SubjectID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity кладёт личность в контекст.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom возвращает личность, установленную RequireAuth.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie(models.AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	return bearerToken(r.Header.Get("Authorization"))
}

// bearerToken возвращает значение схемы Bearer (регистр схемы не важен) или "".
func bearerToken(header string) string {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsAny(value, " \t") {
		return ""
	}

	return value
}
