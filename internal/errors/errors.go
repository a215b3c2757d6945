// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает доменную ошибку (service/token/storage), на выход даёт:
//   - стабильный HTTP-статус;
//   - машиночитаемый code и безопасное человекочитаемое message.
//
// Детали внутренних ошибок наружу не утекают: всё, что не распознано,
// превращается в 500/INTERNAL_ERROR, а подробности остаются в логах.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/pribylovaa/music-catalog/internal/pkg/log"
	"github.com/pribylovaa/music-catalog/internal/pkg/reqid"
	"github.com/pribylovaa/music-catalog/internal/service"
	"github.com/pribylovaa/music-catalog/internal/token"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат тела ошибки.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — id запроса из контекста (middleware.RequestID), если есть.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// rule — строка таблицы маппинга.
type rule struct {
	target  error
	status  int
	code    string
	message string
}

// Порядок важен: более специфичные ошибки проверяются раньше.
// ErrInvalidRefreshToken оборачивает token.ErrInvalidToken и должен идти первым.
var rules = []rule{
	{service.ErrInvalidRefreshToken, http.StatusForbidden, "INVALID_REFRESH_TOKEN", "Invalid refresh token"},
	{service.ErrNoRefreshToken, http.StatusUnauthorized, "NO_REFRESH_TOKEN", "Refresh token missing"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "Access token missing"},
	{token.ErrInvalidToken, http.StatusForbidden, "INVALID_TOKEN", "Invalid token"},
	{service.ErrInvalidCredentials, http.StatusBadRequest, "INVALID_CREDENTIALS", "Invalid email or password"},
	{service.ErrEmailTaken, http.StatusBadRequest, "USER_EXISTS", "User already exists"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "INVALID_REQUEST", "Invalid email"},
	{service.ErrEmptyPassword, http.StatusBadRequest, "INVALID_REQUEST", "Password is required"},
	{service.ErrPasswordTooLong, http.StatusBadRequest, "INVALID_REQUEST", "Password is too long"},
	{service.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"},
	{service.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{context.Canceled, StatusClientClosedRequest, "CANCELED", "Request canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out"},
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/INTERNAL_ERROR,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг;
//   - err распознан таблицей rules - соответствующие статус и код;
//   - прочее - 500/INTERNAL_ERROR без утечки деталей.
func ToHTTP(err error) (int, APIError) {
	if err != nil {
		for _, r := range rules {
			if stderrors.Is(err, r.target) {
				return r.status, APIError{Code: r.code, Message: r.message}
			}
		}
	}

	return http.StatusInternalServerError, APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Something went wrong",
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет статус/тело, добавляет request_id из контекста, а ошибки 5xx логирует целиком.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	resp.RequestID = reqid.From(r.Context())

	if status >= http.StatusInternalServerError {
		errText := "<nil>"
		if err != nil {
			errText = err.Error()
		}

		log.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "request_failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("err", errText),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
