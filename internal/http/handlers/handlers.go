package handlers

//go:generate mockgen -destination=../../../mocks/mock_service.go -package=mocks github.com/pribylovaa/music-catalog/internal/http/handlers Service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/music-catalog/internal/config"
	"github.com/pribylovaa/music-catalog/internal/models"
)

// Service — бизнес-операции, которые нужны хендлерам (реализуется *service.Service).
type Service interface {
	RegisterUser(ctx context.Context, email, password string) (string, error)
	LoginUser(ctx context.Context, email, password string) (*models.TokenPair, string, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, string, error)
	Profile(ctx context.Context, userID string) (models.Profile, error)
}

// Handlers агрегирует зависимости REST-слоя.
type Handlers struct {
	svc     Service
	cookies *Cookies
}

func New(svc Service, auth config.AuthConfig, cookie config.CookieConfig) *Handlers {
	return &Handlers{
		svc:     svc,
		cookies: NewCookies(auth, cookie),
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
