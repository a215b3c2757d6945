// service содержит бизнес-логику сессионной аутентификации каталога:
// регистрацию и вход пользователей, выпуск и ротацию пар токенов,
// выдачу профиля текущего пользователя.
//
// Основные аспекты:
//   - Service не хранит состояние запросов и токенов; экземпляр безопасен
//     для конкурентного использования при потокобезопасном хранилище;
//   - logout реализуется транспортом (очистка cookie) и сервису не нужен:
//     токены не отзываются и живут до естественного истечения;
//   - Ошибки возвращаются обёрнутыми и далее маппятся транспортом
//     на HTTP-статусы (см. пакет internal/errors).
package service

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/music-catalog/internal/config"
	"github.com/pribylovaa/music-catalog/internal/metrics"
	"github.com/pribylovaa/music-catalog/internal/models"
	"github.com/pribylovaa/music-catalog/internal/storage"
	"github.com/pribylovaa/music-catalog/internal/token"
)

var (
	// ErrInvalidCredentials — неизвестный email или неверный пароль.
	// Оба случая неразличимы для клиента. HTTP 400.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken — пользователь с таким email уже существует. HTTP 400.
	ErrEmailTaken = errors.New("user already exists")

	// ErrInvalidEmail — e-mail пустой или некорректный. HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrEmptyPassword — пароль пустой. HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrPasswordTooLong — пароль длиннее 72 байт (предел bcrypt). HTTP 400.
	ErrPasswordTooLong = errors.New("password is too long")

	// ErrInvalidRequest — тело запроса не разобрано. HTTP 400.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUserNotFound — учётная запись из токена больше не существует. HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnauthorized — access-токен не предъявлен ни в cookie, ни в заголовке. HTTP 401.
	ErrUnauthorized = errors.New("access token missing")

	// ErrNoRefreshToken — refresh-токен не предъявлен в cookie. HTTP 401.
	ErrNoRefreshToken = errors.New("refresh token missing")

	// ErrInvalidRefreshToken — refresh-токен не прошёл проверку. HTTP 403.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// TokenManager — выпуск и проверка токенов (реализуется *token.Manager).
type TokenManager interface {
	IssuePair(subjectID string) (*models.TokenPair, error)
	Verify(tokenStr string, expected token.Role) (models.Identity, error)
}

// ProfileReader — чтение пользователя по ID для выдачи профиля.
type ProfileReader interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// Service описывает бизнес-логику аутентификации.
//
// storage — источник истины: регистрация, вход и проверка существования
// учётной записи при refresh всегда идут в него. profiles используется только
// для чтения профиля и может быть кэшем (см. SetProfileReader).
type Service struct {
	storage    storage.UserStorage
	profiles   ProfileReader
	tokens     TokenManager
	bcryptCost int
	metrics    *metrics.Metrics // может быть nil

	dummyOnce sync.Once
	dummyHash []byte
}

// New создаёт новый экземпляр Service.
func New(storage storage.UserStorage, tokens TokenManager, cfg config.AuthConfig) *Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Service{
		storage:    storage,
		profiles:   storage,
		tokens:     tokens,
		bcryptCost: cost,
	}
}

// SetMetrics подключает счётчики событий аутентификации (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetProfileReader подключает отдельный источник для Profile, например кэш
// поверх хранилища. Данные профиля могут отставать на время жизни кэша.
func (s *Service) SetProfileReader(r ProfileReader) {
	if r != nil {
		s.profiles = r
	}
}
