// token выпускает и проверяет подписанные access/refresh токены (JWT, HS256).
//
// Состояние на сервере не хранится: валидность токена определяется только
// подписью, сроком действия и ролью внутри подписанных claims. Manager
// неизменяем после создания и безопасен для конкурентного использования.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/music-catalog/internal/config"
	"github.com/pribylovaa/music-catalog/internal/models"
)

// Role различает access и refresh токены.
type Role string

const (
	RoleAccess  Role = "access"
	RoleRefresh Role = "refresh"
)

var (
	// ErrInvalidToken — общий корень всех ошибок проверки.
	// Транспорт отвечает на любую из них одинаково (HTTP 403).
	ErrInvalidToken = errors.New("invalid token")

	// ErrMalformed — строка не является JWT или claims неполные.
	ErrMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)

	// ErrInvalidSignature — подпись не сходится или алгоритм не HS256.
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)

	// ErrExpired — срок действия истёк.
	ErrExpired = fmt.Errorf("%w: expired", ErrInvalidToken)

	// ErrRoleMismatch — предъявлен токен другой роли (например, refresh вместо access).
	ErrRoleMismatch = fmt.Errorf("%w: role mismatch", ErrInvalidToken)

	// ErrEmptySecret — попытка создать Manager без секрета.
	ErrEmptySecret = errors.New("token: empty signing secret")
)

// Claims — подписанная полезная нагрузка токена.
type Claims struct {
	UserID string `json:"id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Manager выпускает и проверяет токены общим секретом.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

// Option настраивает Manager.
type Option func(*Manager)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New создаёт Manager из конфигурации. Пустой секрет — ошибка:
// молча подписывать токены пустым ключом нельзя.
func New(cfg config.AuthConfig, opts ...Option) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrEmptySecret
	}

	m := &Manager{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// TTL возвращает срок жизни токена указанной роли.
func (m *Manager) TTL(role Role) time.Duration {
	if role == RoleRefresh {
		return m.refreshTTL
	}

	return m.accessTTL
}

// Issue подписывает токен роли role для субъекта subjectID.
// Каждый вызов даёт уникальный токен за счёт случайного jti.
func (m *Manager) Issue(subjectID string, role Role) (string, time.Time, error) {
	return m.issueAt(subjectID, role, m.now().UTC())
}

// IssuePair выпускает access и refresh от одного момента времени,
// поэтому срок access всегда раньше срока refresh.
func (m *Manager) IssuePair(subjectID string) (*models.TokenPair, error) {
	const op = "token.IssuePair"

	now := m.now().UTC()

	access, accessExp, err := m.issueAt(subjectID, RoleAccess, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, refreshExp, err := m.issueAt(subjectID, RoleRefresh, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) issueAt(subjectID string, role Role, now time.Time) (string, time.Time, error) {
	const op = "token.Issue"

	if subjectID == "" {
		return "", time.Time{}, fmt.Errorf("%s: empty subject", op)
	}

	if role != RoleAccess && role != RoleRefresh {
		return "", time.Time{}, fmt.Errorf("%s: unknown role %q", op, role)
	}

	exp := now.Add(m.TTL(role))
	claims := Claims{
		UserID: subjectID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}

// Verify проверяет подпись, срок и роль токена и возвращает личность субъекта.
// Все ошибки оборачивают ErrInvalidToken.
func (m *Manager) Verify(tokenStr string, expected Role) (models.Identity, error) {
	const op = "token.Verify"

	var claims Claims
	tok, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrExpired)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrMalformed)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
		default:
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrMalformed)
		}
	}

	if !tok.Valid || claims.UserID == "" {
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	if claims.Role != expected {
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrRoleMismatch)
	}

	return models.Identity{SubjectID: claims.UserID}, nil
}
