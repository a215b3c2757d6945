package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/music-catalog/internal/metrics"
	"github.com/pribylovaa/music-catalog/internal/models"
	"github.com/pribylovaa/music-catalog/internal/pkg/log"
	"github.com/pribylovaa/music-catalog/internal/pkg/redact"
	"github.com/pribylovaa/music-catalog/internal/storage"
	"github.com/pribylovaa/music-catalog/internal/token"
)

// RegisterUser регистрирует нового пользователя и возвращает его ID.
// Токены при регистрации не выдаются — клиент выполняет вход отдельно.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (string, error) {
	const op = "service.auth.RegisterUser"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(password); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		s.metrics.AuthEvent("register", metrics.ResultRejected)
		return "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.metrics.AuthEvent("register", metrics.ResultError)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		s.metrics.AuthEvent("register", metrics.ResultError)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        normEmail,
		PasswordHash: hashedPassword,
		Favorites:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			s.metrics.AuthEvent("register", metrics.ResultRejected)
			return "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		s.metrics.AuthEvent("register", metrics.ResultError)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("user_id", user.ID),
		slog.String("email", redact.Email(normEmail)),
	)
	s.metrics.AuthEvent("register", metrics.ResultOK)

	return user.ID, nil
}

// LoginUser выполняет вход по email+пароль и выпускает новую пару токенов.
// Неизвестный email и неверный пароль дают одну и ту же ErrInvalidCredentials.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*models.TokenPair, string, error) {
	const op = "service.auth.LoginUser"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil || len(password) == 0 {
		s.metrics.AuthEvent("login", metrics.ResultRejected)
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.burnPasswordCheck(password)
			s.metrics.AuthEvent("login", metrics.ResultRejected)
			return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		s.metrics.AuthEvent("login", metrics.ResultError)
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		lg.Info("login_rejected", slog.String("email", redact.Email(normEmail)))
		s.metrics.AuthEvent("login", metrics.ResultRejected)
		return nil, "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		s.metrics.AuthEvent("login", metrics.ResultError)
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.AuthEvent("login", metrics.ResultOK)

	return pair, user.ID, nil
}

// RefreshToken проверяет refresh-токен и выпускает новую пару (ротация).
// Старый refresh-токен не отзывается: сервер не хранит состояние токенов.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, string, error) {
	const op = "service.auth.RefreshToken"

	lg := log.From(ctx)

	if refreshToken == "" {
		s.metrics.AuthEvent("refresh", metrics.ResultRejected)
		return nil, "", fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	identity, err := s.tokens.Verify(refreshToken, token.RoleRefresh)
	if err != nil {
		lg.Warn("refresh_token_rejected",
			slog.String("op", op),
			slog.String("reason", err.Error()),
		)
		s.metrics.AuthEvent("refresh", metrics.ResultForbidden)
		return nil, "", fmt.Errorf("%s: %w: %w", op, ErrInvalidRefreshToken, err)
	}

	user, err := s.storage.UserByID(ctx, identity.SubjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.metrics.AuthEvent("refresh", metrics.ResultRejected)
			return nil, "", fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		s.metrics.AuthEvent("refresh", metrics.ResultError)
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		s.metrics.AuthEvent("refresh", metrics.ResultError)
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.AuthEvent("refresh", metrics.ResultOK)

	return pair, user.ID, nil
}

// validateEmail проверяет базовый формат email, обрезает пробелы и приводит к нижнему регистру.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}
