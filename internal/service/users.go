package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/music-catalog/internal/models"
	"github.com/pribylovaa/music-catalog/internal/storage"
)

// Profile возвращает публичные данные пользователя по ID из проверенного токена.
func (s *Service) Profile(ctx context.Context, userID string) (models.Profile, error) {
	const op = "service.users.Profile"

	user, err := s.profiles.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Profile{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return user.Profile(), nil
}
