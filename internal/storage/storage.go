// storage описывает контракт хранилища учётных записей, которым пользуется
// сервисный слой. Реализации: mongo (основная), postgres и memory.
package storage

//go:generate mockgen -destination=../../mocks/mock_storage.go -package=mocks github.com/pribylovaa/music-catalog/internal/storage UserStorage

import (
	"context"
	"errors"

	"github.com/pribylovaa/music-catalog/internal/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/id).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// Storage задает контракт хранилища с освобождением ресурсов.
type Storage interface {
	UserStorage
	Close(ctx context.Context) error
}
