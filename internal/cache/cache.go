// cache — read-through кэш пользователей в Redis поверх storage.UserStorage.
//
// Кэшируется только поиск по ID (refresh и /users/me); поиск по email всегда
// идёт в хранилище, так как логину нужен хэш пароля. В Redis хэш пароля
// не попадает: пользователь из кэша возвращается с пустым PasswordHash.
// Ошибки Redis не ломают запрос — кэш пропускается с предупреждением в лог.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/music-catalog/internal/models"
	"github.com/pribylovaa/music-catalog/internal/pkg/log"
	"github.com/pribylovaa/music-catalog/internal/storage"
)

const defaultPrefix = "catalog:user:"

// NewRedisClient создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}

	return rdb, nil
}

// Users оборачивает хранилище пользователей кэшем по ID.
type Users struct {
	next   storage.UserStorage
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewUsers создаёт кэширующую обёртку. Пустой prefix заменяется на "catalog:user:".
func NewUsers(next storage.UserStorage, rdb redis.UniversalClient, prefix string, ttl time.Duration) *Users {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Users{next: next, rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Users) key(id string) string { return c.prefix + id }

// SaveUser пишет в хранилище; кэш заполняется лениво при чтении.
func (c *Users) SaveUser(ctx context.Context, user *models.User) error {
	return c.next.SaveUser(ctx, user)
}

// UserByEmail всегда читает из хранилища.
func (c *Users) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.next.UserByEmail(ctx, email)
}

// UserByID читает из кэша, при промахе — из хранилища с последующей записью в кэш.
func (c *Users) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "cache.UserByID"

	lg := log.From(ctx)

	user, ok, err := c.get(ctx, id)
	if err != nil {
		lg.Warn("user_cache_get_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}
	if ok {
		return user, nil
	}

	user, err = c.next.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, user); err != nil {
		lg.Warn("user_cache_set_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	return user, nil
}

// Храним как Redis Hash с полями: email, fav (JSON), created, updated (unix ms).
func (c *Users) get(ctx context.Context, id string) (*models.User, bool, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(id)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	var favorites []string
	if err := json.Unmarshal([]byte(m["fav"]), &favorites); err != nil {
		return nil, false, err
	}

	created, err := strconv.ParseInt(m["created"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	updated, err := strconv.ParseInt(m["updated"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	return &models.User{
		ID:        id,
		Email:     m["email"],
		Favorites: favorites,
		CreatedAt: time.UnixMilli(created).UTC(),
		UpdatedAt: time.UnixMilli(updated).UTC(),
	}, true, nil
}

func (c *Users) set(ctx context.Context, u *models.User) error {
	if c.ttl <= 0 {
		return nil
	}

	favorites := u.Favorites
	if favorites == nil {
		favorites = []string{}
	}

	fav, err := json.Marshal(favorites)
	if err != nil {
		return err
	}

	kv := map[string]string{
		"email":   u.Email,
		"fav":     string(fav),
		"created": strconv.FormatInt(u.CreatedAt.UnixMilli(), 10),
		"updated": strconv.FormatInt(u.UpdatedAt.UnixMilli(), 10),
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(u.ID), kv)
	pipe.Expire(ctx, c.key(u.ID), c.ttl)

	_, err = pipe.Exec(ctx)
	return err
}

// Проверка на соответствие интерфейсу UserStorage.
var _ storage.UserStorage = (*Users)(nil)
