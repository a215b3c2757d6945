package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/music-catalog/internal/cache"
	"github.com/pribylovaa/music-catalog/internal/storage/memory"
	"github.com/pribylovaa/music-catalog/internal/token"
)

// newCachedSvc собирает сервис как в main при включённом Redis:
// хранилище — источник истины, профиль читается через кэш.
func newCachedSvc(t *testing.T) (*Service, *memory.Storage, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tm, err := token.New(testCfg())
	require.NoError(t, err)

	store := memory.New()
	svc := New(store, tm, testCfg())
	svc.SetProfileReader(cache.NewUsers(store, rdb, "test:user:", time.Minute))

	return svc, store, mr
}

func TestRefreshToken_DeletedAccountWithWarmCache(t *testing.T) {
	t.Parallel()

	svc, store, mr := newCachedSvc(t)
	ctx := context.Background()

	id, err := svc.RegisterUser(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)

	pair, _, err := svc.LoginUser(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)

	// Прогреваем кэш профиля.
	_, err = svc.Profile(ctx, id)
	require.NoError(t, err)
	require.True(t, mr.Exists("test:user:"+id))

	rotated, subject, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, id, subject)

	store.Delete(id)
	require.True(t, mr.Exists("test:user:"+id))

	_, _, err = svc.RefreshToken(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, _, err = svc.RefreshToken(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestProfile_ReadsThroughCache(t *testing.T) {
	t.Parallel()

	svc, _, mr := newCachedSvc(t)
	ctx := context.Background()

	id, err := svc.RegisterUser(ctx, "bob@example.com", "secret1")
	require.NoError(t, err)

	p, err := svc.Profile(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "bob@example.com", p.Email)
	require.Equal(t, []string{}, p.Favorites)

	// Хэш пароля в кэш не попадает.
	require.Empty(t, mr.HGet("test:user:"+id, "password"))
}

func TestProfile_WithoutCacheSeesDeletion(t *testing.T) {
	t.Parallel()

	tm, err := token.New(testCfg())
	require.NoError(t, err)

	store := memory.New()
	svc := New(store, tm, testCfg())
	svc.SetProfileReader(nil) // nil не заменяет хранилище

	ctx := context.Background()
	id, err := svc.RegisterUser(ctx, "carol@example.com", "secret1")
	require.NoError(t, err)

	store.Delete(id)

	_, err = svc.Profile(ctx, id)
	require.ErrorIs(t, err, ErrUserNotFound)
}
