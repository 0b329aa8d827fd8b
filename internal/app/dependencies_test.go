package app

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mayorista/internal/config"
)

func TestNewConnectsAndBuildsLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("SESSION_KEY_PREFIX", "")
	cfg, err := config.Load()
	require.NoError(t, err)

	deps, err := New(context.Background(), cfg, zerolog.Nop(), Options{})
	require.NoError(t, err)
	defer deps.Close()

	require.NoError(t, deps.Redis.Set(context.Background(), "k", "v", 0).Err())
	require.Equal(t, "mayorista", deps.Locker.Prefix)
	require.Equal(t, cfg.LockRetryBackoff, deps.Locker.RetryBackoff)
}

func TestNewRejectsInvalidURL(t *testing.T) {
	cfg := &config.Config{RedisURL: "://bad"}
	_, err := New(context.Background(), cfg, zerolog.Nop(), Options{})
	require.Error(t, err)
}
