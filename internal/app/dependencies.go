package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-mayorista/internal/config"
	"github.com/noah-isme/backend-mayorista/internal/lock"
)

// Dependencies enumerates infrastructure shared by the api and worker processes.
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger
	Redis  *redis.Client
	Locker lock.Locker
}

// Options toggles optional instrumentation.
type Options struct {
	RedisMetrics bool
	PingTimeout  time.Duration
}

// New connects to Redis, instruments the client, and builds the shared locker.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if opts.RedisMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Dependencies{
		Config: cfg,
		Logger: logger,
		Redis:  client,
		Locker: lock.Locker{R: client, Prefix: cfg.SessionKeyPrefix, RetryBackoff: cfg.LockRetryBackoff},
	}, nil
}

// Close releases the Redis connection pool.
func (d *Dependencies) Close() {
	if d == nil || d.Redis == nil {
		return
	}
	if err := d.Redis.Close(); err != nil {
		d.Logger.Error().Err(err).Msg("close redis")
	}
}
