package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/noah-isme/backend-mayorista/internal/app"
	"github.com/noah-isme/backend-mayorista/internal/config"
	"github.com/noah-isme/backend-mayorista/internal/events"
	"github.com/noah-isme/backend-mayorista/internal/obs"
	"github.com/noah-isme/backend-mayorista/internal/order"
	"github.com/noah-isme/backend-mayorista/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger("worker", logFormat, logLevel)
	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "mayorista"), nil)

	if tracing, _ := strconv.ParseBool(envOrDefault("OBS_ENABLE_TRACING", "true")); tracing {
		ratio, _ := strconv.ParseFloat(envOrDefault("OBS_TRACING_SAMPLING_RATIO", "1"), 64)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "mayorista-worker",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: ratio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracing")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()

	bus := &events.Bus{
		Store:     events.RedisStream{R: deps.Redis, Prefix: cfg.SessionKeyPrefix, MaxLen: cfg.EventStreamMaxLen},
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
	}
	submitted := events.OrderSubmitted{
		Bus:     bus,
		Locker:  deps.Locker,
		LockTTL: cfg.SessionLockTTL,
		R:       deps.Redis,
		Prefix:  cfg.SessionKeyPrefix,
		Logger:  logger,
	}

	if dead, err := queue.DeadLetters(ctx, deps.Redis, cfg.QueueRedisPrefix, order.TaskSubmitted, 100); err != nil {
		logger.Warn().Err(err).Msg("inspect dead letters")
	} else if len(dead) > 0 {
		logger.Warn().Int("count", len(dead)).Str("kind", order.TaskSubmitted).Msg("dead lettered tasks pending review")
	}

	submittedWorker := queue.Worker{
		R:                 deps.Redis,
		Prefix:            cfg.QueueRedisPrefix,
		Kind:              order.TaskSubmitted,
		Concurrency:       cfg.QueueConcurrency,
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
		RetryBase:         cfg.QueueBackoffBase,
		RetryJitter:       cfg.QueueBackoffJitter,
		Logger:            &logger,
		Handler:           submitted.Handle,
	}

	logger.Info().Str("kind", order.TaskSubmitted).Int("concurrency", cfg.QueueConcurrency).Msg("worker starting")
	if err := submittedWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("worker stopped with error")
	} else {
		logger.Info().Msg("worker shutdown complete")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
