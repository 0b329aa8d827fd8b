package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/backend-mayorista/internal/access"
	"github.com/noah-isme/backend-mayorista/internal/advisor"
	"github.com/noah-isme/backend-mayorista/internal/app"
	"github.com/noah-isme/backend-mayorista/internal/catalog"
	"github.com/noah-isme/backend-mayorista/internal/common"
	"github.com/noah-isme/backend-mayorista/internal/config"
	"github.com/noah-isme/backend-mayorista/internal/health"
	"github.com/noah-isme/backend-mayorista/internal/obs"
	"github.com/noah-isme/backend-mayorista/internal/order"
	"github.com/noah-isme/backend-mayorista/internal/queue"
	"github.com/noah-isme/backend-mayorista/internal/ratelimit"
	"github.com/noah-isme/backend-mayorista/internal/resilience"
	"github.com/noah-isme/backend-mayorista/internal/security"
	"github.com/noah-isme/backend-mayorista/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger("api", logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "mayorista")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "mayorista-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg, logger, app.Options{RedisMetrics: metricsEnabled})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()
	redisClient := deps.Redis

	store, err := catalog.Seed(cfg.CatalogSeed)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	logger.Info().
		Int("products", len(store.Products())).
		Int("clients", len(store.Clients())).
		Int("price_lists", len(store.PriceLists())).
		Msg("catalog loaded")

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Store:        store,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL, cfg.SessionKeyPrefix+":catalog"),
		Logger:       logger,
		DefaultLimit: cfg.CatalogDefaultLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogService)

	book := order.RedisBook{R: redisClient, Prefix: cfg.SessionKeyPrefix}
	committer := order.Delayed{
		Latency: cfg.OrderSubmitLatency,
		Next: order.Handoff{
			Book:        book,
			Queue:       queue.Enqueuer{R: redisClient, Prefix: cfg.QueueRedisPrefix, DedupTTL: cfg.IdempotencyTTL, MaxAttempts: cfg.QueueMaxAttempts},
			MaxAttempts: cfg.QueueMaxAttempts,
			Logger:      logger,
		},
	}
	taxRateBps := cfg.PricingTaxRateBPS
	sessionService, err := session.NewService(session.ServiceConfig{
		Store:         session.RedisStore{R: redisClient, Prefix: cfg.SessionKeyPrefix, TTL: cfg.SessionTTL},
		Catalog:       store,
		Committer:     committer,
		Locker:        deps.Locker,
		LockTTL:       cfg.SessionLockTTL,
		SubmitTimeout: cfg.OrderSubmitTimeout,
		Options:       session.Options{TaxRateBps: &taxRateBps},
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise session service")
	}
	sessionHandler := &session.Handler{Svc: sessionService}
	orderHandler := &order.Handler{Book: book}

	advisorService := &advisor.Service{Catalog: store, Logger: logger}
	var advisorBreaker *resilience.Breaker
	if cfg.AdvisorEnabled() {
		advisorBreaker = resilience.NewBreaker(resilience.BreakerConfig{
			Target:       "advisor",
			MinRequests:  cfg.AdvisorBreakerMinRequests,
			FailureRatio: cfg.AdvisorBreakerFailureRatio,
			OpenFor:      cfg.AdvisorBreakerOpenFor,
			Logger:       logger,
		})
		advisorService.Generator = advisor.HTTPGenerator{
			HTTP: resilience.HTTPClient{
				Client:      &http.Client{Transport: advisor.NewHTTPTransport(nil)},
				Breaker:     advisorBreaker,
				BaseBackoff: 250 * time.Millisecond,
				MaxAttempts: cfg.AdvisorRetryMaxAttempts,
				Jitter:      0.2,
				Timeout:     cfg.AdvisorTimeout,
			},
			Endpoint: cfg.AdvisorEndpoint,
			APIKey:   cfg.AdvisorAPIKey,
			Model:    cfg.AdvisorModel,
		}
	} else {
		logger.Warn().Msg("advisor endpoint not configured, serving fallback texts")
	}
	advisorHandler := &advisor.Handler{Svc: advisorService}

	limiterStore, err := ratelimit.NewRedisStore(redisClient, cfg.SessionKeyPrefix+":advisor-limit")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise advisor limiter store")
	}
	advisorLimit, err := ratelimit.FixedWindow(limiterStore, "advisor", cfg.AdvisorRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise advisor limiter")
	}
	submitLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: cfg.SessionKeyPrefix + ":ratelimit:"},
		Config: ratelimit.Config{
			Scope:  "submit",
			Window: cfg.SubmitRateLimitWindow,
			Max:    cfg.SubmitRateLimitMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("submit_rate_limit_unavailable")
		},
	}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL, Prefix: cfg.SessionKeyPrefix}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(access.Identity)
	if tracingEnabled {
		r.Use(obs.Tracing)
	}
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:          cfg.SecurityHeadersEnabled,
		EnableHSTS:      cfg.AppEnv == "production",
		HSTSMaxAge:      int(cfg.HSTSMaxAge.Seconds()),
		NoStorePrefixes: []string{"/api/v1/sessions", "/api/v1/orders"},
	}.Middleware)
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", access.HeaderUserID, access.HeaderUserRole},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := &health.Handler{Dependencies: []health.Dependency{
		health.RedisDependency(redisClient, envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300)),
	}}
	if advisorBreaker != nil {
		healthHandler.Dependencies = append(healthHandler.Dependencies, health.Dependency{
			Name:     "advisor",
			Optional: true,
			Ping: func(context.Context) error {
				if advisorBreaker.State() == resilience.Open {
					return resilience.ErrOpenCircuit
				}
				return nil
			},
		})
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.With(access.Require(access.SectionNewOrder)).Route("/catalog", func(c chi.Router) {
			c.Get("/products", catalogHandler.Products)
			c.Get("/categories", catalogHandler.Categories)
		})
		v.With(access.Require(access.SectionClients)).Get("/clients", catalogHandler.Clients)
		v.With(access.Require(access.SectionPriceLists)).Route("/price-lists", func(p chi.Router) {
			p.Get("/", catalogHandler.PriceLists)
			p.Get("/{id}/preview", catalogHandler.Preview)
		})

		v.Route("/sessions", func(s chi.Router) {
			s.Use(access.Require(access.SectionNewOrder))
			s.Post("/", sessionHandler.Create)
			s.Route("/{id}", func(one chi.Router) {
				one.Get("/", sessionHandler.Get)
				one.Put("/client", sessionHandler.SelectClient)
				one.Delete("/client", sessionHandler.ClearClient)
				one.Post("/lines", sessionHandler.AddLine)
				one.Post("/lines/{productId}/increment", sessionHandler.Increment)
				one.Post("/lines/{productId}/decrement", sessionHandler.Decrement)
				one.Delete("/lines/{productId}", sessionHandler.RemoveLine)
				one.With(submitLimit.Middleware, idem.Middleware).Post("/submit", sessionHandler.Submit)
			})
		})

		v.Route("/orders", func(o chi.Router) {
			o.Use(access.Require(access.SectionOrders))
			o.Get("/", orderHandler.List)
			o.Get("/{orderId}", orderHandler.Get)
		})

		v.Route("/advisor", func(a chi.Router) {
			a.Use(advisorLimit)
			a.With(access.Require(access.SectionInventory)).Post("/products/{id}/description", advisorHandler.ProductDescription)
			a.With(access.Require(access.SectionPriceLists)).Post("/products/{id}/pricing", advisorHandler.PricingStrategy)
			a.With(access.Require(access.SectionDashboard)).Post("/sales-trends", advisorHandler.SalesTrends)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		healthHandler.Drain()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("currency", cfg.CurrencyCode).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(fallback) * time.Millisecond
}
