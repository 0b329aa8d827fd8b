package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	PricingTaxRateBPS int
	CurrencyCode      string

	SessionTTL         time.Duration
	SessionKeyPrefix   string
	OrderSubmitLatency time.Duration
	OrderSubmitTimeout time.Duration
	SessionLockTTL     time.Duration
	LockRetryBackoff   time.Duration
	IdempotencyTTL     time.Duration

	CatalogCacheTTL     time.Duration
	CatalogSeed         int64
	CatalogDefaultLimit int
	CatalogMaxLimit     int

	QueueRedisPrefix       string
	QueueConcurrency       int
	QueueMaxAttempts       int
	QueueVisibilityTimeout time.Duration
	QueueBackoffBase       time.Duration
	QueueBackoffJitter     float64
	EventStreamMaxLen      int64

	SubmitRateLimitMax    int
	SubmitRateLimitWindow time.Duration

	AdvisorEndpoint            string
	AdvisorAPIKey              string
	AdvisorModel               string
	AdvisorTimeout             time.Duration
	AdvisorRateLimit           string
	AdvisorBreakerMinRequests  int
	AdvisorBreakerFailureRatio float64
	AdvisorBreakerOpenFor      time.Duration
	AdvisorRetryMaxAttempts    int

	BodyLimitBytes         int64
	SecurityHeadersEnabled bool
	HSTSMaxAge             time.Duration
}

// Load reads configuration from the environment, after an optional .env
// file. Malformed values are reported together instead of silently replaced
// by their defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	src := &source{k: k}

	prefix := src.str("SESSION_KEY_PREFIX", "mayorista")
	cfg := &Config{
		AppEnv:             src.str("APP_ENV", "development"),
		Port:               src.str("PORT", "8080"),
		RedisURL:           src.str("REDIS_URL", ""),
		CORSAllowedOrigins: src.list("CORS_ALLOWED_ORIGINS"),

		PricingTaxRateBPS: src.int("PRICING_TAX_RATE_BPS", 1900),
		CurrencyCode:      strings.ToUpper(src.str("CURRENCY_CODE", "CLP")),

		SessionTTL:         src.duration("SESSION_TTL", 24*time.Hour),
		SessionKeyPrefix:   prefix,
		OrderSubmitLatency: src.duration("ORDER_SUBMIT_LATENCY", 0),
		OrderSubmitTimeout: src.duration("ORDER_SUBMIT_TIMEOUT", 15*time.Second),
		SessionLockTTL:     src.duration("SESSION_LOCK_TTL", 5*time.Second),
		LockRetryBackoff:   src.duration("LOCK_RETRY_BACKOFF", 50*time.Millisecond),
		IdempotencyTTL:     src.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		CatalogCacheTTL:     src.duration("CATALOG_CACHE_TTL", 5*time.Minute),
		CatalogSeed:         int64(src.int("CATALOG_SEED", 42)),
		CatalogDefaultLimit: src.int("CATALOG_DEFAULT_LIMIT", 20),
		CatalogMaxLimit:     src.int("CATALOG_MAX_LIMIT", 100),

		QueueRedisPrefix:       src.str("QUEUE_REDIS_PREFIX", prefix),
		QueueConcurrency:       src.int("QUEUE_CONCURRENCY", 2),
		QueueMaxAttempts:       src.int("QUEUE_MAX_ATTEMPTS", 5),
		QueueVisibilityTimeout: src.duration("QUEUE_VISIBILITY_TIMEOUT", 30*time.Second),
		QueueBackoffBase:       src.duration("QUEUE_BACKOFF_BASE", 200*time.Millisecond),
		QueueBackoffJitter:     src.float("QUEUE_BACKOFF_JITTER", 0.2),
		EventStreamMaxLen:      int64(src.int("EVENT_STREAM_MAXLEN", 10000)),

		SubmitRateLimitMax:    src.int("SUBMIT_RATE_LIMIT_MAX", 10),
		SubmitRateLimitWindow: src.duration("SUBMIT_RATE_LIMIT_WINDOW", time.Minute),

		AdvisorEndpoint:            src.str("ADVISOR_ENDPOINT", ""),
		AdvisorAPIKey:              src.str("ADVISOR_API_KEY", ""),
		AdvisorModel:               src.str("ADVISOR_MODEL", "gemini-2.5-flash"),
		AdvisorTimeout:             src.duration("ADVISOR_TIMEOUT", 10*time.Second),
		AdvisorRateLimit:           src.str("ADVISOR_RATE_LIMIT", "20-M"),
		AdvisorBreakerMinRequests:  src.int("ADVISOR_BREAKER_MIN_REQUESTS", 5),
		AdvisorBreakerFailureRatio: src.float("ADVISOR_BREAKER_FAILURE_RATIO", 0.5),
		AdvisorBreakerOpenFor:      src.duration("ADVISOR_BREAKER_OPEN_FOR", 30*time.Second),
		AdvisorRetryMaxAttempts:    src.int("ADVISOR_RETRY_MAX_ATTEMPTS", 2),

		BodyLimitBytes:         int64(src.int("BODY_LIMIT_BYTES", 1<<20)),
		SecurityHeadersEnabled: src.bool("SECURITY_HEADERS_ENABLED", true),
		HSTSMaxAge:             src.duration("SECURITY_HSTS_MAX_AGE", 180*24*time.Hour),
	}
	if err := errors.Join(src.errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.PricingTaxRateBPS < 0 {
		errs = append(errs, errors.New("PRICING_TAX_RATE_BPS must not be negative"))
	}
	if c.OrderSubmitTimeout <= c.OrderSubmitLatency {
		errs = append(errs, errors.New("ORDER_SUBMIT_TIMEOUT must exceed ORDER_SUBMIT_LATENCY"))
	}
	if c.SessionLockTTL <= 0 {
		errs = append(errs, errors.New("SESSION_LOCK_TTL must be positive"))
	}
	if c.CatalogDefaultLimit <= 0 || c.CatalogMaxLimit < c.CatalogDefaultLimit {
		errs = append(errs, errors.New("CATALOG_DEFAULT_LIMIT must be positive and not exceed CATALOG_MAX_LIMIT"))
	}
	return errors.Join(errs...)
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// AdvisorEnabled reports whether an upstream text generator is configured.
func (c *Config) AdvisorEnabled() bool {
	return c.AdvisorEndpoint != ""
}

// source reads typed values from koanf. Blank values take the default; a
// value that does not parse is recorded against its key.
type source struct {
	k    *koanf.Koanf
	errs []error
}

func (s *source) raw(key string) (string, bool) {
	v := strings.TrimSpace(s.k.String(key))
	return v, v != ""
}

func (s *source) fail(key, v string, err error) {
	s.errs = append(s.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (s *source) str(key, def string) string {
	if v, ok := s.raw(key); ok {
		return v
	}
	return def
}

func (s *source) list(key string) []string {
	v, ok := s.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *source) int(key string, def int) int {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		s.fail(key, v, err)
		return def
	}
	return n
}

func (s *source) float(key string, def float64) float64 {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		s.fail(key, v, err)
		return def
	}
	return f
}

func (s *source) duration(key string, def time.Duration) time.Duration {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		s.fail(key, v, err)
		return def
	}
	return d
}

func (s *source) bool(key string, def bool) bool {
	v, ok := s.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.fail(key, v, err)
		return def
	}
	return b
}
