// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, token verification,
// rate limiting, idempotency, messaging, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-tasks-backend/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
// An empty list (or a single "*") means any origin is allowed.
type CORSConfig struct {
	AllowedOrigins []string
}

// AllowAll reports whether the wildcard posture is configured.
func (c CORSConfig) AllowAll() bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// AuthConfig defines how bearer tokens are verified against the identity
// provider's published key set.
type AuthConfig struct {
	Domain        string        // AUTH_DOMAIN (e.g. "tenant.eu.auth0.com")
	Audience      string        // AUTH_AUDIENCE
	Issuer        string        // AUTH_ISSUER, defaults to https://<domain>/
	JWKSURL       string        // AUTH_JWKS_URL, defaults to https://<domain>/.well-known/jwks.json
	JWKSCacheTTL  time.Duration // AUTH_JWKS_CACHE_TTL
	JWKSTimeout   time.Duration // AUTH_JWKS_TIMEOUT
	Leeway        time.Duration // AUTH_LEEWAY (clock skew on exp/nbf/iat)
	Disabled      bool          // AUTH_DISABLED: test-only bypass, never on by default
	BypassSubject string        // AUTH_BYPASS_SUBJECT: subject injected when Disabled
}

// RedisConfig selects the Redis-backed idempotency store when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NATSConfig enables the best-effort task event publisher when URL is set.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	ClientName    string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-tasks-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // e.g. 30s
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // request body cap
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	LogRedact      bool   // scrub PII from access logs (RedactingLogger)
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath string // SQLite path

	// Auth
	Auth AuthConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // 0 keeps records forever
	Redis          RedisConfig

	// Messaging
	NATS NATSConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "5000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		LogRedact:      getbool("LOG_REDACT", true),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/")),

		// App
		DBPath: getenv("DB_PATH", "tarefas.db"),

		// Auth
		Auth: AuthConfig{
			Domain:        strings.TrimSpace(getenv("AUTH_DOMAIN", "")),
			Audience:      strings.TrimSpace(getenv("AUTH_AUDIENCE", "")),
			Issuer:        strings.TrimSpace(getenv("AUTH_ISSUER", "")),
			JWKSURL:       strings.TrimSpace(getenv("AUTH_JWKS_URL", "")),
			JWKSCacheTTL:  getdur("AUTH_JWKS_CACHE_TTL", time.Hour),
			JWKSTimeout:   getdur("AUTH_JWKS_TIMEOUT", 5*time.Second),
			Leeway:        getdur("AUTH_LEEWAY", 0),
			Disabled:      getbool("AUTH_DISABLED", false),
			BypassSubject: getenv("AUTH_BYPASS_SUBJECT", "test-user"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(sysutil.FirstNonEmpty(os.Getenv("CORS_ALLOWED_ORIGINS"), os.Getenv("FRONTEND_ORIGINS"))),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			Prefix:   getenv("REDIS_PREFIX", "idem:"),
		},

		// Messaging
		NATS: NATSConfig{
			URL:           strings.TrimSpace(getenv("NATS_URL", "")),
			SubjectPrefix: getenv("NATS_SUBJECT_PREFIX", "tarefas"),
			ClientName:    getenv("NATS_CLIENT_NAME", "go-tasks-backend"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-tasks-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.Auth.Domain != "" {
		if cfg.Auth.Issuer == "" {
			cfg.Auth.Issuer = IssuerURL(cfg.Auth.Domain)
		}
		if cfg.Auth.JWKSURL == "" {
			cfg.Auth.JWKSURL = JWKSURL(cfg.Auth.Domain)
		}
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 {
		return cfg, errors.New("MAX_BODY_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if !cfg.Auth.Disabled {
		if cfg.Auth.JWKSURL == "" || cfg.Auth.Issuer == "" {
			return cfg, errors.New("AUTH_DOMAIN (or AUTH_JWKS_URL and AUTH_ISSUER) must be set unless AUTH_DISABLED")
		}
		if cfg.Auth.Audience == "" {
			return cfg, errors.New("AUTH_AUDIENCE must be set unless AUTH_DISABLED")
		}
	}
	if cfg.Auth.JWKSCacheTTL <= 0 {
		return cfg, errors.New("AUTH_JWKS_CACHE_TTL must be > 0")
	}
	if cfg.Auth.JWKSTimeout <= 0 {
		return cfg, errors.New("AUTH_JWKS_TIMEOUT must be > 0")
	}
	if cfg.Auth.Leeway < 0 {
		return cfg, errors.New("AUTH_LEEWAY must be >= 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL < 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// IssuerURL returns the token issuer for a provider domain.
func IssuerURL(domain string) string {
	return "https://" + strings.Trim(domain, "/") + "/"
}

// JWKSURL returns the well-known key set location for a provider domain.
func JWKSURL(domain string) string {
	return "https://" + strings.Trim(domain, "/") + "/.well-known/jwks.json"
}
