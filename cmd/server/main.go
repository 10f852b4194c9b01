// Command server runs the tasks API.
//
// @title       Tasks API
// @version     1.0
// @description Task CRUD secured by bearer tokens.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-tasks-backend/internal/auth"
	"github.com/tbourn/go-tasks-backend/internal/cache"
	"github.com/tbourn/go-tasks-backend/internal/config"
	"github.com/tbourn/go-tasks-backend/internal/events"
	httpapi "github.com/tbourn/go-tasks-backend/internal/http"
	"github.com/tbourn/go-tasks-backend/internal/http/handlers"
	"github.com/tbourn/go-tasks-backend/internal/observability"
	"github.com/tbourn/go-tasks-backend/internal/repo"
	"github.com/tbourn/go-tasks-backend/internal/sysutil"
)

var version = "dev"

func main() {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogging(cfg.LogLevel, cfg.LogPretty, os.Stdout)
	gin.SetMode(cfg.GinMode)

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	go func() {
		log.Info().Str("addr", a.srv.Addr).Str("version", version).Msg("listening")
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, a.shutdownOps())
	os.Exit(<-wait)
}

// app owns every long-lived resource of the process.
type app struct {
	srv          *http.Server
	db           *gorm.DB
	redis        *redis.Client
	pub          events.Publisher
	otelShutdown func(context.Context) error
}

// newApp opens the stores, builds the verifier and wires the router. On
// error any resource opened so far is released.
func newApp(ctx context.Context, cfg config.Config) (a *app, err error) {
	a = &app{pub: events.NopPublisher{}}
	defer func() {
		if err != nil {
			a.close(context.Background())
			a = nil
		}
	}()

	a.otelShutdown, err = observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return a, err
	}

	a.db, err = repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return a, err
	}
	if cfg.OTEL.Enabled {
		if err = repo.Instrument(a.db); err != nil {
			return a, err
		}
	}
	if err = repo.AutoMigrate(a.db); err != nil {
		return a, err
	}

	deps := httpapi.Deps{DB: a.db, Events: a.pub}

	if cfg.Auth.Disabled {
		log.Warn().Str("subject", cfg.Auth.BypassSubject).Msg("token verification disabled")
	} else {
		keys := auth.NewKeySetCache(cfg.Auth.JWKSURL, cfg.Auth.JWKSCacheTTL, cfg.Auth.JWKSTimeout)
		deps.Verifier = auth.NewVerifier(keys, auth.VerifierConfig{
			Audience: cfg.Auth.Audience,
			Issuer:   cfg.Auth.Issuer,
			Leeway:   cfg.Auth.Leeway,
		})
	}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := cache.NewRedisIdempotencyStore(a.redis, cfg.Redis.Prefix, cfg.IdempotencyTTL)
		deps.Idempotency = store
		deps.ReadyChecks = append(deps.ReadyChecks, handlers.Check{Name: "redis", Probe: store.Ping})
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotency store: redis")
	}

	if cfg.NATS.URL != "" {
		nc := events.DefaultNATSConfig()
		nc.URL = cfg.NATS.URL
		nc.Name = cfg.NATS.ClientName
		nc.SubjectPrefix = cfg.NATS.SubjectPrefix
		pub, perr := events.NewNATSPublisher(nc)
		if perr != nil {
			// Events are best-effort; the API still serves without a broker.
			log.Warn().Err(perr).Str("url", cfg.NATS.URL).Msg("event publishing disabled")
		} else {
			a.pub = pub
			deps.Events = pub
		}
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, deps, cfg)

	a.srv = &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	return a, nil
}

// shutdownOps stops intake first; the stores close once in-flight requests
// have drained.
func (a *app) shutdownOps() map[string]gfshutdown.Operation {
	return map[string]gfshutdown.Operation{
		"tasks-api": func(ctx context.Context) error {
			err := a.srv.Shutdown(ctx)
			a.close(ctx)
			return err
		},
	}
}

// close releases everything except the HTTP listener. Safe on a partially
// built app.
func (a *app) close(ctx context.Context) {
	if a.pub != nil {
		a.pub.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close")
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn().Err(err).Msg("db close")
			}
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}
}
