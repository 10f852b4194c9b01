// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Authentication, idempotency and rate limiting run per route, in that
//     order, so each sees the identity and replay state of the one before
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-tasks-backend/docs" // registers OpenAPI docs
	"github.com/tbourn/go-tasks-backend/internal/auth"
	"github.com/tbourn/go-tasks-backend/internal/config"
	"github.com/tbourn/go-tasks-backend/internal/domain"
	"github.com/tbourn/go-tasks-backend/internal/events"
	"github.com/tbourn/go-tasks-backend/internal/http/handlers"
	"github.com/tbourn/go-tasks-backend/internal/http/middleware"
	"github.com/tbourn/go-tasks-backend/internal/repo"
	"github.com/tbourn/go-tasks-backend/internal/services"
)

// taskRepoShim adapts the repository free functions to the services.TaskRepo
// and services.SnapshotRepo interfaces expected by the TaskService. This
// keeps services decoupled from the concrete repo package while reusing
// existing functions.
type taskRepoShim struct{}

// InsertTask proxies repo.InsertTask.
func (taskRepoShim) InsertTask(ctx context.Context, db *gorm.DB, t *domain.Task) (*domain.Task, error) {
	return repo.InsertTask(ctx, db, t)
}

// ListTasks proxies repo.ListTasks.
func (taskRepoShim) ListTasks(ctx context.Context, db *gorm.DB) ([]domain.Task, error) {
	return repo.ListTasks(ctx, db)
}

// UpdateTaskFields proxies repo.UpdateTaskFields.
func (taskRepoShim) UpdateTaskFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Task, error) {
	return repo.UpdateTaskFields(ctx, db, id, fields)
}

// DeleteTask proxies repo.DeleteTask.
func (taskRepoShim) DeleteTask(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	return repo.DeleteTask(ctx, db, id)
}

// TasksStats proxies repo.TasksStats (ETag support).
func (taskRepoShim) TasksStats(ctx context.Context, db *gorm.DB) (int64, *time.Time, error) {
	return repo.TasksStats(ctx, db)
}

// snapshotRepoShim adapts the snapshot projection functions.
type snapshotRepoShim struct{}

// UpsertSnapshot proxies repo.UpsertSnapshot.
func (snapshotRepoShim) UpsertSnapshot(ctx context.Context, db *gorm.DB, s *domain.TaskSnapshot) error {
	return repo.UpsertSnapshot(ctx, db, s)
}

// DeleteSnapshot proxies repo.DeleteSnapshot.
func (snapshotRepoShim) DeleteSnapshot(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteSnapshot(ctx, db, id)
}

// Deps are the runtime collaborators RegisterRoutes wires together.
type Deps struct {
	// DB is the task store. Required.
	DB *gorm.DB
	// Verifier checks bearer tokens. Required unless cfg.Auth.Disabled.
	Verifier middleware.TokenVerifier
	// Idempotency records create responses. nil uses the GORM store.
	Idempotency services.IdempotencyStore
	// Events receives task notifications. nil disables publishing.
	Events events.Publisher
	// ReadyChecks are probed by /ready after the database.
	ReadyChecks []handlers.Check
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), CORS and security
// headers, health and metrics endpoints, and then mounts the task API under
// cfg.APIBasePath.
//
// Global middleware order:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Access log (redacting unless LOG_REDACT=false) + request-scoped logger
//  4. Recovery: capture panics after logger
//  5. ErrorRenderer: single place where auth errors become responses
//  6. Body size limiter
//  7. gzip
//  8. Metrics
//  9. CORS and security headers
//
// Per task route: auth gate (scope) → [POST] idempotency → rate limiter.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	if deps.Verifier == nil && !cfg.Auth.Disabled {
		panic("httpapi: a token verifier is required unless auth is disabled")
	}
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Render errors recorded with c.Error
	r.Use(middleware.ErrorRenderer())

	// 6) Global body size limit
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	// 7) Compression (promhttp negotiates its own)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 8) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 9) CORS posture and security headers
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false, // list relies on ETag revalidation
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Probes
	checks := append([]handlers.Check{{
		Name:  "database",
		Probe: func(ctx context.Context) error { return repo.Ping(ctx, deps.DB) },
	}}, deps.ReadyChecks...)
	r.GET("/health", handlers.Health)
	r.GET("/ready", handlers.Ready(handlers.DefaultReadyTimeout, checks...))

	// API docs
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/publisher
	idem := deps.Idempotency
	if idem == nil {
		idem = repo.NewIdempotencyRepo(deps.DB, cfg.IdempotencyTTL)
	}
	taskSvc := services.NewTaskService(deps.DB, taskRepoShim{}, snapshotRepoShim{}, deps.Events)
	h := handlers.New(taskSvc, idem)

	gate := middleware.AuthGate{
		Verifier:      deps.Verifier,
		Disabled:      cfg.Auth.Disabled,
		BypassSubject: cfg.Auth.BypassSubject,
	}
	idemCheck := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{Collection: services.TasksCollection, PerSubject: true, MaxLen: 200},
		idem.Find,
	)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyBySubjectOrIP()).Handler()

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/tarefas", gate.Require(""), rl, h.ListTasks)
		api.POST("/tarefas", gate.Require(auth.ScopeCreateTasks), idemCheck, rl, h.CreateTask)
		api.PUT("/tarefas/:id", gate.Require(auth.ScopeUpdateTasks), rl, h.UpdateTask)
		api.DELETE("/tarefas/:id", gate.Require(auth.ScopeDeleteTasks), rl, h.DeleteTask)
	}
}

// corsConfig builds the gin-contrib/cors settings. An empty or "*" origin
// list allows every origin without credentials; an explicit allow-list
// enables credentials.
func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{
			"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed,
		},
		MaxAge: 12 * time.Hour,
	}
	if c.AllowAll() {
		cc.AllowAllOrigins = true
		cc.AllowCredentials = false // must remain false with AllowAllOrigins
		return cc
	}
	cc.AllowOrigins = c.AllowedOrigins
	cc.AllowCredentials = true
	return cc
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
