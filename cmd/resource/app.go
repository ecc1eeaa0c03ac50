package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/gogotex/gogotex/backend/go-resource/handlers"
	"github.com/gogotex/gogotex/backend/go-resource/internal/config"
	"github.com/gogotex/gogotex/backend/go-resource/internal/database"
	"github.com/gogotex/gogotex/backend/go-resource/internal/oidc"
	"github.com/gogotex/gogotex/backend/go-resource/internal/resource/handler"
	"github.com/gogotex/gogotex/backend/go-resource/internal/resource/history"
	"github.com/gogotex/gogotex/backend/go-resource/internal/resource/repository"
	"github.com/gogotex/gogotex/backend/go-resource/internal/resource/service"
	"github.com/gogotex/gogotex/backend/go-resource/internal/storage"
	"github.com/gogotex/gogotex/backend/go-resource/internal/tokens"
	"github.com/gogotex/gogotex/backend/go-resource/pkg/logger"
	"github.com/gogotex/gogotex/backend/go-resource/pkg/metrics"
	"github.com/gogotex/gogotex/backend/go-resource/pkg/middleware"
)

const pingTimeout = 2 * time.Second

// backends are the opened collections plus what is needed to health-check and close them.
type backends struct {
	store   repository.Collection
	history repository.Collection // nil when history is disabled
	redis   *redis.Client
	health  healthcheck.Handler
	closers []func(context.Context) error
}

func (b *backends) close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Warnf("close backend: %v", err)
		}
	}
}

// openBackends connects the document store, the history log and Redis.
// Without MONGODB_URI both collections live in process memory.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{health: handlers.NewHealth()}
	rc := cfg.Resource

	if cfg.MongoDB.URI == "" {
		logger.Warnf("MONGODB_URI not set; %s is kept in memory", rc.Name)
		b.store = repository.NewMemoryCollection(rc.Name)
		if rc.History != "" && rc.HistoryBackend == "store" {
			b.history = repository.NewMemoryCollection(rc.History)
		}
	} else {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, database.DefaultRetryPolicy())
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		b.closers = append(b.closers, client.Disconnect)
		b.health.AddReadinessCheck("mongodb", handlers.PingCheck(func(ctx context.Context) error {
			return database.Ping(ctx, client, pingTimeout)
		}, pingTimeout))

		db := client.Database(cfg.MongoDB.Database)
		b.store = repository.NewMongoCollection(db.Collection(rc.Name))
		if rc.History != "" && rc.HistoryBackend == "store" {
			col := db.Collection(rc.History)
			if err := repository.EnsureHistoryIndexes(ctx, col); err != nil {
				b.close(ctx)
				return nil, fmt.Errorf("history indexes: %w", err)
			}
			b.history = repository.NewMongoCollection(col)
		}
	}

	if rc.History != "" && rc.HistoryBackend == "minio" {
		st, err := storage.NewMinIOStorage(&cfg.MinIO)
		if err != nil {
			b.close(ctx)
			return nil, fmt.Errorf("open history archive: %w", err)
		}
		b.health.AddReadinessCheck("minio", handlers.PingCheck(st.Ping, pingTimeout))
		b.history = repository.NewObjectCollection(rc.History, st)
	}

	if cfg.Redis.Host != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func(context.Context) error { return b.redis.Close() })
		b.health.AddReadinessCheck("redis", handlers.PingCheck(func(ctx context.Context) error {
			return b.redis.Ping(ctx).Err()
		}, pingTimeout))
	}
	return b, nil
}

// authGuard returns the handlers that run before every mutating route.
func authGuard(ctx context.Context, cfg config.AuthConfig) ([]gin.HandlerFunc, error) {
	var ver middleware.Verifier
	switch cfg.Mode {
	case "jwt":
		v, err := tokens.NewVerifier(cfg.Secret)
		if err != nil {
			return nil, err
		}
		ver = v
	case "oidc":
		issuer := oidc.IssuerURL(cfg.Keycloak.URL, cfg.Keycloak.Realm)
		v, err := oidc.NewVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			return nil, err
		}
		ver = v
	default:
		return nil, nil
	}
	return []gin.HandlerFunc{middleware.AuthMiddleware(ver)}, nil
}

// newRouter assembles the HTTP surface: access log, recovery, optional gzip
// and rate limiting, the resource routes and the operational endpoints.
func newRouter(cfg *config.Config, b *backends, reg *prometheus.Registry, guard []gin.HandlerFunc) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(ginzap.Ginzap(logger.L(), time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger.L(), true))
	if cfg.Server.Gzip {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && b.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(b.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	rc := cfg.Resource.Resource()
	var mode service.HistoryMode = service.HistoryDisabled{}
	if b.history != nil {
		mode = service.HistoryEnabled{Recorder: history.NewRecorder(b.history)}
	}
	svc := service.New(rc, b.store, mode)
	handler.New(rc, svc).Register(r, guard...)

	metrics.RegisterCollectors(reg)
	handlers.RegisterHealth(r, b.health)
	handlers.RegisterMetrics(r, reg)
	handlers.RegisterSwagger(r, rc)

	logger.Infof("serving %s at %s (history=%v)", rc.Name, rc.MountPath(), svc.HistoryEnabled())
	return r
}
