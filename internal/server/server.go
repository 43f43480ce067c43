package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/fridgechef/backend/config"
	"github.com/pageza/fridgechef/backend/internal/api"
	"github.com/pageza/fridgechef/backend/internal/database"
	"github.com/pageza/fridgechef/backend/internal/middleware"
	"github.com/pageza/fridgechef/backend/internal/service"
)

// Deps are the collaborators the HTTP server routes to. DB and Redis may be nil.
type Deps struct {
	Analyzer service.IAnalyzer
	History  service.IHistoryService
	DB       *gorm.DB
	Redis    *redis.Client
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	log    logrus.FieldLogger
}

// New creates a new server instance with every route registered
func New(cfg *config.Config, deps Deps, log logrus.FieldLogger) *Server {
	gin.SetMode(cfg.Environment.GinMode())

	router := gin.New()
	// X-Forwarded-For is only honoured from these; with none, the socket address is the client
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.WithError(err).Warn("invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log.WithField("component", "http")))
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	checks := map[string]api.Pinger{}
	if deps.DB != nil {
		db := deps.DB
		checks["database"] = func(ctx context.Context) error { return database.HealthCheck(ctx, db) }
	}
	if deps.Redis != nil {
		rdb := deps.Redis
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	api.NewHealthHandler(checks).RegisterRoutes(router)

	// Only the analysis routes cost model calls, so only they are limited
	analysis := router.Group("")
	if limiter := newLimiter(cfg, deps.Redis); limiter != nil {
		limitCfg := rateLimitConfig(cfg)
		analysis.Use(middleware.RateLimit(limiter, limitCfg, log.WithField("component", "ratelimit")))
	}
	api.NewAnalyzeHandler(deps.Analyzer, cfg.MaxUploadBytes, log).RegisterRoutes(analysis)

	if deps.History != nil {
		api.NewHistoryHandler(deps.History, log).RegisterRoutes(router.Group("/api/v1"))
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Window:    time.Minute,
		Limit:     cfg.RateLimitPerMinute,
		KeyPrefix: "fridgechef:ratelimit",
	}
}

// newLimiter returns nil when rate limiting is switched off
func newLimiter(cfg *config.Config, rdb *redis.Client) middleware.Limiter {
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}
	if rdb != nil {
		return middleware.NewRedisLimiter(rdb, rateLimitConfig(cfg))
	}
	return middleware.NewMemoryLimiter(rateLimitConfig(cfg))
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens and serves until Shutdown is called
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
