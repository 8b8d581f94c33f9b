package api

import (
	"net/http"

	"backend/internal/audit"
	"backend/internal/auth"
	"backend/internal/authz"
	"backend/internal/common"
	"backend/internal/config"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server 聚合 HTTP 层的共享组件
type Server struct {
	Engine   *gin.Engine
	API      *gin.RouterGroup // 业务路由挂载点，已套认证与授权中间件
	Resolver *authz.Resolver
	Sink     *audit.Sink
}

// SetupRouter 组装路由与中间件链
// rdb 可为 nil，此时禁用裁决缓存与令牌黑名单
func SetupRouter(db *gorm.DB, rdb redis.UniversalClient, cfg *config.Config) *Server {
	log := logger.Get()

	var cache *authz.DecisionCache
	if rdb != nil && cfg.Authz.CacheEnabled {
		cache = authz.NewDecisionCache(rdb, cfg.Authz.GetCacheTTL(), log)
	}

	resolver := authz.NewResolver(db, authz.DefaultRolePolicy(), cache, log)
	sink := audit.NewSink(db, log)
	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, rdb)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())

	// 探活与指标不走认证链
	r.GET("/health", healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	bypass := cfg.Authz.BypassPaths
	if len(bypass) == 0 {
		bypass = []string{"/health", "/metrics", "/swagger"}
	}

	api := r.Group("/api")
	api.Use(auth.Middleware(jwtService))
	api.Use(authz.Middleware(resolver, sink, log, authz.MiddlewareConfig{
		BypassPaths: bypass,
		APIPrefix:   cfg.Authz.APIPrefix,
		FailOpen:    cfg.Authz.FailOpen,
	}))

	return &Server{Engine: r, API: api, Resolver: resolver, Sink: sink}
}

// healthHandler 数据库与 Redis 探活
func healthHandler(c *gin.Context) {
	status := gin.H{"status": "ok"}

	if err := infra.HealthCheck(); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
	}
	if err := infra.HealthCheckRedis(); err != nil {
		status["redis"] = err.Error()
	}

	if status["status"] != "ok" {
		c.JSON(http.StatusServiceUnavailable, common.ErrorResponse(common.CodeInternalError, "service degraded"))
		return
	}
	common.ResponseSuccess(c, status)
}
