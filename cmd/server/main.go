package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend/api"
	"backend/internal/audit"
	"backend/internal/authz"
	"backend/internal/config"
	"backend/internal/fleet"
	"backend/internal/infra"
	"backend/internal/logger"
	"backend/internal/student"
	"backend/internal/tenant"
	"backend/internal/trip"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 0. 加载 .env，便于集中管理 APP_* 环境变量
	if err := godotenv.Load(); err == nil {
		fmt.Println("已加载 .env 文件")
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 1. 加载配置
	cfg, err := config.Load(env, "")
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.String("env", env),
		zap.String("mode", cfg.Server.Mode),
	)

	// 3. 初始化数据库
	db, err := infra.InitDatabase(&cfg.Database, cfg.Log.Level)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer infra.CloseDatabase()

	// 4. 自动迁移（根据配置）
	if cfg.Database.AutoMigrate {
		if err := runMigrations(db); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	} else {
		logger.Info("跳过自动迁移（配置已禁用）")
	}

	// 5. 初始化 Redis，失败时降级运行（禁用裁决缓存与令牌黑名单）
	rdb, err := infra.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis 初始化失败，缓存功能禁用", zap.Error(err))
		rdb = nil
	}
	defer infra.CloseRedis()

	// 6. 组装路由
	gin.SetMode(cfg.Server.Mode)
	server := api.SetupRouter(db, rdb, cfg)
	defer server.Sink.Close()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 7. 启动服务器
	go func() {
		logger.Info("HTTP 服务器启动", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器启动失败", zap.Error(err))
		}
	}()

	// 8. 优雅关闭
	gracefulShutdown(httpServer)
}

// runMigrations 迁移核心表
func runMigrations(db *gorm.DB) error {
	return infra.AutoMigrate(db,
		&tenant.Tenant{},
		&authz.Permission{},
		&authz.RolePermission{},
		&audit.AuditLog{},
		&student.Student{},
		&fleet.Driver{},
		&fleet.Vehicle{},
		&trip.Trip{},
		&trip.TripPassenger{},
	)
}

// gracefulShutdown 等待中断信号并有序关停
func gracefulShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	logger.Info("服务器已安全关闭")
}
