package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bitfantasy/fixdesk/internal/config"
	"github.com/bitfantasy/fixdesk/internal/event"
	"github.com/bitfantasy/fixdesk/internal/handler"
	"github.com/bitfantasy/fixdesk/internal/middleware"
	"github.com/bitfantasy/fixdesk/internal/model/entity"
	"github.com/bitfantasy/fixdesk/internal/realtime"
	"github.com/bitfantasy/fixdesk/internal/repository"
	"github.com/bitfantasy/fixdesk/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting fixdesk service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	bus := event.NewBus(zapLogger)
	hub := realtime.NewHub(bus, zapLogger)
	go hub.Run()

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, bus, cfg, zapLogger)
	handlers := handler.NewHandlers(services, bus, hub, zapLogger)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/api/v1/realtime/stream", "/api/v1/ws"})))

	// 注册路由
	registerRoutes(router, handlers, db, rdb)

	// 创建HTTP服务器。WriteTimeout 为 0，SSE 长连接不能被写超时切断。
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	hub.Stop()
	bus.Close()

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&entity.Company{},
		&entity.Asset{},
		&entity.Client{},
		&entity.Technician{},
		&entity.ServiceRequest{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, db *gorm.DB, rdb *redis.Client) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 公司
		companies := v1.Group("/companies")
		{
			companies.GET("", h.Company.List)
			companies.POST("", h.Company.Create)
			companies.GET("/:id", h.Company.Get)
		}

		// 资产
		assets := v1.Group("/assets")
		{
			assets.POST("", h.Asset.Create)
			assets.GET("/:id", h.Asset.Get)
			assets.GET("/:id/qr", h.Asset.GetQR)
		}

		// 扫码公开入口（无需登录）
		public := v1.Group("/public")
		{
			public.GET("/assets/:token", h.Intake.ResolveAsset)
			public.POST("/intake/:token/request", h.Intake.CreateRequest)
			public.GET("/intake/:token/status", h.Intake.Status)
		}

		// 技师
		technicians := v1.Group("/technicians")
		{
			technicians.GET("", h.Technician.List)
			technicians.POST("", h.Technician.Create)
			technicians.GET("/:id", h.Technician.Get)
		}

		// 工单
		requests := v1.Group("/service-requests")
		{
			requests.GET("", h.ServiceRequest.List)
			requests.POST("", h.ServiceRequest.Create)
			requests.GET("/export", h.ServiceRequest.Export)
			requests.GET("/:id", h.ServiceRequest.Get)
			requests.PATCH("/:id", h.ServiceRequest.Update)
			requests.PUT("/:id/status", h.ServiceRequest.UpdateStatus)
			requests.PUT("/:id/technician", h.ServiceRequest.AssignTechnician)
			requests.PUT("/:id/notes", h.ServiceRequest.UpdateNotes)
			requests.POST("/:id/media/client", h.ServiceRequest.AddClientMedia)
			requests.POST("/:id/media/technician", h.ServiceRequest.AddTechnicianMedia)
		}

		// 上传
		v1.POST("/uploads", h.Upload.Upload)

		// 实时推送
		v1.GET("/realtime/stream", h.SSE.Stream)
		v1.GET("/ws", h.WS.Serve)
	}
}
