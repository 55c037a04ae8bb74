package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Tunedrop/cache"
	"Tunedrop/config"
	"Tunedrop/core/auth"
	"Tunedrop/core/idgen"
	"Tunedrop/core/notify"
	"Tunedrop/core/release"
	"Tunedrop/core/subscription"
	"Tunedrop/db"
	"Tunedrop/logger"
	"Tunedrop/model"
	"Tunedrop/repository"
	"Tunedrop/storage"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// Deps 路由需要的全部服务
type Deps struct {
	Issuer        *auth.TokenIssuer
	Users         repository.UserRepository
	IDs           *idgen.Generator
	Basic         *release.Service[*model.BasicRelease]
	Advanced      *release.AdvancedService
	Subscriptions *subscription.Checker
	Notifications *notify.Service
	Hub           *notify.Hub
	Media         UploadSigner
}

// NewRouter 注册全部路由
func NewRouter(d *Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware, accessLog)

	authed := AuthMiddleware(d.Issuer)
	adminOnly := func(next http.HandlerFunc) http.HandlerFunc { return authed(AdminOnly(next)) }

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// 认证
	authHandler := NewAuthHandler(d.Users, d.Issuer, d.IDs)
	router.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/me", authed(authHandler.Me)).Methods(http.MethodGet)

	// 编码分配要先于 /{releaseId}/{action} 注册
	codes := NewCodeHandler(d.Advanced)
	router.HandleFunc("/api/admin/advanced-releases/{releaseId}/upc", adminOnly(validReleaseID(codes.ProvideUPC))).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/advanced-releases/{releaseId}/isrc", adminOnly(validReleaseID(codes.ProvideISRC))).Methods(http.MethodPost)

	NewBasicReleaseHandler(d.Basic).register(router, "basic", authed)
	NewAdvancedReleaseHandler(d.Advanced).register(router, "advanced", authed)

	// 订阅
	subs := NewSubscriptionHandler(d.Subscriptions)
	router.HandleFunc("/api/subscription", authed(subs.Status)).Methods(http.MethodGet)
	router.HandleFunc("/api/admin/users/{userId}/subscription", adminOnly(subs.Grant)).Methods(http.MethodPost)

	// 通知
	if d.Notifications != nil {
		notes := NewNotificationHandler(d.Notifications, d.Hub)
		router.HandleFunc("/api/notifications", authed(notes.List)).Methods(http.MethodGet)
		router.HandleFunc("/api/notifications/{id}/read", authed(notes.MarkRead)).Methods(http.MethodPost)
		router.HandleFunc("/ws/notifications", authed(notes.WebSocket))
	}

	// 媒体直传
	if d.Media != nil {
		media := NewMediaHandler(d.Media)
		router.HandleFunc("/api/media/upload-url", authed(media.UploadURL)).Methods(http.MethodPost)
	}

	return router
}

// Build 用已连接的数据库和 redis 组装服务，rdb 为 nil 时发号器用数据库计数
func Build(cfg *config.Config, gdb *gorm.DB, rdb *redis.Client, media UploadSigner) *Deps {
	counters := repository.NewGormCounterRepository(gdb)
	var counter idgen.Counter = counters
	if cfg.IDCounterBackend == "redis" && rdb != nil {
		counter = cache.NewSequenceCounter(rdb, counters)
	}
	ids := idgen.New(counter)

	hub := notify.NewHub()
	notifications := notify.NewService(repository.NewGormNotificationRepository(gdb), hub, rdb)
	checker := subscription.NewChecker(repository.NewGormSubscriptionRepository(gdb))

	basic := release.NewService(release.BasicKind(), repository.NewBasicReleaseRepository(gdb), ids, checker, notifications)
	advanced := release.NewAdvancedService(
		release.NewService(release.AdvancedKind(), repository.NewAdvancedReleaseRepository(gdb), ids, checker, notifications),
		repository.NewGormCodeRepository(gdb),
	)

	return &Deps{
		Issuer:        auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Users:         repository.NewGormUserRepository(gdb),
		IDs:           ids,
		Basic:         basic,
		Advanced:      advanced,
		Subscriptions: checker,
		Notifications: notifications,
		Hub:           hub,
		Media:         media,
	}
}

// Start 连接依赖、启动 HTTP 服务，收到退出信号后优雅关闭
func Start(cfg *config.Config, envPath string) error {
	if err := db.ConnectGormDB(cfg); err != nil {
		return err
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrate(db.GormDB); err != nil {
		return err
	}

	var rdb *redis.Client
	if err := cache.ConnectRedis(cfg); err != nil {
		if cfg.IDCounterBackend == "redis" {
			return err
		}
		logger.Warn("Redis 不可用，通知只推送到本实例", logger.ErrorField(err))
	} else {
		rdb = cache.RedisClient
		defer cache.CloseRedis()
	}

	var media UploadSigner
	if store, err := storage.NewMediaStore(cfg); err != nil {
		logger.Warn("MinIO 未配置，上传接口不可用", logger.ErrorField(err))
	} else {
		media = store
	}

	deps := Build(cfg, db.GormDB, rdb, media)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go deps.Hub.Run()
	defer deps.Hub.Stop()
	go deps.Notifications.Listen(ctx)

	if envPath != "" {
		err := config.Watch(ctx, envPath, func(next *config.Config) {
			if next.LogLevel != logger.CurrentLevel() {
				logger.SetLevel(logger.LogLevel(next.LogLevel))
				logger.Info("日志级别已更新", logger.String("level", next.LogLevel))
			}
		})
		if err != nil {
			logger.Warn("无法监听配置文件", logger.String("path", envPath), logger.ErrorField(err))
		}
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      NewRouter(deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务启动", logger.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-stop:
	}

	logger.Info("正在关闭服务...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	deps.Notifications.Flush()
	logger.Info("服务已停止")
	return nil
}
