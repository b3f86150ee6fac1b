package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"messaging/backend/internal/config"
	"messaging/backend/internal/health"
	"messaging/backend/internal/logger"
	"messaging/backend/internal/monitoring"
	"messaging/backend/internal/service"
	"messaging/backend/internal/storage"
	"messaging/backend/internal/storage/hybrid"
	"messaging/backend/internal/storage/memory"
	httptransport "messaging/backend/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}

	if cfg.Log.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.NewLogger(logger.FromConfig(cfg.Log))
	if err != nil {
		panic(fmt.Sprintf("init logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("close storage", zap.Error(err))
		}
	}()

	if err := serve(ctx, cfg, store, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return
	}
	log.Info("server exited cleanly")
}

// openStore 未配置数据库时退回内存存储，数据随进程退出丢失
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if !cfg.UsesDatabase() {
		log.Info("storage: memory (data is not persisted)")
		return memory.NewStore(), nil
	}

	store, err := hybrid.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("storage: database",
		zap.String("type", cfg.Database.Type),
		zap.Bool("user_cache", cfg.Redis.Enabled),
	)
	return store, nil
}

// serve 运行 HTTP 服务直到 ctx 结束，然后在超时内完成优雅关闭
func serve(ctx context.Context, cfg *config.Config, store storage.Store, log *zap.Logger) error {
	messages := service.NewMessageService(store, log)
	messages.SetMaxRecipients(cfg.Messaging.MaxRecipients)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		UserService:    service.NewUserService(store, log),
		MessageService: messages,
		Metrics:        monitoring.NewMetrics(),
		Health:         health.NewHealthChecker(store, log),
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("http listening",
			zap.String("address", srv.Addr),
			zap.Int("max_recipients", cfg.Messaging.MaxRecipients),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
