package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mbwalabat/virtual-campus-tour-vcts/config"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/api/handler"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/api/router"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/api/validation"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/repository"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/service"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/database"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/jwt"
	applogger "github.com/mbwalabat/virtual-campus-tour-vcts/pkg/logger"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/media"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// 1. config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting campus tour api",
		zap.Int("port", cfg.Server.Port),
		zap.String("env", cfg.Server.Env),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. database
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	// 4. redis is optional: without it logout revocation is unavailable and
	// rate limiting falls back to a per-process limiter.
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, running without token blacklist", zap.Error(err))
		rdb = nil
	}
	var tokens service.TokenStore
	if rdb != nil {
		tokens = rdb
	}

	// 5. object storage
	var uploader media.Uploader = media.Disabled{}
	var signer service.UploadSigner
	if cfg.Cloudinary.Enabled() {
		store, err := media.NewCloudinaryStore(&cfg.Cloudinary, logger)
		if err != nil {
			logger.Fatal("init cloudinary", zap.Error(err))
		}
		uploader = media.NewBreakerUploader("cloudinary", store, logger)

		s, err := media.NewSigner(&cfg.Cloudinary)
		if err != nil {
			logger.Fatal("init upload signer", zap.Error(err))
		}
		signer = s
	} else {
		logger.Warn("cloudinary not configured, media uploads disabled")
	}

	if err := validation.Register(); err != nil {
		logger.Fatal("register validators", zap.Error(err))
	}

	// 6. repository → service → handler
	repo := repository.NewRepository(db)
	svc := service.NewService(service.Deps{
		Config:   cfg,
		Repo:     repo,
		JWT:      jwt.NewManager(&cfg.Auth),
		Tokens:   tokens,
		Uploader: uploader,
		Signer:   signer,
		Logger:   logger,
	})
	h := handler.NewHandler(svc, &cfg.Upload)

	// 7. routes
	engine := router.Setup(cfg, h, svc.Auth, rdb, db, logger)

	// 8. http server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("close database", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("server stopped")
}
