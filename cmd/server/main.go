package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/blob"
	"github.com/hongminglow/invest-be/internal/config"
	"github.com/hongminglow/invest-be/internal/ledger"
	"github.com/hongminglow/invest-be/internal/lock"
	"github.com/hongminglow/invest-be/internal/logging"
	"github.com/hongminglow/invest-be/internal/metrics"
	"github.com/hongminglow/invest-be/internal/server"
	"github.com/hongminglow/invest-be/internal/storage"
	"github.com/hongminglow/invest-be/internal/storage/memory"
	postgres "github.com/hongminglow/invest-be/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx := context.Background()

	var (
		store storage.Store
		db    *postgres.Store
	)
	switch cfg.Storage {
	case "memory":
		logger.Warn("using in-memory storage; data will not survive a restart")
		store = memory.New()
	default:
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("init database", zap.Error(err))
		}
		defer db.Close()
		store = db
	}

	var locks lock.Locker = lock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("connect redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer rdb.Close()
		locks = lock.NewRedisLocker(rdb, "invest:lock", cfg.LockTTL, logger.Named("lock"))
		logger.Info("using redis ledger locks", zap.String("addr", cfg.RedisAddr))
	}

	blobs, err := blob.NewLocalStore(cfg.UploadDir, "/uploads", cfg.UploadMaxBytes, logger.Named("blob"))
	if err != nil {
		logger.Fatal("init upload store", zap.Error(err))
	}

	m := metrics.New()
	svc := ledger.New(ledger.Deps{
		Store:       store,
		Blobs:       blobs,
		Locks:       locks,
		Metrics:     m,
		Logger:      logger.Named("ledger"),
		Policy:      cfg.Accrual,
		DefaultRate: cfg.DefaultRate,
	})

	if cfg.BootstrapAdmin.Enabled() {
		if err := svc.EnsureBootstrapAdmin(ctx, ledger.AccountInput{
			FullName: cfg.BootstrapAdmin.FullName,
			Email:    cfg.BootstrapAdmin.Email,
			Phone:    cfg.BootstrapAdmin.Phone,
			Password: cfg.BootstrapAdmin.Password,
		}); err != nil {
			logger.Fatal("bootstrap admin", zap.Error(err))
		}
	}

	deps := server.Deps{
		Service: svc,
		Tokens:  auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		Metrics: m,
		Logger:  logger.Named("http"),
	}
	if db != nil {
		deps.DB = db
	}
	srv := server.New(cfg, deps)

	go func() {
		logger.Info("investment backend listening",
			zap.String("addr", cfg.HTTPAddress()),
			zap.String("storage", cfg.Storage),
			zap.String("accrual_model", string(cfg.Accrual.Model)),
		)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("graceful shutdown error", zap.Error(err))
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
