package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finance/internal/api"
	"finance/internal/config"
	"finance/internal/db"
	"finance/internal/identity"
	"finance/internal/logger"
	"finance/internal/service"
	"finance/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	envErr := config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer zl.Sync()

	if envErr != nil {
		zl.Warn("no .env file loaded", zap.Error(envErr))
	}

	database, err := db.InitDB(cfg.Database)
	if err != nil {
		zl.Fatal("Error connecting to the database", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	defer db.Close(database)

	rdb := connectRedis(cfg.Redis, zl)
	if rdb != nil {
		defer rdb.Close()
	}

	settings, err := settingsStore(cfg, database, rdb)
	if err != nil {
		zl.Fatal("Error configuring settings store", zap.Error(err))
	}

	gotrue := identity.NewGoTrueClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.Timeout)
	var verifier identity.Verifier = gotrue
	if cfg.Supabase.JWTSecret != "" {
		verifier = identity.NewJWTVerifier(cfg.Supabase.JWTSecret)
	}
	if rdb != nil {
		verifier = identity.NewCachedVerifier(verifier, rdb, cfg.Redis.TokenTTL, zl)
	}

	transactionStore := store.NewTransactionStore(database)
	registration := service.NewRegistrationService(settings, zl)
	server := api.NewServer(api.Options{
		Transactions: service.NewTransactionService(transactionStore, zl),
		Auth:         service.NewAuthService(gotrue, verifier, registration, zl),
		Registration: registration,
		DB:           transactionStore,
		Logger:       zl,
	})

	go func() {
		zl.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("settings_backend", cfg.Settings.Backend))
		if err := server.Start(":"+cfg.Server.Port, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout); err != nil {
			zl.Fatal("Error starting server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
	zl.Info("Server exited")
}

// connectRedis returns nil when redis is not configured or not reachable.
func connectRedis(cfg config.RedisConfig, zl *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zl.Warn("redis unavailable, token cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		rdb.Close()
		return nil
	}
	zl.Info("Connected to redis", zap.String("addr", cfg.Addr))
	return rdb
}

func settingsStore(cfg *config.Config, database *gorm.DB, rdb *redis.Client) (store.SettingsStore, error) {
	switch cfg.Settings.Backend {
	case "file":
		return store.NewFileSettingsStore(cfg.Settings.File), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("settings backend redis: redis at %s is unreachable", cfg.Redis.Addr)
		}
		return store.NewRedisSettingsStore(rdb), nil
	default:
		return store.NewDBSettingsStore(database), nil
	}
}
