package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cagongu/blog-backend/internal/config"
	delivery "github.com/cagongu/blog-backend/internal/delivery/http"
	"github.com/cagongu/blog-backend/internal/middleware"
	"github.com/cagongu/blog-backend/internal/obs"
	"github.com/cagongu/blog-backend/internal/ratelimit"
	"github.com/cagongu/blog-backend/internal/repository/postgres"
	"github.com/cagongu/blog-backend/internal/token"
	"github.com/cagongu/blog-backend/internal/usecase"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := obs.NewLogger(obs.LogConfig{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		App:    cfg.App.Name,
	})
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	secret, err := cfg.JWT.Secret()
	if err != nil {
		logger.Fatal("decode signer key", zap.Error(err))
	}

	pool := connectDB(cfg.DB, logger)
	defer pool.Close()

	userRepo := postgres.NewUserRepository(pool)
	tokenRepo := postgres.NewRefreshTokenRepository(pool)

	codec := token.NewCodec(secret)
	issuer := token.NewIssuer(codec, token.IssuerConfig{
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.ValidDuration,
		RefreshTTL: cfg.JWT.RefreshableDuration,
	})
	verifier := token.NewVerifier(codec, token.VerifierConfig{
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
	})

	authUsecase := usecase.NewAuthUsecase(userRepo, tokenRepo, issuer, verifier,
		usecase.AuthConfig{RefreshTTL: cfg.JWT.RefreshableDuration}, logger)

	limiter := ratelimit.New(ratelimit.Config{
		PerMinute:     cfg.RateLimit.PerMinute,
		PerHour:       cfg.RateLimit.PerHour,
		IdleTTL:       cfg.RateLimit.IdleTTL,
		SweepInterval: cfg.RateLimit.SweepInterval,
	}, logger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go limiter.Sweep(sweepCtx)

	handler := delivery.NewHandler(authUsecase, userRepo, logger)
	rateLimitMW := middleware.NewRateLimit(limiter, logger)
	authMW := middleware.NewAuth(verifier, logger)

	router := delivery.NewRouter(handler, rateLimitMW, authMW, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func connectDB(cfg config.DB, logger *zap.Logger) *pgxpool.Pool {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Fatal("parse db dsn", zap.Error(err))
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	for attempt := 1; attempt <= 5; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				cancel()
				logger.Info("connected to postgres")
				return pool
			} else {
				pool.Close()
				logger.Warn("ping database", zap.Int("attempt", attempt), zap.Error(pingErr))
			}
		} else {
			logger.Warn("connect database", zap.Int("attempt", attempt), zap.Error(err))
		}
		cancel()
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}
	logger.Fatal("could not connect to database after 5 attempts")
	return nil
}
