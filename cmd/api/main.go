package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stream-wallet-engine/config"
	httpHandler "stream-wallet-engine/internal/adapter/http/handler"
	"stream-wallet-engine/internal/adapter/provider"
	pgStorage "stream-wallet-engine/internal/adapter/storage/postgres"
	redisStorage "stream-wallet-engine/internal/adapter/storage/redis"
	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/internal/metrics"
	"stream-wallet-engine/internal/service"
	"stream-wallet-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Stream Wallet Engine")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if err := pgStorage.RunMigrations(ctx, pool, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewUserWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	lock := redisStorage.NewLock(rdb)
	guard := redisStorage.NewIdempotencyGuard(rdb, cfg.Wallet.IdempotencyTTL)
	balanceCache := redisStorage.NewBalanceCache(rdb, cfg.Wallet.BalanceCacheTTL)
	fraudCounters := redisStorage.NewFraudCounterStore(rdb)

	// Initialize payment provider adapters
	providers := provider.NewRegistry(
		provider.NewVNPayAdapter(cfg.VNPay),
		provider.NewMoMoAdapter(cfg.MoMo),
	)

	// Initialize services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
	fraudSvc := service.NewFraudService(fraudCounters, cfg.Fraud, log)
	walletSvc := service.NewWalletService(lock, walletRepo, txRepo, transactor, balanceCache, cfg.Wallet, log)
	paymentSvc := service.NewPaymentService(txRepo, transactor, fraudSvc, providers, log)
	integritySvc := service.NewIntegrityService(lock, guard, walletRepo, txRepo, transactor, balanceCache, cfg.Wallet, log)
	sweeper := service.NewReconciliationService(txRepo, transactor, cfg.Sweeper, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	metrics.Init()

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc:     paymentSvc,
		WalletSvc:      walletSvc,
		IntegritySvc:   integritySvc,
		Providers:      providers,
		TxRepo:         txRepo,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// Stale-transaction sweeper runs for the lifetime of the process.
	sweeperCtx, stopSweeper := context.WithCancel(ctx)
	go sweeper.Run(sweeperCtx)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
