package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-aggregator/config"
	"payment-aggregator/internal/adapter/gateway"
	httpHandler "payment-aggregator/internal/adapter/http/handler"
	"payment-aggregator/internal/adapter/http/middleware"
	pgStorage "payment-aggregator/internal/adapter/storage/postgres"
	redisStorage "payment-aggregator/internal/adapter/storage/redis"
	"payment-aggregator/internal/core/ports"
	"payment-aggregator/internal/lock"
	"payment-aggregator/internal/service"
	"payment-aggregator/pkg/logger"
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
		Msg("Starting Payment Aggregator")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Keyed mutex: in-process for a single instance, Redis-leased when
	// multiple instances share the database.
	var mutex ports.KeyedMutex
	switch cfg.Lock.Mode {
	case "leased":
		mutex = lock.NewLeased(redisStorage.NewLeaseStore(rdb), cfg.Lock.TTL, log)
		log.Info().Dur("ttl", cfg.Lock.TTL).Msg("Using Redis-leased keyed mutex")
	default:
		mutex = lock.NewLocal()
		log.Info().Msg("Using in-process keyed mutex")
	}

	// Build the provider registry from configuration. A provider with an
	// empty base URL is left unregistered; the maintenance pseudo-provider
	// is always available as a per-merchant kill switch. Each adapter gets
	// its own client so one slow provider's timeout does not bind the rest.
	adapters := []ports.GatewayAdapter{gateway.NewMaintenance()}
	var upibridge *gateway.UPIBridge
	if cfg.Gateways.TestPay.BaseURL != "" {
		adapters = append(adapters, gateway.NewTestPay(gateway.TestPayConfig{
			BaseURL: cfg.Gateways.TestPay.BaseURL,
			APIKey:  cfg.Gateways.TestPay.APIKey,
		}, &http.Client{Timeout: cfg.Gateways.TestPay.Timeout}, log))
	}
	if cfg.Gateways.UPIBridge.BaseURL != "" {
		upibridge = gateway.NewUPIBridge(gateway.UPIBridgeConfig{
			BaseURL:    cfg.Gateways.UPIBridge.BaseURL,
			Key:        cfg.Gateways.UPIBridge.Key,
			Salt:       cfg.Gateways.UPIBridge.Salt,
			SuccessURL: cfg.Gateways.UPIBridge.SuccessURL,
			FailureURL: cfg.Gateways.UPIBridge.FailureURL,
		}, &http.Client{Timeout: cfg.Gateways.UPIBridge.Timeout}, log)
		adapters = append(adapters, upibridge)
	}
	if cfg.Gateways.Fintech.BaseURL != "" {
		adapters = append(adapters, gateway.NewFintech(gateway.FintechConfig{
			BaseURL: cfg.Gateways.Fintech.BaseURL,
			Token:   cfg.Gateways.Fintech.Token,
		}, &http.Client{Timeout: cfg.Gateways.Fintech.Timeout}, log))
	}
	registry := gateway.NewRegistry(adapters...)
	log.Info().Strs("providers", registry.Names()).Msg("Gateway registry built")

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	notifier := service.NewNotifier(merchantRepo, sigSvc, &http.Client{Timeout: 10 * time.Second}, log)
	settlementSvc := service.NewSettlementEngine(walletRepo, ledgerRepo, txRepo, transactor, mutex, log)
	callbackSvc := service.NewCallbackProcessor(txRepo, mutex, settlementSvc, notifier, log)
	payinSvc := service.NewPayinService(merchantRepo, txRepo, registry, log)
	payoutSvc := service.NewPayoutService(merchantRepo, walletRepo, ledgerRepo, txRepo, transactor,
		registry, mutex, settlementSvc, callbackSvc, log)
	authSvc := service.NewAuthService(merchantRepo, walletRepo, registry, hashSvc, tokenSvc)
	reportingSvc := service.NewReportingService(walletRepo, ledgerRepo, txRepo)
	merchantSvc := service.NewMerchantService(merchantRepo, registry)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Log:             log,
		AuthHandler:     httpHandler.NewAuthHandler(authSvc),
		PayinHandler:    httpHandler.NewPayinHandler(payinSvc),
		PayoutHandler:   httpHandler.NewPayoutHandler(payoutSvc),
		WalletHandler:   httpHandler.NewWalletHandler(settlementSvc, reportingSvc),
		MerchantHandler: httpHandler.NewMerchantHandler(merchantSvc),
		CallbackHandler: httpHandler.NewCallbackHandler(callbackSvc, upibridge, log),
		TokenService:    tokenSvc,
		RateLimitStore:  rateLimitStore,
		RateLimitRules:  middleware.DefaultRateLimitRules(),
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
	})

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
