package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qr-psp-gateway/config"
	"qr-psp-gateway/internal/adapter/bank"
	httpHandler "qr-psp-gateway/internal/adapter/http/handler"
	"qr-psp-gateway/internal/adapter/mq/rabbit"
	"qr-psp-gateway/internal/adapter/operator"
	pgStorage "qr-psp-gateway/internal/adapter/storage/postgres"
	redisStorage "qr-psp-gateway/internal/adapter/storage/redis"
	"qr-psp-gateway/internal/core/ports"
	"qr-psp-gateway/internal/service"
	"qr-psp-gateway/pkg/logger"
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
		Msg("Starting QR PSP Gateway")

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

	// Initialize RabbitMQ (webhook exchange, queue, DLQ)
	mq, err := rabbit.Connect(cfg.RabbitMQ.URL, cfg.Webhook, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer mq.Close()
	log.Info().Msg("RabbitMQ connected")

	// Initialize repositories
	opRepo := pgStorage.NewOperationRepo(pool)
	webhookRepo := pgStorage.NewMerchantWebhookRepo(pool)
	webhookCache := redisStorage.NewWebhookCache(rdb)

	// RSA key material and the signed-protocol service
	keys, err := service.NewFileKeyStore(
		cfg.Security.PSPPrivateKeyPath,
		cfg.Security.OperatorPublicKeyPath,
		cfg.Security.Enabled,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load RSA keys")
	}
	sigSvc := service.NewRSASignatureService(keys, log)

	// Fulfillment paths and routing
	operatorClient := operator.NewClient(cfg.Operator, sigSvc, log)
	bankClient := bank.NewClient(cfg.Bank, log)
	router := service.NewProviderRouter(cfg.Bank.OwnProvider, bankClient, operatorClient, log)

	// Webhook pipeline
	publisher := rabbit.NewPublisher(mq.Channel(), cfg.Webhook, log)
	notifier := service.NewWebhookNotifier(webhookRepo, webhookCache, publisher, cfg.Webhook.CacheTTL, log)

	// Business services
	txSvc := service.NewTransactionService(opRepo, router, notifier, log)
	clientSvc := service.NewClientService(opRepo, router, notifier, cfg.Bank.OwnProvider, log)
	adminSvc := service.NewWebhookAdminService(webhookRepo, log)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Webhook delivery consumer
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	consumer := rabbit.NewConsumer(mq, cfg.Webhook, log)
	go func() {
		if err := consumer.Start(consumerCtx); err != nil {
			log.Error().Err(err).Msg("Webhook consumer stopped")
		}
	}()

	// Setup Gin router with all routes
	engine := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransactionSvc: txSvc,
		ClientSvc:      clientSvc,
		WebhookAdmin:   adminSvc,
		SigSvc:         sigSvc,
		AdminCfg:       cfg.Admin,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
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

	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
