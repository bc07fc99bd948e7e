package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("WLG_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Wallet Ledger")

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
	customerRepo := pgStorage.NewCustomerRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	rateRepo := pgStorage.NewExchangeRateRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	auditRepo := pgStorage.NewAuditRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	idempotencyLock := redisStorage.NewIdempotencyLock(rdb)
	rateCache := redisStorage.NewRateCache(rdb)
	emailQueue := redisStorage.NewEmailQueue(rdb, cfg.Notification.EmailQueue)
	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.RateLimit.Enabled {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	exchangeSvc := service.NewExchangeService(rateRepo, rateCache, cfg.FX.CacheTTL, logger.Component(log, "fx"))
	if err := exchangeSvc.SeedRates(ctx, seedRates(cfg.FX.SeedRates)); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed exchange rates")
	}

	gateway := service.NewSimulatedSettlementGateway(service.SettlementConfig{
		MinLatency:  cfg.Settlement.MinLatency,
		MaxLatency:  cfg.Settlement.MaxLatency,
		FailureRate: cfg.Settlement.FailureRate,
		Timeout:     cfg.Settlement.Timeout,
	}, logger.Component(log, "settlement"))

	// Notifications: events -> email queue -> consumer; push is synchronous.
	notifier := service.NewNotificationDispatcher(emailQueue, logger.Component(log, "notification"))
	dispatcher := service.NewEventDispatcher(cfg.Notification.EventBuffer, notifier.Handle, logger.Component(log, "events"))
	emailConsumer := service.NewEmailConsumer(
		emailQueue,
		service.NewLogEmailSender(logger.Component(log, "email")),
		cfg.Notification.EmailWorkers,
		logger.Component(log, "email"),
	)
	push := buildPushNotifier(cfg.Notification, sigSvc, log)

	// Initialize business services
	ledger := service.NewLedger(walletRepo, balanceRepo)
	orchestrator := service.NewOrchestrator(service.OrchestratorDeps{
		CustomerRepo:     customerRepo,
		WalletRepo:       walletRepo,
		TxRepo:           txRepo,
		Ledger:           ledger,
		FX:               exchangeSvc,
		Gateway:          gateway,
		Transactor:       transactor,
		IdempotencyCache: idempotencyCache,
		IdempotencyLock:  idempotencyLock,
		Publisher:        dispatcher,
		Push:             push,
	}, service.OrchestratorConfig{
		ExternalFeeRate:     cfg.Ledger.FeeRate(),
		FailureReasonMaxLen: cfg.Ledger.FailureReasonMaxLen,
		IdempotencyTTL:      cfg.Ledger.IdempotencyTTL,
		IdempotencyLockTTL:  cfg.Ledger.IdempotencyLockTTL,
	}, logger.Component(log, "orchestrator"))

	authSvc := service.NewAuthService(customerRepo, hashSvc, tokenSvc)
	customerSvc := service.NewCustomerService(customerRepo)
	walletSvc := service.NewWalletService(customerRepo, walletRepo, balanceRepo, transactor, logger.Component(log, "wallet"))
	reportingSvc := service.NewReportingService(txRepo, walletRepo, balanceRepo)
	auditSvc := service.NewAuditService(auditRepo, logger.Component(log, "audit"))

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(workerCtx)
	}()
	var consumers sync.WaitGroup
	consumers.Add(1)
	go func() {
		defer consumers.Done()
		emailConsumer.Run(workerCtx)
	}()

	healthCheckers := []ports.HealthChecker{pgStorage.NewHealthCheck(pool), redisStorage.NewHealthCheck(rdb), emailQueue}
	if hc, ok := push.(ports.HealthChecker); ok {
		healthCheckers = append(healthCheckers, hc)
	}

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		CustomerSvc:    customerSvc,
		WalletSvc:      walletSvc,
		ReportingSvc:   reportingSvc,
		Orchestrator:   orchestrator,
		ExchangeSvc:    exchangeSvc,
		TokenSvc:       tokenSvc,
		AdminToken:     cfg.Admin.Token,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		AuditSvc:       auditSvc,
		Logger:         logger.Component(log, "http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// No more requests can publish. Buffered events are enqueued before the
	// email consumer stops; undelivered emails stay in the Redis queue.
	dispatcher.Close()
	<-dispatcherDone
	stopWorkers()
	consumers.Wait()

	log.Info().Msg("Server exited")
}

func buildPushNotifier(cfg config.NotificationConfig, signer ports.SignatureService, log zerolog.Logger) ports.PushNotifier {
	fallback := service.NewLogPushNotifier(logger.Component(log, "push"))
	if cfg.PushURL == "" {
		return fallback
	}
	primary := service.NewHTTPPushNotifier(cfg.PushURL, cfg.PushSecret, signer, &http.Client{Timeout: cfg.PushTimeout})
	return service.NewBreakerPushNotifier(primary, fallback, service.BreakerSettings{
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, logger.Component(log, "push"))
}

func seedRates(raw map[string]string) []domain.ExchangeRate {
	seeds := make([]domain.ExchangeRate, 0, len(raw))
	for pair, value := range raw {
		from, to, ok := config.SplitPair(pair)
		if !ok {
			continue
		}
		rate, err := decimal.NewFromString(value)
		if err != nil {
			continue
		}
		seeds = append(seeds, domain.ExchangeRate{From: from, To: to, Rate: rate})
	}
	return seeds
}
