package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	CustomerSvc    ports.CustomerService
	WalletSvc      ports.WalletService
	ReportingSvc   ports.ReportingService
	Orchestrator   ports.PaymentOrchestrator
	ExchangeSvc    ports.ExchangeRateService
	TokenSvc       ports.TokenService
	AdminToken     string // empty = rate updates disabled
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	rateHandler := NewRateHandler(deps.ExchangeSvc)
	rates := v1.Group("/rates")
	{
		rates.GET("", rl("rates"), rateHandler.List)
		rates.GET("/:from/:to", rl("rates"), rateHandler.Get)
		rates.PUT("", middleware.AdminAuth(deps.AdminToken), rl("rates"), rateHandler.Upsert)
	}

	// --- JWT-authenticated routes ---
	customerHandler := NewCustomerHandler(deps.CustomerSvc)
	v1.GET("/customers/me", jwtAuth, rl("wallets"), customerHandler.GetProfile)

	walletHandler := NewWalletHandler(deps.WalletSvc)
	transactionHandler := NewTransactionHandler(deps.ReportingSvc)
	wallets := v1.Group("/wallets", jwtAuth, rl("wallets"))
	{
		wallets.POST("", walletHandler.Create)
		wallets.GET("", walletHandler.List)
		wallets.GET("/:id", walletHandler.Get)
		wallets.GET("/:id/balances", transactionHandler.Balances)
		wallets.POST("/:id/close", walletHandler.Close)
	}

	paymentHandler := NewPaymentHandler(deps.Orchestrator)
	payments := v1.Group("/payments", jwtAuth, rl("operations"))
	{
		payments.POST("/deposit", paymentHandler.Deposit)
		payments.POST("/withdraw", paymentHandler.Withdraw)
		payments.POST("/transfer", paymentHandler.Transfer)
		payments.POST("/fx", paymentHandler.TradeFX)
		payments.POST("/external", paymentHandler.ExternalTransfer)
	}

	transactions := v1.Group("/transactions", jwtAuth, rl("wallets"))
	{
		transactions.GET("", transactionHandler.List)
		transactions.GET("/:id", transactionHandler.Get)
	}

	return r
}
