package handler

import (
	"stream-wallet-engine/internal/adapter/http/middleware"
	"stream-wallet-engine/internal/core/ports"
	"stream-wallet-engine/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PaymentSvc     ports.PaymentService
	WalletSvc      ports.WalletService
	IntegritySvc   ports.IntegrityService
	Providers      ports.ProviderResolver
	TxRepo         ports.TransactionRepository
	TokenSvc       ports.TokenService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	paymentHandler := NewPaymentHandler(deps.PaymentSvc, deps.IntegritySvc, deps.Providers, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletSvc, deps.TxRepo)

	v1 := r.Group("/api/v1")

	// --- Server-to-server callback (gateway-signed, no JWT) ---
	v1.GET("/payments/:provider/callback", paymentHandler.Callback)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	payments := v1.Group("/payments", jwtAuth)
	{
		payments.POST("", paymentHandler.CreatePayment)
	}

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.POST("/spend", walletHandler.Spend)
		wallet.GET("/balance", walletHandler.GetBalance)
		wallet.GET("/transactions", walletHandler.ListTransactions)
		wallet.POST("/credit", middleware.RequireRole(middleware.RoleAdmin), walletHandler.Credit)
	}

	return r
}
