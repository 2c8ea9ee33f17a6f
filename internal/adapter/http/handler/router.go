package handler

import (
	"qr-psp-gateway/config"
	"qr-psp-gateway/internal/adapter/http/middleware"
	"qr-psp-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	TransactionSvc ports.TransactionService
	ClientSvc      ports.ClientService
	WebhookAdmin   ports.WebhookAdminService
	SigSvc         ports.SignatureService
	AdminCfg       config.AdminConfig
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// --- Signed protocol endpoints (Operator-facing) ---
	sigAuth := middleware.SignatureAuth(deps.SigSvc, deps.Logger)
	txHandler := NewTransactionHandler(deps.TransactionSvc)
	in := r.Group("/in/qr/:version/tx", sigAuth)
	{
		in.POST("/check", txHandler.Check)
		in.POST("/create", txHandler.Create)
		in.POST("/execute/:transactionId", txHandler.Execute)
		in.POST("/update/:transactionId", txHandler.Update)
	}

	// --- Client payment endpoints (own customers) ---
	clientHandler := NewClientHandler(deps.ClientSvc)
	client := r.Group("/client/qr/:version/tx")
	{
		client.POST("/check", clientHandler.Check)
		client.POST("/pay", clientHandler.Pay)
	}

	// --- Admin API (JWT-guarded) ---
	if deps.WebhookAdmin != nil {
		adminAuth := middleware.AdminJWT(deps.AdminCfg, deps.Logger)
		adminHandler := NewWebhookAdminHandler(deps.WebhookAdmin)
		admin := r.Group("/admin/webhooks", adminAuth)
		{
			admin.POST("", adminHandler.Register)
			admin.PUT("/:id", adminHandler.Update)
			admin.GET("", adminHandler.List)
		}
	}

	return r
}
