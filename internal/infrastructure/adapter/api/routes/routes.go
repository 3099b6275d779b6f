package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/api/handler"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/api/middleware"
)

// SetupRoutes configures all the routes for the API
func SetupRoutes(
	router *gin.Engine,
	ledgerHandler *handler.LedgerHandler,
	payoutHandler *handler.PayoutHandler,
	vaultHandler *handler.VaultHandler,
	webhookHandler *handler.WebhookHandler,
) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	userRoutes := router.Group("/users")
	{
		userRoutes.GET("/:userId/balance", ledgerHandler.GetBalance)
		userRoutes.POST("/:userId/payouts", payoutHandler.InitiatePayout)
		userRoutes.DELETE("/:userId/payouts/:transactionId", payoutHandler.CancelPayout)
		userRoutes.POST("/:userId/payout-accounts", payoutHandler.ConnectAccount)
		userRoutes.POST("/:userId/vault-withdrawals", vaultHandler.Withdraw)
	}

	webhookRoutes := router.Group("/webhooks")
	{
		webhookRoutes.POST("/processor", webhookHandler.HandleProcessorWebhook)
	}
}

// SetupMiddlewares configures global middlewares for the API
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())
}
