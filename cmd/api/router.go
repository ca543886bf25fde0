package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vnpay-broker/internal/shared/middleware"
	"vnpay-broker/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Forwarding headers count only when the peer is a configured proxy
	if err := router.SetTrustedProxies(c.Config.App.TrustedProxies); err != nil {
		log.Error().Err(err).Msg("Invalid trusted proxies, trusting none")
		_ = router.SetTrustedProxies(nil)
	}

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ClientIPMiddleware(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupPaymentRoutes(v1, c)
		setupWebhookRoutes(v1, c)
	}

	setupTicketRoutes(router, c)

	return router
}

// ========================================
// PAYMENT ROUTES
// ========================================
func setupPaymentRoutes(v1 *gin.RouterGroup, c *container.Container) {
	payments := v1.Group("/payments/vnpay")
	{
		payments.POST("", middleware.RateLimit(c.RateLimiter), c.PaymentHandler.CreatePayment)
		payments.GET("/return", c.PaymentHandler.VNPayReturn)

		if c.Config.VNPay.DebugEndpoints {
			payments.POST("/debug", c.PaymentHandler.DebugSignature)
		}
	}
}

// ========================================
// WEBHOOK ROUTES (VNPay server-to-server)
// ========================================
func setupWebhookRoutes(v1 *gin.RouterGroup, c *container.Container) {
	webhooks := v1.Group("/webhooks")
	{
		webhooks.GET("/vnpay", c.PaymentHandler.VNPayIPN)
		webhooks.POST("/vnpay", c.PaymentHandler.VNPayIPN)
	}
}

// ========================================
// TICKET PAGES
// ========================================
func setupTicketRoutes(router *gin.Engine, c *container.Container) {
	router.GET("/tickets/view", c.TicketHandler.ViewTicket)
	router.GET("/bookings/view", c.TicketHandler.ViewBooking)
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
		}

		services := gin.H{"callback_store": appCtx.Config.Callback.Store}
		statusCode := http.StatusOK

		// Redis chỉ bắt buộc khi callback store là redis
		if appCtx.Cache != nil {
			redisStatus := "ok"
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.Cache.Ping(ctx); err != nil {
				redisStatus = fmt.Sprintf("error: %v", err)
				health["status"] = "degraded"
				statusCode = http.StatusServiceUnavailable
			}
			services["redis"] = redisStatus
		}

		health["services"] = services
		c.JSON(statusCode, health)
	}
}
