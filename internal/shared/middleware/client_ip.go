package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"vnpay-broker/internal/shared/utils"
)

// ClientIPMiddleware extracts the client IP address from the request
// and injects it into the request context. VNPay requires vnp_IpAddr on
// every pay request, so this has to run before the payment handlers.
//
// Usage:
//
//	router.Use(middleware.ClientIPMiddleware())
func ClientIPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := utils.ExtractClientIP(c)

		c.Set(utils.ClientIPGinKey, clientIP)
		c.Request = c.Request.WithContext(utils.WithClientIP(c.Request.Context(), clientIP))

		log.Debug().
			Str("ip", clientIP).
			Bool("is_private", utils.IsPrivateIP(clientIP)).
			Str("path", c.Request.URL.Path).
			Msg("Client IP extracted")

		c.Next()
	}
}
