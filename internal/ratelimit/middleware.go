package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/targetzero/coursebot/internal/logger"
)

// Middleware rejects requests over the limit with 429. Clients are keyed by
// gin's client IP.
func Middleware(kl *KeyedLimiter, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !kl.Allow(ip) {
			if log != nil {
				log.WithField("client_ip", ip).WarnContext(c.Request.Context(), "Rate limit exceeded")
			}
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
