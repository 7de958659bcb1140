package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/targetzero/coursebot/internal/buildinfo"
	"github.com/targetzero/coursebot/internal/ctxutil"
	"github.com/targetzero/coursebot/internal/logger"
)

const (
	readinessTimeout = 3 * time.Second
	requestIDHeader  = "X-Request-Id"
)

func (a *Application) serviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"release": buildinfo.Release(),
	})
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) features() map[string]bool {
	return map[string]bool{
		"model": a.dialogue != nil && a.dialogue.Model != nil,
		"line":  a.webhookHandler != nil,
		"redis": a.dialogue != nil && a.dialogue.redis != nil,
	}
}

// readinessCheck reports ready while the turn log answers. The catalog is
// fetched on demand, so its state is reported but never blocks readiness.
func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"catalog":  a.catalogState(),
		"codes":    a.codesState(),
		"features": a.features(),
	})
}

func (a *Application) catalogState() gin.H {
	state := gin.H{"last_refresh": nil, "store": ""}
	if a.dialogue == nil || a.dialogue.Catalog == nil {
		return state
	}
	state["store"] = a.dialogue.CacheStore
	if last := a.dialogue.Catalog.LastRefresh(); !last.IsZero() {
		state["last_refresh"] = last.UTC().Format(time.RFC3339)
		state["age_seconds"] = int(time.Since(last).Seconds())
	}
	return state
}

func (a *Application) codesState() gin.H {
	if a.dialogue == nil || a.dialogue.Resolver == nil {
		return gin.H{}
	}
	return gin.H{
		"source": a.dialogue.CodesSource,
		"count":  a.dialogue.Resolver.Table().Len(),
	}
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware tags each request with an ID, taken from the caller or
// generated, and logs it with a level chosen by status:
// 5xx=Error, 4xx=Warn except 404, everything else Debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		entry := log.WithRequestID(requestID).
			WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("client_ip", c.ClientIP())

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status == http.StatusNotFound:
			entry.Debug("HTTP request not found")
		case status >= 400:
			entry.Warn("HTTP request rejected")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}
