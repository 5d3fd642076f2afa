package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/tradebook/logger"
	"github.com/rustyeddy/tradebook/metrics"
)

// requestMetrics records count and latency per route and logs failed
// requests.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(elapsed.Seconds())

		if status >= http.StatusBadRequest {
			logger.Warn(c.Request.Context(), "request failed", "method", c.Request.Method,
				"path", c.Request.URL.Path, "status", status, "latency", elapsed,
				"errors", c.Errors.ByType(gin.ErrorTypePrivate).String())
		}
	}
}

func requireRequester() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(RequesterHeader) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": RequesterHeader + " header is required"})
			return
		}
		c.Next()
	}
}

func requester(c *gin.Context) string {
	return c.GetHeader(RequesterHeader)
}
