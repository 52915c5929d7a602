// Package middleware holds the gin middlewares selectable by name from the
// server options.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

const XRequestIDKey = "X-Request-ID"

// Middlewares maps option names to middlewares.
var Middlewares = map[string]gin.HandlerFunc{
	"recovery":  gin.Recovery(),
	"logger":    Logger(),
	"cors":      Cors(),
	"requestid": RequestID(),
	"nocache":   NoCache(),
}

// RequestID keeps the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(XRequestIDKey)
		if rid == "" {
			rid = uuid.New().String()
			c.Request.Header.Set(XRequestIDKey, rid)
		}
		c.Set(XRequestIDKey, rid)
		c.Writer.Header().Set(XRequestIDKey, rid)
		c.Next()
	}
}

// Logger logs one line per request through the module logger.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoX("http", "%3d | %13v | %15s | %-7s %s | %s",
			c.Writer.Status(), time.Since(start), c.ClientIP(), c.Request.Method, c.Request.URL.Path, c.GetString(XRequestIDKey))
	}
}

// Cors allows browser clients from any origin.
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Session-Key")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// NoCache marks every response as not cacheable.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
		c.Header("Expires", "Thu, 01 Jan 1970 00:00:00 GMT")
		c.Header("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		c.Next()
	}
}
