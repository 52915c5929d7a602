package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/provider/helper"
)

// AuthConfig enables bearer token authentication on the API.
type AuthConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Token accepts "${ENV}" references.
	Token string `json:"-" mapstructure:"token"`
	// AllowLocal lets loopback clients through without a token.
	AllowLocal bool `json:"allow-local" mapstructure:"allow-local"`
}

// ResolveToken returns the effective token.
func (c *AuthConfig) ResolveToken() string {
	return helper.ResolveEnvValue(c.Token)
}

var openPaths = map[string]bool{"/healthz": true, "/version": true, "/metrics": true}

// BearerAuth enforces "Authorization: Bearer <token>". Tokens are compared
// in constant time. Errors use the OpenAI error envelope.
func BearerAuth(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := cfg.ResolveToken()
		if !cfg.Enabled || token == "" || openPaths[c.Request.URL.Path] {
			c.Next()
			return
		}
		if cfg.AllowLocal && isLocalRequest(c.Request) {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		switch {
		case header == "":
			abortUnauthorized(c, "missing Authorization header")
		case !strings.HasPrefix(header, prefix):
			abortUnauthorized(c, "invalid Authorization header format, expected 'Bearer <token>'")
		case subtle.ConstantTimeCompare([]byte(header[len(prefix):]), []byte(token)) != 1:
			abortUnauthorized(c, "invalid bearer token")
		default:
			c.Next()
		}
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": msg, "type": "authentication_error"},
	})
}

func isLocalRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
