package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/GoStableSwap/riskgate/internal/config"
	"github.com/gin-gonic/gin"
)

const HeaderAPIKey = "X-API-Key"

// AuthMiddleware gates the /v1 surface behind a shared API key. The callers
// are the settlement engine and the report forwarder, both machine clients;
// when require_api_key is off (dev/demo) everything passes.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || !cfg.Auth.RequireAPIKey {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderAPIKey)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.Auth.APIKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
