package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"hookrelay/internal/common"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// Auth returns middleware that validates the caller's API key against configured keys.
// The key is read from X-API-Key, or from an "Authorization: Bearer" header.
func Auth(validKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := presentedKey(c)
		switch {
		case apiKey == "":
			common.HandleError(c, common.NewUnauthorizedError("missing API key"))
		case !isValidKey(apiKey, validKeys):
			slog.Warn("rejected API key",
				"request_id", c.GetString(common.RequestIDKey),
				"client_ip", c.ClientIP(),
			)
			common.HandleError(c, common.NewUnauthorizedError("invalid API key"))
		default:
			c.Next()
			return
		}
		c.Abort()
	}
}

func presentedKey(c *gin.Context) string {
	if key := c.GetHeader(apiKeyHeader); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// isValidKey checks the provided key against the list of valid keys using constant-time comparison.
func isValidKey(key string, validKeys []string) bool {
	for _, valid := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}
