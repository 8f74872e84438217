package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAPIKey gates admin routes behind a bearer API key. The compare
// is constant time. An empty configured key locks the routes entirely.
func AdminAPIKey(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")

		if apiKey == "" || !ok ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"kind":  "unauthorized",
				"error": "invalid or missing API key",
			})
			return
		}

		c.Next()
	}
}
