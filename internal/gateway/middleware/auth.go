package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shop-system/internal/utils"
)

const UsernameKey = "username"

// JWTAuth requires a valid bearer token signed with secret. A nil secret
// disables the check.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "missing bearer token",
			})
			return
		}

		claims, err := utils.ParseToken(secret, strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "invalid token",
			})
			return
		}

		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}
