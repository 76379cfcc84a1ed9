package middleware

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

// RequestID reuses the caller's X-Request-ID or assigns a new one, and
// logs it for server errors.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()

		if status := c.Writer.Status(); status >= 500 {
			log.Printf("request %s %s %s failed with %d: %v", id, c.Request.Method, c.Request.URL.Path, status, c.Errors.ByType(gin.ErrorTypeAny))
		}
	}
}
