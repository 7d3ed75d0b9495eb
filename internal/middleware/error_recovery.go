package middleware

import (
	"net/http"
	"runtime/debug"

	"mathapp/internal/observability"

	"github.com/gin-gonic/gin"
)

// ErrorRecovery returns a middleware that converts panics into JSON 500
// responses and records them on the active span.
func ErrorRecovery(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "Panic recovered in handler", nil, map[string]interface{}{
					"panic":  r,
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
					"stack":  string(debug.Stack()),
				})

				if !c.Writer.Written() {
					c.JSON(http.StatusInternalServerError, gin.H{
						"error": "Internal server error",
						"code":  "INTERNAL_ERROR",
					})
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
