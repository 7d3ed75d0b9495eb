package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"mathapp/internal/observability"

	"github.com/gin-gonic/gin"
)

// ValidateJSONBody returns a middleware that validates the request body
// against the named schema before the handler runs. The body is re-buffered
// so handlers can bind it normally afterwards.
func ValidateJSONBody(logger *observability.Logger, loader *SchemaLoader, schemaName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Failed to read request body",
				"code":  "INVALID_INPUT",
			})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var data interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Request body must be valid JSON",
				"code":  "INVALID_INPUT",
			})
			c.Abort()
			return
		}

		if err := loader.ValidateData(data, schemaName); err != nil {
			logger.Warn(c.Request.Context(), "Request body failed schema validation", map[string]interface{}{
				"schema": schemaName,
				"path":   c.Request.URL.Path,
				"error":  err.Error(),
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Request body failed validation",
				"code":  "INVALID_INPUT",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
