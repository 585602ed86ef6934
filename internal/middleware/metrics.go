package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"storefront-fulfillment-service/internal/metrics"
)

// Metrics usa la ruta registrada como label para no explotar la cardinalidad.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		m.HTTPRequest(handler, c.Writer.Status(), time.Since(start))
	}
}
