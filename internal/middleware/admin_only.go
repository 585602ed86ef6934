// admin_only.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminOnly va después de AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Principal(c).IsAdmin() {
			abort(c, http.StatusForbidden, "admin privileges required")
			return
		}
		c.Next()
	}
}
