// auth_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/dto"
	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/service"
)

const principalKey = "principal"

// Middleware que valida el token y guarda el usuario en el contexto
func AuthMiddleware(validator service.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrInvalidToken) && !errors.Is(err, service.ErrUserDisabled) {
				log.WithError(err).Warn("token validation failed")
			}
			abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(principalKey, user)
		c.Next()
	}
}

// Principal devuelve el usuario que dejó AuthMiddleware. Sin auth es el zero value.
func Principal(c *gin.Context) model.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(model.Principal); ok {
			return p
		}
	}
	return model.Principal{}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, dto.Response{Success: false, Message: msg})
}
