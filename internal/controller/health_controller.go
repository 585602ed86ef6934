package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/dto"
)

// Pinger lo implementan el store en memoria y el tx manager de Mongo.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	Storage Pinger
	Timeout time.Duration
}

func NewHealthController(storage Pinger) *HealthController {
	return &HealthController{Storage: storage, Timeout: 2 * time.Second}
}

// GET /livez
func (ctl *HealthController) Live(c *gin.Context) {
	c.JSON(http.StatusOK, dto.Response{Success: true, Message: "ok"})
}

// GET /healthz - verifica el storage
func (ctl *HealthController) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.Timeout)
	defer cancel()

	if err := ctl.Storage.Ping(ctx); err != nil {
		log.WithError(err).Warn("storage health check failed")
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Message: "storage unavailable"})
		return
	}
	c.JSON(http.StatusOK, dto.Response{Success: true, Message: "ok"})
}
