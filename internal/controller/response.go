package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"storefront-fulfillment-service/internal/dto"
	"storefront-fulfillment-service/internal/middleware"
	"storefront-fulfillment-service/internal/model"
)

// statusFor traduce la categoría de negocio al código HTTP.
func statusFor(err error) int {
	switch model.KindOf(err) {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindValidation, model.KindConflict:
		return http.StatusBadRequest
	case model.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// fail escribe el error en el sobre. Los inesperados se loguean y no se exponen.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		fields := log.Fields{"path": c.FullPath(), "method": c.Request.Method}
		if p := middleware.Principal(c); p.ID != "" {
			fields["user_id"] = p.ID
		}
		log.WithFields(fields).WithError(err).Error("unexpected error")
		msg = "internal server error"
	}
	c.JSON(status, dto.Response{Success: false, Message: msg})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.Response{Success: false, Message: err.Error()})
}

// bindOptionalJSON lee el body cuando viene, con o sin Content-Length.
// Sin body deja req en cero. Devuelve false si ya respondió 400.
func bindOptionalJSON(c *gin.Context, req any) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return false
	}
	return true
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.Response{Success: true, Data: data})
}

func okMessage(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, dto.Response{Success: true, Message: msg, Data: data})
}

func created(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusCreated, dto.Response{Success: true, Message: msg, Data: data})
}

// list agrega count al sobre.
func list[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	c.JSON(http.StatusOK, dto.Response{Success: true, Count: &n, Data: items})
}
