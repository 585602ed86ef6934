package controller

import (
	"github.com/gin-gonic/gin"

	"storefront-fulfillment-service/internal/dto"
	"storefront-fulfillment-service/internal/middleware"
	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/service"
)

type DeliveryController struct {
	Service *service.DeliveryService
}

func NewDeliveryController(s *service.DeliveryService) *DeliveryController {
	return &DeliveryController{Service: s}
}

// POST /api/deliveries - admin
func (ctl *DeliveryController) CreateDelivery(c *gin.Context) {
	var req dto.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	in := service.CreateDeliveryInput{
		OrderID:       req.OrderID,
		EstimatedDate: req.EstimatedDate,
		Carrier:       req.Carrier,
		DeliveryNotes: req.DeliveryNotes,
	}
	if req.ShippingAddress != nil {
		addr := req.ShippingAddress.ToModel()
		in.ShippingAddress = &addr
	}

	delivery, err := ctl.Service.CreateDelivery(c.Request.Context(), middleware.Principal(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Delivery created successfully", delivery)
}

// GET /api/deliveries - admin
func (ctl *DeliveryController) ListDeliveries(c *gin.Context) {
	deliveries, err := ctl.Service.ListDeliveries(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	list(c, deliveries)
}

// GET /api/deliveries/:id
func (ctl *DeliveryController) GetDelivery(c *gin.Context) {
	delivery, err := ctl.Service.GetDelivery(c.Request.Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, delivery)
}

// GET /api/deliveries/order/:orderId
func (ctl *DeliveryController) GetByOrder(c *gin.Context) {
	delivery, err := ctl.Service.GetDeliveryByOrder(c.Request.Context(), middleware.Principal(c), c.Param("orderId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, delivery)
}

// PUT /api/deliveries/:id/status - admin
func (ctl *DeliveryController) UpdateStatus(c *gin.Context) {
	var req dto.UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	delivery, err := ctl.Service.UpdateStatus(c.Request.Context(), middleware.Principal(c), c.Param("id"), model.DeliveryStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Delivery status updated", delivery)
}

// PUT /api/deliveries/:id/confirm - dueño de la orden o admin
func (ctl *DeliveryController) Confirm(c *gin.Context) {
	var req dto.ConfirmDeliveryRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	delivery, err := ctl.Service.ConfirmDelivery(c.Request.Context(), middleware.Principal(c), c.Param("id"), req.Signature)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Delivery confirmed successfully", delivery)
}

// GET /api/deliveries/track/:trackingNumber - público
func (ctl *DeliveryController) Track(c *gin.Context) {
	view, err := ctl.Service.Track(c.Request.Context(), c.Param("trackingNumber"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, view)
}
