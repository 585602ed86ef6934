package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront-fulfillment-service/internal/dto"
	"storefront-fulfillment-service/internal/middleware"
	"storefront-fulfillment-service/internal/model"
	"storefront-fulfillment-service/internal/service"
)

type OrderController struct {
	Service *service.OrderService
}

func NewOrderController(s *service.OrderService) *OrderController {
	return &OrderController{Service: s}
}

// POST /api/orders
func (ctl *OrderController) PlaceOrder(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := ctl.Service.PlaceOrder(c.Request.Context(), middleware.Principal(c).ID, service.PlaceOrderInput{
		ShippingAddress: req.ShippingAddress.ToModel(),
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      req.ItemsPrice,
		TaxPrice:        req.TaxPrice,
		ShippingPrice:   req.ShippingPrice,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Order created successfully", order)
}

// GET /api/orders/myorders
func (ctl *OrderController) GetMyOrders(c *gin.Context) {
	orders, err := ctl.Service.GetMyOrders(c.Request.Context(), middleware.Principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	list(c, orders)
}

// GET /api/orders/:id - dueño o admin
func (ctl *OrderController) GetOrder(c *gin.Context) {
	order, err := ctl.Service.GetOrder(c.Request.Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// GET /api/orders?page=&limit= - admin
func (ctl *OrderController) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	res, err := ctl.Service.ListOrders(c.Request.Context(), page, limit)
	if err != nil {
		fail(c, err)
		return
	}

	orders := res.Orders
	if orders == nil {
		orders = []model.Order{}
	}
	count := len(orders)
	c.JSON(http.StatusOK, dto.Response{
		Success: true,
		Data:    orders,
		Count:   &count,
		Total:   &res.Total,
		Page:    &res.Page,
		Pages:   &res.Pages,
	})
}

// PUT /api/orders/:id/status - admin
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := ctl.Service.UpdateOrderStatus(
		c.Request.Context(),
		middleware.Principal(c),
		c.Param("id"),
		model.OrderStatus(req.Status),
		req.Reason,
		req.Force,
	)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Order status updated", order)
}

// PUT /api/orders/:id/cancel - dueño o admin; el body es opcional
func (ctl *OrderController) CancelOrder(c *gin.Context) {
	var req dto.CancelOrderRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	order, err := ctl.Service.CancelOrder(c.Request.Context(), middleware.Principal(c), c.Param("id"), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Order cancelled", order)
}
