package controller

import (
	"github.com/gin-gonic/gin"

	"storefront-fulfillment-service/internal/dto"
	"storefront-fulfillment-service/internal/middleware"
	"storefront-fulfillment-service/internal/service"
)

type PaymentController struct {
	Service *service.PaymentService
}

func NewPaymentController(s *service.PaymentService) *PaymentController {
	return &PaymentController{Service: s}
}

// POST /api/payments
func (ctl *PaymentController) CreatePayment(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	payment, err := ctl.Service.CreatePayment(c.Request.Context(), middleware.Principal(c), service.CreatePaymentInput{
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		CardDetails:   req.Card(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Payment created successfully", payment)
}

// POST /api/payments/:id/process
func (ctl *PaymentController) ProcessPayment(c *gin.Context) {
	payment, err := ctl.Service.ProcessPayment(c.Request.Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Payment processed successfully", payment)
}

// GET /api/payments/my
func (ctl *PaymentController) GetMyPayments(c *gin.Context) {
	payments, err := ctl.Service.GetMyPayments(c.Request.Context(), middleware.Principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	list(c, payments)
}

// GET /api/payments/order/:orderId
func (ctl *PaymentController) GetByOrder(c *gin.Context) {
	payment, err := ctl.Service.GetPaymentByOrder(c.Request.Context(), middleware.Principal(c), c.Param("orderId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, payment)
}

// GET /api/payments/:id
func (ctl *PaymentController) GetPayment(c *gin.Context) {
	payment, err := ctl.Service.GetPayment(c.Request.Context(), middleware.Principal(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, payment)
}

// GET /api/payments - admin
func (ctl *PaymentController) ListPayments(c *gin.Context) {
	payments, err := ctl.Service.ListPayments(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	list(c, payments)
}

// POST /api/payments/:id/refund - admin
func (ctl *PaymentController) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	payment, err := ctl.Service.Refund(c.Request.Context(), middleware.Principal(c), c.Param("id"), req.Amount, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Payment refunded successfully", payment)
}
