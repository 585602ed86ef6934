package controller

import (
	"github.com/gin-gonic/gin"

	"storefront-fulfillment-service/internal/middleware"
)

type Handlers struct {
	Cart     *CartController
	Order    *OrderController
	Payment  *PaymentController
	Delivery *DeliveryController
	Health   *HealthController
}

// Register monta /api y los health checks. auth valida el bearer token.
func (h Handlers) Register(r gin.IRouter, auth gin.HandlerFunc) {
	r.GET("/livez", h.Health.Live)
	r.GET("/healthz", h.Health.Ready)

	api := r.Group("/api")

	// Ruta pública
	api.GET("/deliveries/track/:trackingNumber", h.Delivery.Track)

	// Rutas protegidas (requieren token)
	private := api.Group("/", auth)
	admin := middleware.AdminOnly()

	cart := private.Group("/cart")
	cart.GET("", h.Cart.GetCart)
	cart.POST("", h.Cart.AddItem)
	cart.DELETE("", h.Cart.Clear)
	cart.PUT("/:itemId", h.Cart.UpdateItem)
	cart.DELETE("/:itemId", h.Cart.RemoveItem)

	orders := private.Group("/orders")
	orders.POST("", h.Order.PlaceOrder)
	orders.GET("/myorders", h.Order.GetMyOrders)
	orders.GET("/:id", h.Order.GetOrder)
	orders.PUT("/:id/cancel", h.Order.CancelOrder)
	orders.GET("", admin, h.Order.ListOrders)
	orders.PUT("/:id/status", admin, h.Order.UpdateStatus)

	payments := private.Group("/payments")
	payments.POST("", h.Payment.CreatePayment)
	payments.POST("/:id/process", h.Payment.ProcessPayment)
	payments.GET("/my", h.Payment.GetMyPayments)
	payments.GET("/order/:orderId", h.Payment.GetByOrder)
	payments.GET("/:id", h.Payment.GetPayment)
	payments.GET("", admin, h.Payment.ListPayments)
	payments.POST("/:id/refund", admin, h.Payment.Refund)

	deliveries := private.Group("/deliveries")
	deliveries.GET("/order/:orderId", h.Delivery.GetByOrder)
	deliveries.GET("/:id", h.Delivery.GetDelivery)
	deliveries.PUT("/:id/confirm", h.Delivery.Confirm)
	deliveries.POST("", admin, h.Delivery.CreateDelivery)
	deliveries.GET("", admin, h.Delivery.ListDeliveries)
	deliveries.PUT("/:id/status", admin, h.Delivery.UpdateStatus)
}
