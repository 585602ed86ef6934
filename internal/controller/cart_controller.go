package controller

import (
	"github.com/gin-gonic/gin"

	"storefront-fulfillment-service/internal/dto"
	"storefront-fulfillment-service/internal/middleware"
	"storefront-fulfillment-service/internal/service"
)

type CartController struct {
	Service *service.CartService
}

func NewCartController(s *service.CartService) *CartController {
	return &CartController{Service: s}
}

// GET /api/cart
func (ctl *CartController) GetCart(c *gin.Context) {
	cart, err := ctl.Service.GetOrCreate(c.Request.Context(), middleware.Principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, cart)
}

// POST /api/cart
func (ctl *CartController) AddItem(c *gin.Context) {
	var req dto.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cart, err := ctl.Service.AddItem(c.Request.Context(), middleware.Principal(c).ID, req.ProductID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Item added to cart", cart)
}

// PUT /api/cart/:itemId
func (ctl *CartController) UpdateItem(c *gin.Context) {
	var req dto.UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cart, err := ctl.Service.UpdateLine(c.Request.Context(), middleware.Principal(c).ID, c.Param("itemId"), req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Cart updated", cart)
}

// DELETE /api/cart/:itemId
func (ctl *CartController) RemoveItem(c *gin.Context) {
	cart, err := ctl.Service.RemoveLine(c.Request.Context(), middleware.Principal(c).ID, c.Param("itemId"))
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Item removed from cart", cart)
}

// DELETE /api/cart
func (ctl *CartController) Clear(c *gin.Context) {
	cart, err := ctl.Service.Clear(c.Request.Context(), middleware.Principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Cart cleared", cart)
}
