package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

// ChangeLineRequest adds (quantity > 0) or removes (quantity < 0) units of one line.
type ChangeLineRequest struct {
	SKU          string `json:"sku" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required"`
	VariantID    string `json:"variantId"`
	SubvariantID string `json:"subvariantId"`
}

// GetCart returns user's cart with live availability
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	cart, err := ctrl.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		log.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.RespondWithServiceError(c, err, "get cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": cart,
	})
}

// ChangeLine applies a signed quantity delta to a cart line
// POST /api/v1/cart
func (ctrl *CartController) ChangeLine(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req ChangeLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid cart change request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	result, err := ctrl.cartService.ChangeLine(c.Request.Context(), userID, service.CartLineInput{
		SKU:          req.SKU,
		Quantity:     req.Quantity,
		VariantID:    req.VariantID,
		SubvariantID: req.SubvariantID,
	})
	if err != nil {
		log.Warn("Cart change rejected", map[string]interface{}{
			"user_id": userID,
			"sku":     req.SKU,
			"error":   err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "change cart line")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ClearCart empties the user's cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	if err := ctrl.cartService.ClearCart(c.Request.Context(), userID); err != nil {
		log.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.RespondWithServiceError(c, err, "clear cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared successfully",
	})
}
