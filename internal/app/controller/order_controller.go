package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type CheckoutRequest struct {
	AddressID *uint `json:"addressId"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
	Remark string            `json:"remark"`
}

type CancelOrderRequest struct {
	Remark string `json:"remark"`
}

func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return 0, false
	}
	return uint(id), true
}

// Checkout converts the user's cart into an order
// POST /api/v1/orders
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	var req CheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Warn("Invalid checkout request", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
			apperrors.RespondWithBindingError(c, err)
			return
		}
	}

	order, err := ctrl.orderService.Checkout(c.Request.Context(), userID, req.AddressID)
	if err != nil {
		log.Warn("Checkout rejected", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "checkout")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetOrders returns the user's orders
// GET /api/v1/orders?status=
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(c.Request.Context(), userID, model.OrderStatus(c.Query("status")))
	if err != nil {
		log.Warn("Failed to fetch orders", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrderByID returns one order of the user (admins see every order)
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrderByID(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrderByID(c.Request.Context(), userID, orderID, middleware.IsAdmin(c))
	if err != nil {
		log.Warn("Failed to fetch order", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
			"error":    err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// CancelOrder lets the owner cancel an order that has not shipped
// POST /api/v1/orders/:id/cancel
func (ctrl *OrderController) CancelOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.RespondWithBindingError(c, err)
			return
		}
	}

	order, err := ctrl.orderService.CancelOrder(c.Request.Context(), userID, orderID, req.Remark)
	if err != nil {
		log.Warn("Order cancel rejected", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
			"error":    err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "cancel order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled",
		"order":   order,
	})
}

// ListOrders returns all orders (Admin only)
// GET /api/v1/admin/orders?status=&limit=&offset=
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	limit, offset := pagination(c)
	filter := repository.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid user ID")
			return
		}
		uid := uint(id)
		filter.UserID = &uid
	}

	orders, total, err := ctrl.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		log.Warn("Failed to list orders", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// UpdateOrderStatus moves an order to a new status (Admin only)
// PATCH /api/v1/admin/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid order status request", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
		apperrors.BadRequest(c, apperrors.InvalidStatus, "status is required")
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(c.Request.Context(), orderID, req.Status, req.Remark)
	if err != nil {
		log.Warn("Order status update rejected", map[string]interface{}{
			"order_id": orderID,
			"status":   req.Status,
			"error":    err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "update order status")
		return
	}

	log.Info("Order status updated", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"order":   order,
	})
}
