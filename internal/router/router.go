package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

type Router struct {
	authController        *controller.AuthController
	productController     *controller.ProductController
	cartController        *controller.CartController
	orderController       *controller.OrderController
	orderStreamController *controller.OrderStreamController
	authMiddleware        *middleware.AuthMiddleware
	metricsHandler        http.Handler
	config                *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	orderController *controller.OrderController,
	orderStreamController *controller.OrderStreamController,
	authMiddleware *middleware.AuthMiddleware,
	metricsHandler http.Handler,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:        authController,
		productController:     productController,
		cartController:        cartController,
		orderController:       orderController,
		orderStreamController: orderStreamController,
		authMiddleware:        authMiddleware,
		metricsHandler:        metricsHandler,
		config:                cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Recovered from panic", nil, map[string]interface{}{
			"path":  c.Request.URL.Path,
			"panic": recovered,
		})
		apperrors.InternalError(c, "")
		c.Abort()
	}))
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "storefront API is running",
		})
	})

	if r.metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(r.metricsHandler))
	}

	adminOnly := func(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
		return append([]gin.HandlerFunc{
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole(model.RoleAdmin),
		}, handlers...)
	}

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/export", adminOnly(r.productController.ExportStock)...)
			products.GET("/:sku", r.productController.GetProduct)
			products.GET("/:sku/stock", r.productController.GetStock)

			products.POST("", adminOnly(r.productController.CreateProduct)...)
			products.PUT("/:sku", adminOnly(r.productController.UpdateProduct)...)
			products.DELETE("/:sku", adminOnly(r.productController.DeleteProduct)...)
		}

		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.Authenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("", r.cartController.ChangeLine)
			cart.DELETE("", r.cartController.ClearCart)
		}

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.POST("", r.orderController.Checkout)
			orders.GET("", r.orderController.GetOrders)
			orders.GET("/:id", r.orderController.GetOrderByID)
			orders.POST("/:id/cancel", r.orderController.CancelOrder)
		}

		admin := v1.Group("/admin")
		admin.Use(adminOnly()...)
		{
			admin.GET("/orders", r.orderController.ListOrders)
			admin.PATCH("/orders/:id/status", r.orderController.UpdateOrderStatus)
		}

		v1.GET("/ws/orders", r.authMiddleware.Authenticate(), r.orderStreamController.Connect)
	}

	return router
}
