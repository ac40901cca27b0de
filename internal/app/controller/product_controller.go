package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/internal/middleware"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{
		productService: productService,
	}
}

// pagination reads limit/offset query params with sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListProducts returns catalog products
// GET /api/v1/products?search=&sort=price|name|created_at&order=asc|desc&limit=&offset=
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	limit, offset := pagination(c)
	filter := repository.ProductFilter{
		Search:        c.Query("search"),
		SortBy:        repository.ProductSort(c.Query("sort")),
		SortAscending: c.Query("order") == "asc",
		Limit:         limit,
		Offset:        offset,
	}

	products, total, err := ctrl.productService.ListProducts(c.Request.Context(), filter)
	if err != nil {
		log.Error("Failed to fetch products", err, nil)
		apperrors.RespondWithServiceError(c, err, "list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetProduct returns a product by SKU
// GET /api/v1/products/:sku
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sku := c.Param("sku")

	product, err := ctrl.productService.GetProductBySKU(c.Request.Context(), sku)
	if err != nil {
		log.Warn("Failed to fetch product", map[string]interface{}{
			"sku":   sku,
			"error": err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "get product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// GetStock resolves the stock level a cart line would draw from
// GET /api/v1/products/:sku/stock?variantId=&subvariantId=
func (ctrl *ProductController) GetStock(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sku := c.Param("sku")

	resolved, err := ctrl.productService.ResolveStock(
		c.Request.Context(), sku, c.Query("variantId"), c.Query("subvariantId"),
	)
	if err != nil {
		log.Warn("Failed to resolve stock", map[string]interface{}{
			"sku":   sku,
			"error": err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "resolve stock")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sku":   sku,
		"stock": resolved,
	})
}

// CreateProduct creates a new product (Admin only)
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product creation request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	product, err := ctrl.productService.CreateProduct(c.Request.Context(), req)
	if err != nil {
		log.Warn("Product creation failed", map[string]interface{}{
			"sku":   req.SKU,
			"error": err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "create product")
		return
	}

	log.Info("Product created", map[string]interface{}{
		"sku": product.SKU,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// UpdateProduct replaces a product's fields and stock levels (Admin only)
// PUT /api/v1/products/:sku
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sku := c.Param("sku")

	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid product update request", map[string]interface{}{
			"sku":   sku,
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	product, err := ctrl.productService.UpdateProduct(c.Request.Context(), sku, req)
	if err != nil {
		log.Warn("Product update failed", map[string]interface{}{
			"sku":   sku,
			"error": err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "update product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct soft-deletes a product (Admin only)
// DELETE /api/v1/products/:sku
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	sku := c.Param("sku")

	if err := ctrl.productService.DeleteProduct(c.Request.Context(), sku); err != nil {
		log.Warn("Product deletion failed", map[string]interface{}{
			"sku":   sku,
			"error": err.Error(),
		})
		apperrors.RespondWithServiceError(c, err, "delete product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

// ExportStock streams the stock sheet as xlsx (Admin only)
// GET /api/v1/products/export
func (ctrl *ProductController) ExportStock(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var buf bytes.Buffer
	if err := ctrl.productService.ExportStockSheet(c.Request.Context(), &buf); err != nil {
		log.Error("Stock export failed", err, nil)
		apperrors.InternalError(c, "Failed to export stock sheet")
		return
	}

	filename := fmt.Sprintf("stock-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
