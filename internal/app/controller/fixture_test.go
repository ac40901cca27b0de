package controller

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/lock"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type nopNotifier struct{}

func (nopNotifier) NotifyOrder(uint, string, *model.Order) {}

type controllerFixture struct {
	db       *gorm.DB
	products repository.ProductRepository

	authService    service.AuthService
	productService service.ProductService
	cartService    service.CartService
	orderService   service.OrderService
}

func setupControllerTest(t *testing.T) *controllerFixture {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	products := repository.NewProductRepository(testDB)
	carts := repository.NewCartRepository(testDB)
	orders := repository.NewOrderRepository(testDB)
	addresses := repository.NewAddressRepository(testDB)
	users := repository.NewUserRepository(testDB)
	tx := repository.NewTransactor(testDB)
	locker := lock.NewLocalLocker()

	return &controllerFixture{
		db:             testDB,
		products:       products,
		authService:    service.NewAuthService(users, "controller-secret", 15*time.Minute, time.Hour),
		productService: service.NewProductService(products, 10),
		cartService:    service.NewCartService(carts, products, tx, locker),
		orderService:   service.NewOrderService(orders, addresses, tx, locker, nopNotifier{}, 3),
	}
}

// withUser stands in for AuthMiddleware.Authenticate.
func withUser(userID uint, role model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.UserRoleKey, role)
		c.Next()
	}
}

func (f *controllerFixture) product(t *testing.T, sku string, quantity, maxItems int) *model.Product {
	p := &model.Product{
		SKU:              sku,
		Name:             "Product " + sku,
		Price:            100,
		MRP:              120,
		Quantity:         quantity,
		MaxItemsPerOrder: maxItems,
	}
	require.NoError(t, f.products.Create(p))
	return p
}

func perform(t *testing.T, router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
