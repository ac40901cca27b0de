package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/controller"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/lock"
	"github.com/ikkim/storefront-backend/internal/middleware"
	"github.com/ikkim/storefront-backend/internal/router"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type TestServer struct {
	Router *gin.Engine
	DB     *gorm.DB
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	userRepo := repository.NewUserRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)
	addressRepo := repository.NewAddressRepository(testDB)
	tx := repository.NewTransactor(testDB)
	locker := lock.NewLocalLocker()

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	authService := service.NewAuthService(userRepo, testSecret, 15*time.Minute, 7*24*time.Hour)
	productService := service.NewProductService(productRepo, 10)
	cartService := service.NewCartService(cartRepo, productRepo, tx, locker)
	orderService := service.NewOrderService(orderRepo, addressRepo, tx, locker, hub, 3)

	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewProductController(productService),
		controller.NewCartController(cartService),
		controller.NewOrderController(orderService),
		controller.NewOrderStreamController(hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(testSecret),
		nil,
		cfg,
	)

	return &TestServer{Router: r.Setup(), DB: testDB}
}

func (ts *TestServer) do(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func accessToken(t *testing.T, resp map[string]interface{}) string {
	t.Helper()
	tokens, ok := resp["tokens"].(map[string]interface{})
	require.True(t, ok)
	token, ok := tokens["accessToken"].(string)
	require.True(t, ok)
	return token
}

func (ts *TestServer) adminToken(t *testing.T) string {
	t.Helper()
	hash, err := util.HashPassword("admin-password")
	require.NoError(t, err)
	require.NoError(t, ts.DB.Create(&model.User{
		Email:        "admin@example.com",
		PasswordHash: hash,
		Name:         "Admin",
		Role:         model.RoleAdmin,
	}).Error)

	w := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "admin-password",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return accessToken(t, decode(t, w))
}

func (ts *TestServer) buyerToken(t *testing.T, email string) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
		"name":     "Buyer",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return accessToken(t, decode(t, w))
}

func TestCompleteUserJourney(t *testing.T) {
	ts := setupIntegrationTest(t)
	admin := ts.adminToken(t)
	buyer := ts.buyerToken(t, "buyer@example.com")

	t.Log("Step 1: admin creates a product with variants")
	w := ts.do(t, http.MethodPost, "/api/v1/products", admin, map[string]interface{}{
		"sku":              "PHONE-1",
		"name":             "Phone",
		"price":            500,
		"mrp":              600,
		"maxItemsPerOrder": 3,
		"variants": []map[string]interface{}{
			{"id": "BLK", "title": "Black", "price": 450, "mrp": 500, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Log("Step 2: buyer browses")
	w = ts.do(t, http.MethodGet, "/api/v1/products?search=phone", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = ts.do(t, http.MethodGet, "/api/v1/products/PHONE-1/stock?variantId=BLK", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stock := decode(t, w)["stock"].(map[string]interface{})
	assert.EqualValues(t, 2, stock["available"])

	t.Log("Step 3: buyer fills the cart")
	w = ts.do(t, http.MethodPost, "/api/v1/cart", buyer, map[string]interface{}{
		"sku": "PHONE-1", "variantId": "BLK", "quantity": 2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, service.CartItemAdded, decode(t, w)["message"])

	w = ts.do(t, http.MethodPost, "/api/v1/cart", buyer, map[string]interface{}{
		"sku": "PHONE-1", "variantId": "BLK", "quantity": 1,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "OUT_OF_STOCK", decode(t, w)["error"])

	t.Log("Step 4: checkout")
	w = ts.do(t, http.MethodPost, "/api/v1/orders", buyer, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "INITIATED", order["status"])
	assert.EqualValues(t, 900, order["grandTotal"])
	orderID := int(order["id"].(float64))

	w = ts.do(t, http.MethodGet, "/api/v1/cart", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cart := decode(t, w)["cart"].(map[string]interface{})
	assert.Empty(t, cart["itemsArr"])

	w = ts.do(t, http.MethodGet, "/api/v1/products/PHONE-1/stock?variantId=BLK", "", nil)
	assert.EqualValues(t, 0, decode(t, w)["stock"].(map[string]interface{})["available"])

	t.Log("Step 5: admin cancels, stock comes back")
	path := "/api/v1/admin/orders/" + itoa(orderID) + "/status"
	w = ts.do(t, http.MethodPatch, path, admin, map[string]string{"status": "CANCELLED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "REMARK_REQUIRED", decode(t, w)["error"])

	w = ts.do(t, http.MethodPatch, path, admin, map[string]string{"status": "CANCELLED", "remark": "customer called"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/products/PHONE-1/stock?variantId=BLK", "", nil)
	assert.EqualValues(t, 2, decode(t, w)["stock"].(map[string]interface{})["available"])

	w = ts.do(t, http.MethodGet, "/api/v1/orders/"+itoa(orderID), buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "customer called", decode(t, w)["order"].(map[string]interface{})["remark"])
}

func TestAuthenticationFlow(t *testing.T) {
	ts := setupIntegrationTest(t)
	token := ts.buyerToken(t, "flow@example.com")

	w := ts.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "flow@example.com", user["email"])
	assert.Equal(t, "user", user["role"])

	w = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "flow@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "AUTH_INVALID_CREDENTIALS", decode(t, w)["error"])

	w = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "flow@example.com", "password": "password123", "name": "Again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnauthorizedAccess(t *testing.T) {
	ts := setupIntegrationTest(t)
	buyer := ts.buyerToken(t, "nosy@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"cart requires login", http.MethodGet, "/api/v1/cart", "", http.StatusUnauthorized},
		{"checkout requires login", http.MethodPost, "/api/v1/orders", "", http.StatusUnauthorized},
		{"admin list requires admin", http.MethodGet, "/api/v1/admin/orders", buyer, http.StatusForbidden},
		{"product create requires admin", http.MethodPost, "/api/v1/products", buyer, http.StatusForbidden},
		{"export requires admin", http.MethodGet, "/api/v1/products/export", buyer, http.StatusForbidden},
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
