package service

import (
	"context"
	"sync"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/internal/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	users  []uint
}

func (n *recordingNotifier) NotifyOrder(userID uint, event string, order *model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.users = append(n.users, userID)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type serviceFixture struct {
	db        *gorm.DB
	products  repository.ProductRepository
	carts     repository.CartRepository
	orders    repository.OrderRepository
	addresses repository.AddressRepository
	tx        repository.Transactor
	locker    lock.Locker
	notifier  *recordingNotifier

	cartService    CartService
	orderService   OrderService
	productService ProductService
}

func setupServices(t *testing.T) *serviceFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	f := &serviceFixture{
		db:        testDB,
		products:  repository.NewProductRepository(testDB),
		carts:     repository.NewCartRepository(testDB),
		orders:    repository.NewOrderRepository(testDB),
		addresses: repository.NewAddressRepository(testDB),
		tx:        repository.NewTransactor(testDB),
		locker:    lock.NewLocalLocker(),
		notifier:  &recordingNotifier{},
	}
	f.cartService = NewCartService(f.carts, f.products, f.tx, f.locker)
	f.orderService = NewOrderService(f.orders, f.addresses, f.tx, f.locker, f.notifier, 3)
	f.productService = NewProductService(f.products, 10)
	return f
}

// simpleProduct has no variants, so stock lives on the root.
func (f *serviceFixture) simpleProduct(t *testing.T, sku string, quantity, maxItems int, price float64) *model.Product {
	product := &model.Product{
		SKU:              sku,
		Name:             "Product " + sku,
		Price:            price,
		MRP:              price + 20,
		Quantity:         quantity,
		MaxItemsPerOrder: maxItems,
	}
	require.NoError(t, f.products.Create(product))
	return product
}

// variantProduct carries V1 (no subvariants, stock 1) and V2 with
// subvariants S1 (stock 4) and S2 (stock 0).
func (f *serviceFixture) variantProduct(t *testing.T, sku string) *model.Product {
	product := &model.Product{
		SKU:              sku,
		Name:             "Phone " + sku,
		Price:            500,
		MRP:              600,
		MaxItemsPerOrder: 5,
		Variants: []model.Variant{
			{ID: "V1", Title: "Black", Price: 450, MRP: 500, Quantity: 1},
			{ID: "V2", Title: "White", Price: 470, MRP: 520, Quantity: 99, Subvariants: []model.Subvariant{
				{ID: "S1", Title: "128GB", Price: 480, MRP: 530, Quantity: 4},
				{ID: "S2", Title: "256GB", Price: 520, MRP: 580, Quantity: 0},
			}},
		},
	}
	require.NoError(t, f.products.Create(product))
	return product
}

func (f *serviceFixture) reload(t *testing.T, sku string) *model.Product {
	product, err := f.products.FindBySKUIncludingDeleted(sku)
	require.NoError(t, err)
	return product
}

func (f *serviceFixture) setStock(t *testing.T, sku string, mutate func(p *model.Product)) {
	product := f.reload(t, sku)
	mutate(product)
	require.NoError(t, f.products.Save(product))
}

func (f *serviceFixture) add(t *testing.T, userID uint, sku string, qty int, ids ...string) *CartLineResult {
	input := CartLineInput{SKU: sku, Quantity: qty}
	if len(ids) > 0 {
		input.VariantID = ids[0]
	}
	if len(ids) > 1 {
		input.SubvariantID = ids[1]
	}
	result, err := f.cartService.ChangeLine(context.Background(), userID, input)
	require.NoError(t, err)
	return result
}

func (f *serviceFixture) cart(t *testing.T, userID uint) *model.Cart {
	cart, err := f.carts.FindByUserID(userID)
	require.NoError(t, err)
	return cart
}

func (f *serviceFixture) orderCount(t *testing.T) int64 {
	var count int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
	return count
}

func assertCartConsistent(t *testing.T, cart *model.Cart) {
	t.Helper()
	var sum float64
	for _, line := range cart.Lines {
		assert.Equal(t, line.Price*float64(line.Quantity), line.Total)
		assert.Positive(t, line.Quantity)
		sum += line.Total
	}
	assert.Equal(t, sum, cart.GrandTotal)
	assert.Equal(t, len(cart.Lines), cart.ItemsCount)
}
