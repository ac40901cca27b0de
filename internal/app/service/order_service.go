package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/lock"
	"github.com/ikkim/storefront-backend/internal/metrics"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// Order events pushed to notifiers.
const (
	OrderEventCreated       = "order.created"
	OrderEventStatusChanged = "order.status_changed"
)

// ExpiryRemark is stored on orders cancelled by ExpireStaleOrders.
const ExpiryRemark = "auto-cancelled: not confirmed in time"

const staleOrderBatch = 100

// OrderNotifier receives committed order changes.
type OrderNotifier interface {
	NotifyOrder(userID uint, event string, order *model.Order)
}

type OrderService interface {
	Checkout(ctx context.Context, userID uint, addressID *uint) (*model.Order, error)
	GetUserOrders(ctx context.Context, userID uint, status model.OrderStatus) ([]model.Order, error)
	GetOrderByID(ctx context.Context, userID, orderID uint, isAdmin bool) (*model.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus, remark string) (*model.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uint, remark string) (*model.Order, error)
	Restock(ctx context.Context, order *model.Order) error
	ExpireStaleOrders(ctx context.Context, olderThan time.Duration) (int, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	addressRepo repository.AddressRepository
	tx          repository.Transactor
	locker      lock.Locker
	notifier    OrderNotifier
	attempts    int
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	addressRepo repository.AddressRepository,
	tx repository.Transactor,
	locker lock.Locker,
	notifier OrderNotifier,
	checkoutAttempts int,
) OrderService {
	if checkoutAttempts < 1 {
		checkoutAttempts = 1
	}
	return &orderService{
		orderRepo:   orderRepo,
		addressRepo: addressRepo,
		tx:          tx,
		locker:      locker,
		notifier:    notifier,
		attempts:    checkoutAttempts,
	}
}

// withRetry runs fn in a fresh transaction, retrying when a versioned
// product write lost a race. Every attempt re-reads current state.
func (s *orderService) withRetry(ctx context.Context, operation string, fn func(uow *repository.UnitOfWork) error) error {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		err = s.tx.WithinTransaction(ctx, fn)
		if !errors.Is(err, repository.ErrStockConflict) {
			return classifyTxError(err)
		}
		metrics.RecordStockConflict(ctx, operation)
		logger.Warn("Stock conflict, retrying", map[string]interface{}{
			"operation": operation,
			"attempt":   attempt,
		})
	}
	return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
}

func (s *orderService) notify(userID uint, event string, order *model.Order) {
	if s.notifier != nil {
		s.notifier.NotifyOrder(userID, event, order)
	}
}

func (s *orderService) Checkout(ctx context.Context, userID uint, addressID *uint) (*model.Order, error) {
	logger.Info("Starting checkout", map[string]interface{}{
		"user_id":    userID,
		"address_id": addressID,
	})
	started := time.Now()

	order, err := s.checkout(ctx, userID, addressID)
	if err != nil {
		metrics.RecordCheckout(ctx, metrics.ResultFailure, failureReason(err), time.Since(started))
		if errors.Is(err, ErrTransactionFailed) {
			logger.Error("Checkout failed", err, map[string]interface{}{
				"user_id": userID,
			})
		} else {
			logger.Warn("Checkout rejected", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		return nil, err
	}

	metrics.RecordCheckout(ctx, metrics.ResultSuccess, "", time.Since(started))
	logger.Info("Checkout completed", map[string]interface{}{
		"user_id":     userID,
		"order_id":    order.ID,
		"items_count": order.ItemsCount,
		"grand_total": order.GrandTotal,
	})
	s.notify(userID, OrderEventCreated, order)
	return order, nil
}

func (s *orderService) checkout(ctx context.Context, userID uint, addressID *uint) (*model.Order, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}
	if addressID != nil {
		if _, err := s.addressRepo.FindByIDAndUserID(*addressID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAddressNotFound
			}
			return nil, classifyTxError(err)
		}
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer unlock()

	var order *model.Order
	err = s.withRetry(ctx, "checkout", func(uow *repository.UnitOfWork) error {
		o, err := checkoutCart(uow, userID, addressID)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

type stockAdjustment struct {
	product  *model.Product
	target   model.StockTarget
	quantity int
}

// checkoutCart validates every line before the first write, then decrements
// stock, creates the order and resets the cart inside uow.
func checkoutCart(uow *repository.UnitOfWork, userID uint, addressID *uint) (*model.Order, error) {
	cart, err := uow.Carts.FindByUserIDForUpdate(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	products, skus, err := lockProducts(uow.Products, cart.Lines, false)
	if err != nil {
		return nil, err
	}

	adjustments := make([]stockAdjustment, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		product := products[line.SKU]
		resolved, err := product.Resolve(line.VariantID, line.SubvariantID)
		if err != nil {
			return nil, err
		}
		if err := checkQuantity(product, line, line.Quantity, resolved.Available); err != nil {
			return nil, err
		}
		adjustments = append(adjustments, stockAdjustment{
			product:  product,
			target:   resolved.Target,
			quantity: line.Quantity,
		})
	}

	for _, adj := range adjustments {
		if err := adj.product.AdjustStock(adj.target, -adj.quantity); err != nil {
			return nil, err
		}
	}
	for _, sku := range skus {
		if err := uow.Products.Save(products[sku]); err != nil {
			return nil, err
		}
	}

	order := &model.Order{
		UserID:     userID,
		AddressID:  addressID,
		Items:      cart.SnapshotLines(),
		GrandTotal: cart.GrandTotal,
		ItemsCount: cart.ItemsCount,
		Status:     model.OrderStatusInitiated,
	}
	if err := uow.Orders.Create(order); err != nil {
		return nil, err
	}

	cart.Reset()
	if err := uow.Carts.Save(cart); err != nil {
		return nil, err
	}
	return order, nil
}

// lockProducts loads every product referenced by lines, row-locked, in sku
// order so that concurrent transactions acquire locks in the same sequence.
func lockProducts(repo repository.ProductRepository, lines []model.LineItem, includeDeleted bool) (map[string]*model.Product, []string, error) {
	products := make(map[string]*model.Product, len(lines))
	skus := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := products[line.SKU]; !ok {
			products[line.SKU] = nil
			skus = append(skus, line.SKU)
		}
	}
	sort.Strings(skus)

	for _, sku := range skus {
		product, err := repo.FindBySKUForUpdate(sku)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, fmt.Errorf("%w: %s", ErrProductNotFound, sku)
			}
			return nil, nil, err
		}
		if !includeDeleted && !product.Orderable() {
			return nil, nil, fmt.Errorf("%w: %s", ErrProductNotFound, sku)
		}
		products[sku] = product
	}
	return products, skus, nil
}

// restockLines returns every line's quantity to its current stock node.
// Soft-deleted products are restocked too.
func restockLines(uow *repository.UnitOfWork, lines []model.LineItem) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	products, skus, err := lockProducts(uow.Products, lines, true)
	if err != nil {
		return 0, err
	}

	units := 0
	for _, line := range lines {
		product := products[line.SKU]
		resolved, err := product.Resolve(line.VariantID, line.SubvariantID)
		if err != nil {
			return 0, err
		}
		if err := product.AdjustStock(resolved.Target, line.Quantity); err != nil {
			return 0, err
		}
		units += line.Quantity
	}

	for _, sku := range skus {
		if err := uow.Products.Save(products[sku]); err != nil {
			return 0, err
		}
	}
	return units, nil
}

func (s *orderService) Restock(ctx context.Context, order *model.Order) error {
	logger.Info("Restocking order", map[string]interface{}{
		"order_id": order.ID,
		"lines":    len(order.Items),
	})

	var units int
	err := s.withRetry(ctx, "restock", func(uow *repository.UnitOfWork) error {
		n, err := restockLines(uow, order.Items)
		units = n
		return err
	})
	if err != nil {
		logger.Error("Failed to restock order", err, map[string]interface{}{
			"order_id": order.ID,
		})
		return err
	}

	metrics.RecordRestock(ctx, string(order.Status), units)
	return nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uint, status model.OrderStatus, remark string) (*model.Order, error) {
	logger.Info("Updating order status", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})
	return s.transition(ctx, orderID, status, remark, nil)
}

func (s *orderService) CancelOrder(ctx context.Context, userID, orderID uint, remark string) (*model.Order, error) {
	logger.Info("Customer cancelling order", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
	})
	if userID == 0 {
		return nil, ErrInvalidUser
	}

	return s.transition(ctx, orderID, model.OrderStatusCancelled, remark, func(order *model.Order) error {
		if order.UserID != userID {
			return ErrOrderNotFound
		}
		if order.Status != model.OrderStatusInitiated && order.Status != model.OrderStatusConfirmed {
			return ErrInvalidStatusTransition
		}
		return nil
	})
}

// transition moves an order to status. The restock, the status and the
// remark commit together. guard may veto the change after the order is
// locked.
func (s *orderService) transition(ctx context.Context, orderID uint, status model.OrderStatus, remark string, guard func(*model.Order) error) (*model.Order, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	remark = strings.TrimSpace(remark)
	if status == model.OrderStatusCancelled && remark == "" {
		return nil, ErrRemarkRequired
	}

	var (
		order *model.Order
		units int
	)
	err := s.withRetry(ctx, "status_update", func(uow *repository.UnitOfWork) error {
		o, err := uow.Orders.FindByIDForUpdate(orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if guard != nil {
			if err := guard(o); err != nil {
				return err
			}
		}
		if o.Status.IsTerminal() {
			return fmt.Errorf("%w: order %d is %s", ErrInvalidStatusTransition, o.ID, o.Status)
		}

		units = 0
		if status.RestocksInventory() {
			n, err := restockLines(uow, o.Items)
			if err != nil {
				return err
			}
			units = n
		}

		o.Status = status
		if remark != "" {
			o.Remark = remark
		}
		if err := uow.Orders.UpdateStatus(o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		logger.Warn("Order status update rejected", map[string]interface{}{
			"order_id": orderID,
			"status":   status,
			"error":    err.Error(),
		})
		return nil, err
	}

	if status.RestocksInventory() {
		metrics.RecordRestock(ctx, string(status), units)
	}
	logger.Info("Order status updated", map[string]interface{}{
		"order_id":  order.ID,
		"status":    order.Status,
		"restocked": units,
	})
	s.notify(order.UserID, OrderEventStatusChanged, order)
	return order, nil
}

func (s *orderService) GetUserOrders(ctx context.Context, userID uint, status model.OrderStatus) ([]model.Order, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}
	if status != "" && !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	orders, _, err := s.orderRepo.FindWithFilter(repository.OrderFilter{UserID: &userID, Status: status})
	if err != nil {
		logger.Error("Failed to fetch user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, userID, orderID uint, isAdmin bool) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		logger.Warn("Order access denied", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.orderRepo.FindWithFilter(filter)
}

// ExpireStaleOrders cancels INITIATED orders older than olderThan and
// returns how many were cancelled. Orders that move on concurrently are
// skipped.
func (s *orderService) ExpireStaleOrders(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	stale, err := s.orderRepo.FindStale(model.OrderStatusInitiated, cutoff, staleOrderBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range stale {
		_, err := s.transition(ctx, candidate.ID, model.OrderStatusCancelled, ExpiryRemark, func(order *model.Order) error {
			if order.Status != model.OrderStatusInitiated {
				return ErrInvalidStatusTransition
			}
			return nil
		})
		if err != nil {
			if !errors.Is(err, ErrInvalidStatusTransition) {
				logger.Error("Failed to expire order", err, map[string]interface{}{
					"order_id": candidate.ID,
				})
			}
			continue
		}
		expired++
	}

	logger.Info("Stale orders expired", map[string]interface{}{
		"candidates": len(stale),
		"expired":    expired,
		"cutoff":     cutoff,
	})
	return expired, nil
}

func failureReason(err error) string {
	reasons := []struct {
		err    error
		reason string
	}{
		{ErrEmptyCart, "empty_cart"},
		{ErrOutOfStock, "out_of_stock"},
		{ErrMaxItemExceeded, "max_item_exceeded"},
		{ErrProductNotFound, "product_not_found"},
		{ErrVariantNotFound, "variant_not_found"},
		{ErrAddressNotFound, "address_not_found"},
		{ErrInvalidUser, "invalid_user"},
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "transaction_failed"
}
