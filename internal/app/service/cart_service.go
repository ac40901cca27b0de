package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/lock"
	"github.com/ikkim/storefront-backend/internal/metrics"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// Cart line change outcomes.
const (
	CartItemAdded   = "ITEM_ADDED"
	CartItemUpdated = "ITEM_UPDATED"
	CartItemRemoved = "ITEM_REMOVED"
)

type CartLineInput struct {
	SKU          string `json:"sku"`
	Quantity     int    `json:"quantity"`
	VariantID    string `json:"variantId,omitempty"`
	SubvariantID string `json:"subvariantId,omitempty"`
}

type CartLineResult struct {
	Message string          `json:"message"`
	Line    *model.LineItem `json:"line,omitempty"`
	Cart    *model.Cart     `json:"cart"`
}

// CartLineView is a cart line annotated with the live catalog state.
type CartLineView struct {
	model.LineItem
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

type CartView struct {
	UserID     uint           `json:"userId"`
	Lines      []CartLineView `json:"itemsArr"`
	GrandTotal float64        `json:"grandTotal"`
	ItemsCount int            `json:"itemsCount"`
}

type CartService interface {
	GetCart(ctx context.Context, userID uint) (*CartView, error)
	ChangeLine(ctx context.Context, userID uint, input CartLineInput) (*CartLineResult, error)
	ClearCart(ctx context.Context, userID uint) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	tx          repository.Transactor
	locker      lock.Locker
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	tx repository.Transactor,
	locker lock.Locker,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		tx:          tx,
		locker:      locker,
	}
}

func cartLockKey(userID uint) string {
	return fmt.Sprintf("cart:%d", userID)
}

func (s *cartService) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}

	logger.Debug("Fetching user cart", map[string]interface{}{
		"user_id": userID,
	})

	view := &CartView{UserID: userID, Lines: []CartLineView{}}
	cart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return view, nil
		}
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	products := make(map[string]*model.Product)
	for _, line := range cart.Lines {
		product, ok := products[line.SKU]
		if !ok {
			product, err = s.productRepo.FindBySKU(line.SKU)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			products[line.SKU] = product
		}

		lineView := CartLineView{LineItem: line}
		if product != nil {
			lineView.Name = product.Name
			if resolved, err := product.Resolve(line.VariantID, line.SubvariantID); err == nil {
				lineView.Available = checkQuantity(product, line, line.Quantity, resolved.Available) == nil
			}
		}
		view.Lines = append(view.Lines, lineView)
	}
	view.GrandTotal = cart.GrandTotal
	view.ItemsCount = cart.ItemsCount

	return view, nil
}

// ChangeLine applies a signed quantity delta to the line identified by
// sku, variant and subvariant. Increases are checked against the product's
// per-order limit and current stock; decreases never are.
func (s *cartService) ChangeLine(ctx context.Context, userID uint, input CartLineInput) (*CartLineResult, error) {
	logger.Info("Changing cart line", map[string]interface{}{
		"user_id":       userID,
		"sku":           input.SKU,
		"variant_id":    input.VariantID,
		"subvariant_id": input.SubvariantID,
		"delta":         input.Quantity,
	})

	if userID == 0 {
		return nil, ErrInvalidUser
	}
	if input.SKU == "" {
		return nil, ErrSKURequired
	}
	if input.Quantity == 0 {
		return nil, ErrInvalidQuantity
	}

	unlock, err := s.locker.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer unlock()

	var result *CartLineResult
	err = s.tx.WithinTransaction(ctx, func(uow *repository.UnitOfWork) error {
		r, err := applyDelta(uow, userID, input)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		err = classifyTxError(err)
		if errors.Is(err, ErrTransactionFailed) {
			logger.Error("Cart line change failed", err, map[string]interface{}{
				"user_id": userID,
				"sku":     input.SKU,
			})
			metrics.RecordCartLineChange(ctx, "failed")
		} else {
			logger.Warn("Cart line change rejected", map[string]interface{}{
				"user_id": userID,
				"sku":     input.SKU,
				"error":   err.Error(),
			})
			metrics.RecordCartLineChange(ctx, "rejected")
		}
		return nil, err
	}

	metrics.RecordCartLineChange(ctx, result.Message)
	logger.Info("Cart line changed", map[string]interface{}{
		"user_id":     userID,
		"sku":         input.SKU,
		"result":      result.Message,
		"items_count": result.Cart.ItemsCount,
		"grand_total": result.Cart.GrandTotal,
	})
	return result, nil
}

func applyDelta(uow *repository.UnitOfWork, userID uint, input CartLineInput) (*CartLineResult, error) {
	product, err := uow.Products.FindBySKU(input.SKU)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	resolved, err := product.Resolve(input.VariantID, input.SubvariantID)
	if err != nil {
		return nil, err
	}

	cart, err := uow.Carts.FindByUserIDForUpdate(userID)
	isNew := false
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		cart = &model.Cart{UserID: userID}
		isNew = true
	}

	idx := cart.FindLine(input.SKU, input.VariantID, input.SubvariantID)
	if idx < 0 && input.Quantity < 0 {
		return nil, ErrCartItemNotFound
	}

	existing := 0
	if idx >= 0 {
		existing = cart.Lines[idx].Quantity
	}
	prospective := existing + input.Quantity
	if input.Quantity > 0 && existing > math.MaxInt-input.Quantity {
		// saturate so an oversized increase is rejected by checkQuantity
		prospective = math.MaxInt
	}

	result := &CartLineResult{Cart: cart}
	switch {
	case prospective <= 0:
		cart.RemoveLine(idx)
		result.Message = CartItemRemoved
	default:
		line := model.LineItem{
			SKU:          input.SKU,
			VariantID:    input.VariantID,
			SubvariantID: input.SubvariantID,
			Price:        resolved.Price,
			MRP:          resolved.MRP,
		}
		if idx >= 0 {
			line = cart.Lines[idx]
		}
		if input.Quantity > 0 {
			if err := checkQuantity(product, line, prospective, resolved.Available); err != nil {
				return nil, err
			}
		}

		if idx < 0 {
			line.CreatedAt = time.Now()
			line.SetQuantity(prospective)
			cart.PrependLine(line)
			result.Message = CartItemAdded
		} else {
			cart.Lines[idx].SetQuantity(prospective)
			result.Message = CartItemUpdated
		}
	}
	cart.Recalculate()

	if i := cart.FindLine(input.SKU, input.VariantID, input.SubvariantID); i >= 0 {
		line := cart.Lines[i]
		result.Line = &line
	}

	if isNew {
		err = uow.Carts.Create(cart)
	} else {
		err = uow.Carts.Save(cart)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *cartService) ClearCart(ctx context.Context, userID uint) error {
	if userID == 0 {
		return ErrInvalidUser
	}

	logger.Info("Clearing cart", map[string]interface{}{
		"user_id": userID,
	})

	unlock, err := s.locker.Lock(ctx, cartLockKey(userID))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer unlock()

	err = s.tx.WithinTransaction(ctx, func(uow *repository.UnitOfWork) error {
		cart, err := uow.Carts.FindByUserIDForUpdate(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		cart.Reset()
		return uow.Carts.Save(cart)
	})
	if err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return classifyTxError(err)
	}
	return nil
}
