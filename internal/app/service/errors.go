package service

import (
	"errors"
	"fmt"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
)

var (
	ErrProductNotFound         = errors.New("product not found")
	ErrVariantNotFound         = model.ErrVariantNotFound
	ErrOutOfStock              = errors.New("product out of stock")
	ErrMaxItemExceeded         = errors.New("max items per order exceeded")
	ErrEmptyCart               = errors.New("cart is empty")
	ErrInvalidUser             = errors.New("invalid user")
	ErrRemarkRequired          = errors.New("remark is required to cancel an order")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("order status cannot be changed")
	ErrOrderNotFound           = errors.New("order not found")
	ErrCartItemNotFound        = errors.New("cart item not found")
	ErrInvalidQuantity         = errors.New("quantity must be a nonzero integer")
	ErrSKURequired             = errors.New("sku is required")
	ErrAddressNotFound         = errors.New("address not found")
	ErrSKUExists               = errors.New("sku already exists")
	ErrPriceAboveMRP           = errors.New("price cannot exceed mrp")
	ErrInvalidProduct          = errors.New("invalid product")

	// ErrTransactionFailed marks store failures inside a unit of work.
	// Callers may retry; domain validation never produces it.
	ErrTransactionFailed = errors.New("transaction failed")
)

// StockError is a quantity rejection for one line. It unwraps to
// ErrOutOfStock or ErrMaxItemExceeded.
type StockError struct {
	Kind         error
	SKU          string
	VariantID    string
	SubvariantID string
	ProductName  string
	Requested    int
	Available    int
	Limit        int
}

func (e *StockError) Error() string {
	switch e.Kind {
	case ErrMaxItemExceeded:
		return fmt.Sprintf("%s: %s allows at most %d per order, requested %d", e.Kind, e.SKU, e.Limit, e.Requested)
	default:
		name := e.ProductName
		if name == "" {
			name = e.SKU
		}
		return fmt.Sprintf("%s: %s has %d available, requested %d", e.Kind, name, e.Available, e.Requested)
	}
}

func (e *StockError) Unwrap() error {
	return e.Kind
}

var domainErrors = []error{
	ErrProductNotFound,
	ErrVariantNotFound,
	ErrOutOfStock,
	ErrMaxItemExceeded,
	ErrEmptyCart,
	ErrInvalidUser,
	ErrRemarkRequired,
	ErrInvalidStatus,
	ErrInvalidStatusTransition,
	ErrOrderNotFound,
	ErrCartItemNotFound,
	ErrInvalidQuantity,
	ErrSKURequired,
	ErrAddressNotFound,
	ErrSKUExists,
	ErrPriceAboveMRP,
	ErrInvalidProduct,
	ErrTransactionFailed,
	repository.ErrStockConflict,
}

// classifyTxError leaves domain errors untouched and wraps everything else
// as ErrTransactionFailed.
func classifyTxError(err error) error {
	if err == nil {
		return nil
	}
	for _, domainErr := range domainErrors {
		if errors.Is(err, domainErr) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
}

func outOfStock(product *model.Product, line model.LineItem, requested, available int) *StockError {
	return &StockError{
		Kind:         ErrOutOfStock,
		SKU:          product.SKU,
		VariantID:    line.VariantID,
		SubvariantID: line.SubvariantID,
		ProductName:  product.Name,
		Requested:    requested,
		Available:    available,
	}
}

func maxItemExceeded(product *model.Product, line model.LineItem, requested int) *StockError {
	return &StockError{
		Kind:         ErrMaxItemExceeded,
		SKU:          product.SKU,
		VariantID:    line.VariantID,
		SubvariantID: line.SubvariantID,
		ProductName:  product.Name,
		Requested:    requested,
		Limit:        product.MaxItemsPerOrder,
	}
}

// checkQuantity applies the per-order limit first and then availability.
func checkQuantity(product *model.Product, line model.LineItem, requested, available int) error {
	if product.MaxItemsPerOrder > 0 && requested > product.MaxItemsPerOrder {
		return maxItemExceeded(product, line, requested)
	}
	if requested > available {
		return outOfStock(product, line, requested, available)
	}
	return nil
}
