package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_ChangeLine_CreatesCartLazily(t *testing.T) {
	f := setupServices(t)
	f.simpleProduct(t, "P1", 5, 3, 100)

	result := f.add(t, 1, "P1", 2)
	assert.Equal(t, CartItemAdded, result.Message)
	require.NotNil(t, result.Line)
	assert.Equal(t, 2, result.Line.Quantity)
	assert.Equal(t, 200.0, result.Line.Total)
	assert.Equal(t, 120.0, result.Line.MRP)

	cart := f.cart(t, 1)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 200.0, cart.GrandTotal)
	assert.Equal(t, 1, cart.ItemsCount)
	assertCartConsistent(t, cart)
}

func TestCartService_ChangeLine_MaxItemExceeded(t *testing.T) {
	f := setupServices(t)
	f.simpleProduct(t, "P1", 5, 3, 100)

	f.add(t, 1, "P1", 2)
	_, err := f.cartService.ChangeLine(context.Background(), 1, CartLineInput{SKU: "P1", Quantity: 2})
	require.ErrorIs(t, err, ErrMaxItemExceeded)

	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Limit)
	assert.Equal(t, 4, stockErr.Requested)

	cart := f.cart(t, 1)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assertCartConsistent(t, cart)
}

func TestCartService_ChangeLine_HugeIncreaseIsRejected(t *testing.T) {
	tests := []struct {
		name     string
		maxItems int
		wantErr  error
	}{
		{"limited product", 3, ErrMaxItemExceeded},
		{"unlimited product", 0, ErrOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupServices(t)
			f.simpleProduct(t, "P1", 5, tt.maxItems, 100)
			f.add(t, 1, "P1", 2)

			result, err := f.cartService.ChangeLine(context.Background(), 1, CartLineInput{SKU: "P1", Quantity: math.MaxInt})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, result)

			cart := f.cart(t, 1)
			require.Len(t, cart.Lines, 1)
			assert.Equal(t, 2, cart.Lines[0].Quantity)
			assert.Equal(t, 1, cart.ItemsCount)
			assertCartConsistent(t, cart)
		})
	}
}

func TestCartService_ChangeLine_OutOfStock(t *testing.T) {
	f := setupServices(t)
	f.simpleProduct(t, "P1", 2, 10, 100)

	_, err := f.cartService.ChangeLine(context.Background(), 1, CartLineInput{SKU: "P1", Quantity: 3})
	require.ErrorIs(t, err, ErrOutOfStock)

	var stockErr *StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 2, stockErr.Available)

	_, err = f.carts.FindByUserID(1)
	assert.Error(t, err, "a rejected first add must not create a cart")
}

func TestCartService_ChangeLine_ProspectiveTotalChecked(t *testing.T) {
	f := setupServices(t)
	f.simpleProduct(t, "P1", 3, 10, 100)

	f.add(t, 1, "P1", 2)
	_, err := f.cartService.ChangeLine(context.Background(), 1, CartLineInput{SKU: "P1", Quantity: 2})
	assert.ErrorIs(t, err, ErrOutOfStock)

	result := f.add(t, 1, "P1", 1)
	assert.Equal(t, CartItemUpdated, result.Message)
	assert.Equal(t, 3, result.Line.Quantity)
}

func TestCartService_ChangeLine_DecrementRemovesLine(t *testing.T) {
	f := setupServices(t)
	f.simpleProduct(t, "P1", 5, 5, 100)
	f.simpleProduct(t, "P2", 5, 5, 10)

	f.add(t, 1, "P1", 2)
	f.add(t, 1, "P2", 1)

	result := f.add(t, 1, "P1", -1)
	assert.Equal(t, CartItemUpdated, result.Message)
	assert.Equal(t, 1, result.Line.Quantity)

	result = f.add(t, 1, "P1", -5)
	assert.Equal(t, CartItemRemoved, result.Message)
	assert.Nil(t, result.Line)

	cart := f.cart(t, 1)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "P2", cart.Lines[0].SKU)
	assert.Equal(t, 10.0, cart.GrandTotal)
	assertCartConsistent(t, cart)
}

func TestCartService_ChangeLine_DecrementSkipsStockChecks(t *testing.T) {
	f := setupServices(t)
	f.simpleProduct(t, "P1", 5, 5, 100)

	f.add(t, 1, "P1", 4)
	f.setStock(t, "P1", func(p *model.Product) {
		p.Quantity = 0
		p.MaxItemsPerOrder = 1
	})

	result := f.add(t, 1, "P1", -1)
	assert.Equal(t, 3, result.Line.Quantity)
}

func TestCartService_ChangeLine_DecrementMissingLine(t *testing.T) {
	f := setupServices(t)
	f.simpleProduct(t, "P1", 5, 5, 100)

	_, err := f.cartService.ChangeLine(context.Background(), 1, CartLineInput{SKU: "P1", Quantity: -1})
	assert.ErrorIs(t, err, ErrCartItemNotFound)
}

func TestCartService_ChangeLine_MatchesByTriple(t *testing.T) {
	f := setupServices(t)
	f.variantProduct(t, "PH")

	f.add(t, 1, "PH", 1, "V1")
	result := f.add(t, 1, "PH", 2, "V2", "S1")
	assert.Equal(t, CartItemAdded, result.Message)
	assert.Equal(t, 480.0, result.Line.Price, "subvariant price is authoritative")

	cart := f.cart(t, 1)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, "S1", cart.Lines[0].SubvariantID, "newest line first")
	assert.Equal(t, "V1", cart.Lines[1].VariantID)
	assert.Equal(t, 450.0+960.0, cart.GrandTotal)
	assertCartConsistent(t, cart)

	result = f.add(t, 1, "PH", 1, "V2", "S1")
	assert.Equal(t, CartItemUpdated, result.Message)
	assert.Equal(t, 3, result.Line.Quantity)
	assert.Len(t, f.cart(t, 1).Lines, 2)
}

func TestCartService_ChangeLine_CatalogPreconditions(t *testing.T) {
	f := setupServices(t)
	f.variantProduct(t, "PH")
	deleted := f.simpleProduct(t, "GONE", 5, 5, 10)
	require.NoError(t, f.products.SoftDelete(deleted))

	tests := []struct {
		name  string
		input CartLineInput
		want  error
	}{
		{"unknown sku", CartLineInput{SKU: "NOPE", Quantity: 1}, ErrProductNotFound},
		{"deleted product", CartLineInput{SKU: "GONE", Quantity: 1}, ErrProductNotFound},
		{"unknown variant", CartLineInput{SKU: "PH", Quantity: 1, VariantID: "V9"}, ErrVariantNotFound},
		{"unknown subvariant", CartLineInput{SKU: "PH", Quantity: 1, VariantID: "V2", SubvariantID: "S9"}, ErrVariantNotFound},
		{"variant required", CartLineInput{SKU: "PH", Quantity: 1}, ErrVariantNotFound},
		{"subvariant out of stock", CartLineInput{SKU: "PH", Quantity: 1, VariantID: "V2", SubvariantID: "S2"}, ErrOutOfStock},
		{"decrement on unknown variant", CartLineInput{SKU: "PH", Quantity: -1, VariantID: "V9"}, ErrVariantNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.cartService.ChangeLine(context.Background(), 1, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCartService_ChangeLine_InputValidation(t *testing.T) {
	f := setupServices(t)

	_, err := f.cartService.ChangeLine(context.Background(), 0, CartLineInput{SKU: "P1", Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidUser)

	_, err = f.cartService.ChangeLine(context.Background(), 1, CartLineInput{Quantity: 1})
	assert.ErrorIs(t, err, ErrSKURequired)

	_, err = f.cartService.ChangeLine(context.Background(), 1, CartLineInput{SKU: "P1"})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_ChangeLine_TotalsHoldAcrossMutations(t *testing.T) {
	f := setupServices(t)
	f.simpleProduct(t, "A", 50, 20, 3.5)
	f.simpleProduct(t, "B", 50, 20, 7)
	f.variantProduct(t, "PH")

	steps := []CartLineInput{
		{SKU: "A", Quantity: 3},
		{SKU: "B", Quantity: 1},
		{SKU: "PH", Quantity: 2, VariantID: "V2", SubvariantID: "S1"},
		{SKU: "A", Quantity: -1},
		{SKU: "B", Quantity: 4},
		{SKU: "PH", Quantity: -2, VariantID: "V2", SubvariantID: "S1"},
		{SKU: "A", Quantity: 10},
	}
	for _, step := range steps {
		_, err := f.cartService.ChangeLine(context.Background(), 7, step)
		require.NoError(t, err)
		assertCartConsistent(t, f.cart(t, 7))
	}

	cart := f.cart(t, 7)
	assert.Equal(t, 2, cart.ItemsCount)
	assert.Equal(t, 12*3.5+5*7.0, cart.GrandTotal)
}

func TestCartService_GetCart(t *testing.T) {
	f := setupServices(t)
	f.simpleProduct(t, "P1", 5, 5, 100)
	f.variantProduct(t, "PH")

	view, err := f.cartService.GetCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Equal(t, 0, view.ItemsCount)

	f.add(t, 1, "P1", 3)
	f.add(t, 1, "PH", 1, "V1")

	f.setStock(t, "P1", func(p *model.Product) { p.Quantity = 2 })

	view, err = f.cartService.GetCart(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, "PH", view.Lines[0].SKU)
	assert.True(t, view.Lines[0].Available)
	assert.Equal(t, "Phone PH", view.Lines[0].Name)
	assert.Equal(t, "P1", view.Lines[1].SKU)
	assert.False(t, view.Lines[1].Available)
	assert.Equal(t, 2, view.ItemsCount)

	_, err = f.cartService.GetCart(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestCartService_ClearCart(t *testing.T) {
	f := setupServices(t)
	f.simpleProduct(t, "P1", 5, 5, 100)

	require.NoError(t, f.cartService.ClearCart(context.Background(), 1))

	f.add(t, 1, "P1", 2)
	require.NoError(t, f.cartService.ClearCart(context.Background(), 1))

	cart := f.cart(t, 1)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0.0, cart.GrandTotal)
	assert.Equal(t, 0, cart.ItemsCount)
	assert.Equal(t, 5, f.reload(t, "P1").Quantity, "clearing a cart never touches stock")
}
