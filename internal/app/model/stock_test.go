package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTreeProduct() *Product {
	return &Product{
		SKU:      "PHONE-1",
		Name:     "Phone",
		Price:    999,
		MRP:      999,
		Quantity: 0,
		Variants: []Variant{
			{ID: "v-black", Title: "Black", Price: 500, MRP: 550, Quantity: 4},
			{
				ID:    "v-white",
				Title: "White",
				Price: 1,
				MRP:   1,
				Subvariants: []Subvariant{
					{ID: "s-64", Title: "64GB", Price: 600, MRP: 650, Quantity: 2},
					{ID: "s-128", Title: "128GB", Price: 700, MRP: 750, Quantity: 1},
				},
			},
		},
	}
}

func TestProduct_Resolve_Root(t *testing.T) {
	p := &Product{SKU: "P1", Price: 100, MRP: 120, Quantity: 5}

	r, err := p.Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, LevelRoot, r.Target.Level)
	assert.Equal(t, 5, r.Available)
	assert.Equal(t, 100.0, r.Price)
	assert.Equal(t, 120.0, r.MRP)
}

func TestProduct_Resolve_Variant(t *testing.T) {
	p := newTreeProduct()

	r, err := p.Resolve("v-black", "")
	require.NoError(t, err)
	assert.Equal(t, LevelVariant, r.Target.Level)
	assert.Equal(t, 0, r.Target.VariantIndex)
	assert.Equal(t, 4, r.Available)
	assert.Equal(t, 500.0, r.Price)
}

func TestProduct_Resolve_Subvariant(t *testing.T) {
	p := newTreeProduct()

	r, err := p.Resolve("v-white", "s-128")
	require.NoError(t, err)
	assert.Equal(t, LevelSubvariant, r.Target.Level)
	assert.Equal(t, 1, r.Target.VariantIndex)
	assert.Equal(t, 1, r.Target.SubvariantIndex)
	assert.Equal(t, 1, r.Available)
	assert.Equal(t, 700.0, r.Price)
	assert.Equal(t, 750.0, r.MRP)
}

func TestProduct_Resolve_NotFound(t *testing.T) {
	tests := []struct {
		name         string
		variantID    string
		subvariantID string
	}{
		{name: "unknown variant", variantID: "v-red"},
		{name: "unknown subvariant", variantID: "v-white", subvariantID: "s-256"},
		{name: "subvariant of another variant", variantID: "v-black", subvariantID: "s-64"},
		{name: "subvariant without variant", subvariantID: "s-64"},
		{name: "root of a product with variants"},
		{name: "variant that has subvariants", variantID: "v-white"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTreeProduct()
			_, err := p.Resolve(tt.variantID, tt.subvariantID)
			assert.ErrorIs(t, err, ErrVariantNotFound)
		})
	}
}

func TestProduct_Resolve_Idempotent(t *testing.T) {
	p := newTreeProduct()

	first, err := p.Resolve("v-white", "s-64")
	require.NoError(t, err)
	second, err := p.Resolve("v-white", "s-64")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProduct_AdjustStock(t *testing.T) {
	p := newTreeProduct()
	r, err := p.Resolve("v-white", "s-64")
	require.NoError(t, err)

	require.NoError(t, p.AdjustStock(r.Target, -2))
	assert.Equal(t, 0, p.Variants[1].Subvariants[0].Quantity)
	// sibling and parent nodes are untouched
	assert.Equal(t, 1, p.Variants[1].Subvariants[1].Quantity)
	assert.Equal(t, 4, p.Variants[0].Quantity)

	err = p.AdjustStock(r.Target, -1)
	assert.ErrorIs(t, err, ErrNegativeStock)
	assert.Equal(t, 0, p.Variants[1].Subvariants[0].Quantity)

	require.NoError(t, p.AdjustStock(r.Target, 3))
	assert.Equal(t, 3, p.Variants[1].Subvariants[0].Quantity)
}

func TestProduct_AdjustStock_InvalidTarget(t *testing.T) {
	p := &Product{SKU: "P1", Quantity: 1}

	err := p.AdjustStock(StockTarget{Level: LevelVariant, VariantIndex: 0}, 1)
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestProduct_StockLeaves(t *testing.T) {
	leaves := newTreeProduct().StockLeaves()

	require.Len(t, leaves, 3)
	assert.Equal(t, "v-black", leaves[0].VariantID)
	assert.Empty(t, leaves[0].SubvariantID)
	assert.Equal(t, "s-64", leaves[1].SubvariantID)
	assert.Equal(t, "s-128", leaves[2].SubvariantID)
	assert.Equal(t, 1, leaves[2].Stock.Available)

	root := (&Product{SKU: "P1", Quantity: 7}).StockLeaves()
	require.Len(t, root, 1)
	assert.Equal(t, 7, root[0].Stock.Available)
}

func TestCart_Recalculate(t *testing.T) {
	cart := &Cart{}
	cart.PrependLine(LineItem{SKU: "A", Price: 10, Quantity: 2})
	cart.PrependLine(LineItem{SKU: "B", Price: 5, Quantity: 3})
	cart.Recalculate()

	assert.Equal(t, "B", cart.Lines[0].SKU)
	assert.Equal(t, 35.0, cart.GrandTotal)
	assert.Equal(t, 2, cart.ItemsCount)
	assert.Equal(t, 20.0, cart.Lines[1].Total)

	cart.RemoveLine(0)
	cart.Recalculate()
	assert.Equal(t, 20.0, cart.GrandTotal)
	assert.Equal(t, 1, cart.ItemsCount)

	snapshot := cart.SnapshotLines()
	cart.Reset()
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0.0, cart.GrandTotal)
	assert.Equal(t, 0, cart.ItemsCount)
	assert.Len(t, snapshot, 1)
}

func TestOrderStatus(t *testing.T) {
	assert.True(t, OrderStatusShipped.IsValid())
	assert.False(t, OrderStatus("LOST").IsValid())
	assert.True(t, OrderStatusCancelled.RestocksInventory())
	assert.True(t, OrderStatusReturnedDelivered.RestocksInventory())
	assert.False(t, OrderStatusReturnRequested.RestocksInventory())
}
