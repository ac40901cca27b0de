package model

import (
	"errors"
	"fmt"
)

var (
	ErrVariantNotFound = errors.New("variant not found")
	ErrNegativeStock   = errors.New("stock cannot go below zero")
)

// StockLevel identifies which node of the product tree carries stock for a line.
type StockLevel int

const (
	LevelRoot StockLevel = iota
	LevelVariant
	LevelSubvariant
)

func (l StockLevel) String() string {
	switch l {
	case LevelVariant:
		return "variant"
	case LevelSubvariant:
		return "subvariant"
	default:
		return "root"
	}
}

// StockTarget points at exactly one stock-bearing node inside a Product.
// VariantIndex is meaningful for LevelVariant and LevelSubvariant,
// SubvariantIndex only for LevelSubvariant.
type StockTarget struct {
	Level           StockLevel
	VariantIndex    int
	SubvariantIndex int
}

// ResolvedStock is the authoritative stock and price for a line reference.
type ResolvedStock struct {
	Target    StockTarget `json:"-"`
	Level     string      `json:"level"`
	Available int         `json:"available"`
	Price     float64     `json:"price"`
	MRP       float64     `json:"mrp"`
}

// Resolve locates the stock node for (variantID, subvariantID).
//
// A product with variants must be addressed through a variant, and a variant
// with subvariants must be addressed through a subvariant; any other
// combination does not name a purchasable node and yields ErrVariantNotFound.
// In particular Resolve("", "") on a product that has variants does not fall
// back to the root price and quantity; the root fields only hold stock for
// products without variants.
func (p *Product) Resolve(variantID, subvariantID string) (ResolvedStock, error) {
	if variantID == "" {
		if subvariantID != "" || len(p.Variants) > 0 {
			return ResolvedStock{}, fmt.Errorf("%w: sku %s requires a variant", ErrVariantNotFound, p.SKU)
		}
		return p.resolved(StockTarget{Level: LevelRoot}), nil
	}

	vi := p.variantIndex(variantID)
	if vi < 0 {
		return ResolvedStock{}, fmt.Errorf("%w: variant %s on sku %s", ErrVariantNotFound, variantID, p.SKU)
	}
	variant := &p.Variants[vi]

	if subvariantID == "" {
		if len(variant.Subvariants) > 0 {
			return ResolvedStock{}, fmt.Errorf("%w: variant %s on sku %s requires a subvariant", ErrVariantNotFound, variantID, p.SKU)
		}
		return p.resolved(StockTarget{Level: LevelVariant, VariantIndex: vi}), nil
	}

	for si := range variant.Subvariants {
		if variant.Subvariants[si].ID == subvariantID {
			return p.resolved(StockTarget{Level: LevelSubvariant, VariantIndex: vi, SubvariantIndex: si}), nil
		}
	}
	return ResolvedStock{}, fmt.Errorf("%w: subvariant %s on sku %s", ErrVariantNotFound, subvariantID, p.SKU)
}

// AdjustStock adds delta to the node named by target. The node is left
// untouched when the result would be negative.
func (p *Product) AdjustStock(target StockTarget, delta int) error {
	qty, err := p.quantityRef(target)
	if err != nil {
		return err
	}
	if *qty+delta < 0 {
		return fmt.Errorf("%w: sku %s has %d, delta %d", ErrNegativeStock, p.SKU, *qty, delta)
	}
	*qty += delta
	return nil
}

// StockLeaves lists every purchasable node with its resolved values.
func (p *Product) StockLeaves() []StockLeaf {
	if len(p.Variants) == 0 {
		return []StockLeaf{{Stock: p.resolved(StockTarget{Level: LevelRoot})}}
	}
	var leaves []StockLeaf
	for vi, v := range p.Variants {
		if len(v.Subvariants) == 0 {
			leaves = append(leaves, StockLeaf{
				VariantID:    v.ID,
				VariantTitle: v.Title,
				Stock:        p.resolved(StockTarget{Level: LevelVariant, VariantIndex: vi}),
			})
			continue
		}
		for si, s := range v.Subvariants {
			leaves = append(leaves, StockLeaf{
				VariantID:       v.ID,
				VariantTitle:    v.Title,
				SubvariantID:    s.ID,
				SubvariantTitle: s.Title,
				Stock:           p.resolved(StockTarget{Level: LevelSubvariant, VariantIndex: vi, SubvariantIndex: si}),
			})
		}
	}
	return leaves
}

// StockLeaf is one purchasable node of a product.
type StockLeaf struct {
	VariantID       string
	VariantTitle    string
	SubvariantID    string
	SubvariantTitle string
	Stock           ResolvedStock
}

func (p *Product) variantIndex(id string) int {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *Product) resolved(t StockTarget) ResolvedStock {
	r := ResolvedStock{Target: t, Level: t.Level.String()}
	switch t.Level {
	case LevelSubvariant:
		s := p.Variants[t.VariantIndex].Subvariants[t.SubvariantIndex]
		r.Available, r.Price, r.MRP = s.Quantity, s.Price, s.MRP
	case LevelVariant:
		v := p.Variants[t.VariantIndex]
		r.Available, r.Price, r.MRP = v.Quantity, v.Price, v.MRP
	default:
		r.Available, r.Price, r.MRP = p.Quantity, p.Price, p.MRP
	}
	return r
}

func (p *Product) quantityRef(t StockTarget) (*int, error) {
	switch t.Level {
	case LevelRoot:
		return &p.Quantity, nil
	case LevelVariant:
		if t.VariantIndex < 0 || t.VariantIndex >= len(p.Variants) {
			return nil, ErrVariantNotFound
		}
		return &p.Variants[t.VariantIndex].Quantity, nil
	case LevelSubvariant:
		if t.VariantIndex < 0 || t.VariantIndex >= len(p.Variants) {
			return nil, ErrVariantNotFound
		}
		subs := p.Variants[t.VariantIndex].Subvariants
		if t.SubvariantIndex < 0 || t.SubvariantIndex >= len(subs) {
			return nil, ErrVariantNotFound
		}
		return &subs[t.SubvariantIndex].Quantity, nil
	}
	return nil, ErrVariantNotFound
}
