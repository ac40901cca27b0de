package model

import (
	"time"
)

// LineItem is one sku+variant+subvariant entry of a cart or an order.
type LineItem struct {
	SKU          string    `json:"sku"`                    // 상품 SKU
	VariantID    string    `json:"variantId,omitempty"`    // 옵션 ID
	SubvariantID string    `json:"subvariantId,omitempty"` // 서브 옵션 ID
	Price        float64   `json:"price"`                  // 담을 당시 판매가
	MRP          float64   `json:"mrp"`                    // 담을 당시 정가
	Quantity     int       `json:"quantity"`               // 수량
	Total        float64   `json:"total"`                  // price × quantity
	CreatedAt    time.Time `json:"createdAt"`              // 담은 시각
}

func (l LineItem) Matches(sku, variantID, subvariantID string) bool {
	return l.SKU == sku && l.VariantID == variantID && l.SubvariantID == subvariantID
}

func (l *LineItem) SetQuantity(quantity int) {
	l.Quantity = quantity
	l.Total = l.Price * float64(quantity)
}

type Cart struct {
	ID         uint       `gorm:"primarykey" json:"id"`                                       // 장바구니 ID
	UserID     uint       `gorm:"uniqueIndex;not null" json:"userId"`                         // 사용자 ID (사용자당 1개)
	Lines      []LineItem `gorm:"column:items_arr;type:text;serializer:json" json:"itemsArr"` // 담긴 항목 (최근 항목이 앞)
	GrandTotal float64    `gorm:"not null" json:"grandTotal"`                                 // Σ total
	ItemsCount int        `gorm:"not null" json:"itemsCount"`                                 // len(itemsArr)
	CreatedAt  time.Time  `json:"createdAt"`                                                  // 생성 시각
	UpdatedAt  time.Time  `json:"updatedAt"`                                                  // 수정 시각
}

func (Cart) TableName() string {
	return "carts"
}

// FindLine returns the index of the line matching the triple, or -1.
func (c *Cart) FindLine(sku, variantID, subvariantID string) int {
	for i := range c.Lines {
		if c.Lines[i].Matches(sku, variantID, subvariantID) {
			return i
		}
	}
	return -1
}

// PrependLine puts a new line at the front of the cart.
func (c *Cart) PrependLine(line LineItem) {
	c.Lines = append([]LineItem{line}, c.Lines...)
}

func (c *Cart) RemoveLine(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// Recalculate derives every total from the current line set.
func (c *Cart) Recalculate() {
	if c.Lines == nil {
		c.Lines = []LineItem{}
	}
	var grand float64
	for i := range c.Lines {
		c.Lines[i].Total = c.Lines[i].Price * float64(c.Lines[i].Quantity)
		grand += c.Lines[i].Total
	}
	c.GrandTotal = grand
	c.ItemsCount = len(c.Lines)
}

// Reset empties the cart while keeping the document.
func (c *Cart) Reset() {
	c.Lines = []LineItem{}
	c.Recalculate()
}

// SnapshotLines returns a deep copy of the lines.
func (c *Cart) SnapshotLines() []LineItem {
	lines := make([]LineItem, len(c.Lines))
	copy(lines, c.Lines)
	return lines
}
