package model

import (
	"time"
)

type Subvariant struct {
	ID       string  `json:"id"`       // 서브 옵션 ID (uuid)
	Title    string  `json:"title"`    // 표시명 (예: "128GB")
	Price    float64 `json:"price"`    // 판매가
	MRP      float64 `json:"mrp"`      // 정가
	Quantity int     `json:"quantity"` // 재고 수량
}

type Variant struct {
	ID          string       `json:"id"`                    // 옵션 ID (uuid)
	Title       string       `json:"title"`                 // 표시명 (예: "Black")
	Price       float64      `json:"price"`                 // 판매가 (서브 옵션이 없을 때만 사용)
	MRP         float64      `json:"mrp"`                   // 정가 (서브 옵션이 없을 때만 사용)
	Quantity    int          `json:"quantity"`              // 재고 수량 (서브 옵션이 없을 때만 사용)
	Subvariants []Subvariant `json:"subvariants,omitempty"` // 서브 옵션 목록
}

type Product struct {
	ID               uint      `gorm:"primarykey" json:"id"`                      // 상품 ID
	SKU              string    `gorm:"uniqueIndex;size:64;not null" json:"sku"`   // 재고 관리 코드
	Name             string    `gorm:"not null" json:"name"`                      // 상품명
	Description      string    `gorm:"type:text" json:"description"`              // 상품 설명
	Price            float64   `gorm:"not null" json:"price"`                     // 판매가 (옵션이 없을 때 사용)
	MRP              float64   `gorm:"column:mrp;not null" json:"mrp"`            // 정가 (옵션이 없을 때 사용)
	Quantity         int       `gorm:"not null" json:"quantity"`                  // 재고 수량 (옵션이 없을 때 사용)
	MaxItemsPerOrder int       `gorm:"not null" json:"maxItemsPerOrder"`          // 주문당 최대 수량
	Variants         []Variant `gorm:"type:text;serializer:json" json:"variants"` // 옵션 목록 (문서 내장)
	IsDeleted        bool      `gorm:"index;not null" json:"isDeleted"`           // 소프트 삭제 여부
	Version          int       `gorm:"not null" json:"-"`                         // 낙관적 동시성 버전
	CreatedAt        time.Time `json:"createdAt"`                                 // 생성 시각
	UpdatedAt        time.Time `json:"updatedAt"`                                 // 수정 시각
}

func (Product) TableName() string {
	return "products"
}

// Orderable reports whether the product can be placed in a cart or order.
func (p *Product) Orderable() bool {
	return !p.IsDeleted
}
