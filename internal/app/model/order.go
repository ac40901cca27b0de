package model

import (
	"time"
)

type OrderStatus string // 주문 상태 코드

const (
	OrderStatusInitiated         OrderStatus = "INITIATED"          // 주문 생성
	OrderStatusConfirmed         OrderStatus = "CONFIRMED"          // 주문 확정
	OrderStatusShipped           OrderStatus = "SHIPPED"            // 배송 중
	OrderStatusDelivered         OrderStatus = "DELIVERED"          // 배송 완료
	OrderStatusCancelled         OrderStatus = "CANCELLED"          // 주문 취소 (remark 필수)
	OrderStatusReturnRequested   OrderStatus = "RETURN_REQUESTED"   // 반품 요청
	OrderStatusReturnedDelivered OrderStatus = "RETURNED_DELIVERED" // 반품 입고 완료
)

var OrderStatuses = []OrderStatus{
	OrderStatusInitiated,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturnRequested,
	OrderStatusReturnedDelivered,
}

func (s OrderStatus) IsValid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// RestocksInventory reports whether entering this status puts the order's
// quantities back on the shelf.
func (s OrderStatus) RestocksInventory() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturnedDelivered
}

// IsTerminal reports whether an order in this status can no longer change.
func (s OrderStatus) IsTerminal() bool {
	return s.RestocksInventory()
}

type Order struct {
	ID         uint        `gorm:"primarykey" json:"id"`                                       // 주문 ID
	UserID     uint        `gorm:"not null;index" json:"userId"`                               // 주문자 ID
	AddressID  *uint       `gorm:"index" json:"addressId,omitempty"`                           // 배송지 ID
	Items      []LineItem  `gorm:"column:items_arr;type:text;serializer:json" json:"itemsArr"` // 주문 시점 장바구니 사본
	GrandTotal float64     `gorm:"not null" json:"grandTotal"`                                 // 총 금액
	ItemsCount int         `gorm:"not null" json:"itemsCount"`                                 // 항목 수
	Status     OrderStatus `gorm:"type:varchar(32);not null;index" json:"status"`              // 주문 상태
	Remark     string      `gorm:"type:text" json:"remark,omitempty"`                          // 상태 변경 사유
	CreatedAt  time.Time   `json:"createdAt"`                                                  // 생성 시각
	UpdatedAt  time.Time   `json:"updatedAt"`                                                  // 수정 시각
}

func (Order) TableName() string {
	return "orders"
}
