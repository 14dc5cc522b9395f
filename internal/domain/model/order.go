package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// 通常の遷移表。ここに無い遷移は受け付けない。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// 入力文字列をステータスに変換する。confirmedはprocessingの別名。
func ParseOrderStatus(s string) (OrderStatus, bool) {
	v := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if v == "confirmed" {
		return OrderStatusProcessing, true
	}
	switch v {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return v, true
	}
	return "", false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// 代引き
const PaymentMethodCOD = "cod"

type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber     string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_number"`
	UserID          int64           `gorm:"not null;index" json:"user_id"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	DiscountCode    string          `gorm:"type:varchar(50)" json:"discount_code,omitempty"`
	DiscountAmount  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	ShippingCost    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shipping_cost"`
	TaxAmount       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"tax_amount"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	PaymentMethod   string          `gorm:"type:varchar(32);not null" json:"payment_method"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null" json:"payment_status"`
	PaymentIntentID string          `gorm:"type:varchar(255)" json:"payment_intent_id,omitempty"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// subtotal - discount + shipping + tax
func ComputeTotal(subtotal, discount, shipping, tax decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount).Add(shipping).Add(tax)
}
