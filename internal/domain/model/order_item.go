package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。作成時点の商品名・単価のスナップショットで、後から更新しない。
type OrderItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64           `gorm:"not null;index" json:"order_id"`
	ProductID   int64           `gorm:"not null;index:ix_order_items_product,priority:1" json:"product_id"`
	Partition   Partition       `gorm:"type:varchar(16);not null;index:ix_order_items_product,priority:2" json:"partition"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	Size        string          `gorm:"type:varchar(32)" json:"size"`
	Color       string          `gorm:"type:varchar(64)" json:"color"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (i OrderItem) Ref() ProductRef {
	return ProductRef{ID: i.ProductID, Partition: i.Partition}
}
