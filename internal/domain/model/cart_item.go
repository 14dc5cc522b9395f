package model

import "time"

// カートの明細
// (user, product, partition, color, size) が一意。同じキーの追加は数量を加算する。
// 価格は持たない（表示時に商品から引く）。
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:ux_cart_items_key,priority:1" json:"user_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:ux_cart_items_key,priority:2" json:"product_id"`
	Partition Partition `gorm:"type:varchar(16);not null;uniqueIndex:ux_cart_items_key,priority:3" json:"partition"`
	Color     string    `gorm:"type:varchar(64);not null;default:'';uniqueIndex:ux_cart_items_key,priority:4" json:"color"`
	Size      string    `gorm:"type:varchar(32);not null;default:'';uniqueIndex:ux_cart_items_key,priority:5" json:"size"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (c CartItem) Ref() ProductRef {
	return ProductRef{ID: c.ProductID, Partition: c.Partition}
}

// 明細の一意キー
type CartKey struct {
	UserID  int64
	Product ProductRef
	Color   string
	Size    string
}
