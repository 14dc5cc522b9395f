package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 商品の区分（旧システムではテーブルが分かれていた）
type Partition string

const (
	PartitionMen   Partition = "men"
	PartitionWomen Partition = "women"
	PartitionKids  Partition = "kids"
)

// 許可された区分か
func (p Partition) Valid() bool {
	switch p {
	case PartitionMen, PartitionWomen, PartitionKids:
		return true
	default:
		return false
	}
}

func Partitions() []Partition {
	return []Partition{PartitionMen, PartitionWomen, PartitionKids}
}

// 商品の参照。IDは区分の中でだけ一意なので必ず区分と一緒に持ち回る。
type ProductRef struct {
	ID        int64     `json:"id"`
	Partition Partition `json:"partition"`
}

func (r ProductRef) Valid() bool {
	return r.ID > 0 && r.Partition.Valid()
}

// 区分は小文字・前後空白なしに揃える
func (r ProductRef) Normalize() ProductRef {
	return ProductRef{ID: r.ID, Partition: Partition(strings.ToLower(strings.TrimSpace(string(r.Partition))))}
}

type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Partition     Partition       `gorm:"primaryKey;type:varchar(16)" json:"partition"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	StockQuantity int64           `gorm:"not null;default:0" json:"stock_quantity"`
	CategoryID    int64           `gorm:"not null;default:0;index" json:"category_id"`
	ImageURL      string          `gorm:"type:varchar(512)" json:"image_url"`
	IsActive      bool            `gorm:"not null;default:false;index" json:"is_active"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (p Product) Ref() ProductRef {
	return ProductRef{ID: p.ID, Partition: p.Partition}
}
