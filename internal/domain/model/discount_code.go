package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// 割引コード。codeは大文字で保存する。
type DiscountCode struct {
	ID                    int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	Code                  string              `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	Type                  DiscountType        `gorm:"type:varchar(20);not null" json:"type"`
	Value                 decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"value"`
	MinimumAmount         decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"minimum_amount"`
	UsageLimit            *int64              `json:"usage_limit"`
	UsedCount             int64               `gorm:"not null;default:0" json:"used_count"`
	StartsAt              time.Time           `gorm:"not null" json:"starts_at"`
	ExpiresAt             time.Time           `gorm:"not null" json:"expires_at"`
	IsActive              bool                `gorm:"not null;default:true" json:"is_active"`
	ApplicableProducts    []ProductRef        `gorm:"type:text;serializer:json" json:"applicable_products"`
	ApplicableCategoryIDs []int64             `gorm:"type:text;serializer:json" json:"applicable_category_ids"`
	CreatedAt             time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 有効・期間内・使用回数に余裕がある
func (d DiscountCode) IsValid(now time.Time) bool {
	if !d.IsActive {
		return false
	}
	if now.Before(d.StartsAt) || now.After(d.ExpiresAt) {
		return false
	}
	return !d.LimitReached()
}

func (d DiscountCode) LimitReached() bool {
	return d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit
}
