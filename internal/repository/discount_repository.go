package repository

import (
	"context"
	"time"

	"ecshop/internal/domain/model"
)

type DiscountRepository interface {
	// codeは大文字化済みで渡す
	FindByCode(ctx context.Context, code string) (model.DiscountCode, error)

	// 有効・期間内・上限未満のときだけused_countを+1する。
	// 条件を満たさず更新できなければfalse。
	IncrementUsage(ctx context.Context, discountID int64, now time.Time) (bool, error)
}
