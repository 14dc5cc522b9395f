package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

// 書き込み結果。Stockは書き込み時点の在庫。
// ErrStockExceededのときItemは変更前の明細（無ければゼロ値）。
type CartWriteResult struct {
	Item  model.CartItem
	Stock int64
}

type CartItemRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	FindByID(ctx context.Context, userID int64, lineID int64) (model.CartItem, error)

	// 同じキーは数量加算。加算後が在庫を超えるならErrStockExceeded。
	AddOrMerge(ctx context.Context, key model.CartKey, addQty int64) (CartWriteResult, error)

	// 数量を置き換える。在庫を超えるならErrStockExceeded。
	SetQuantity(ctx context.Context, userID int64, lineID int64, qty int64) (CartWriteResult, error)

	Delete(ctx context.Context, userID int64, lineID int64) error
	ClearByUserID(ctx context.Context, userID int64) (int64, error)

	// 明細数と数量合計
	CountByUserID(ctx context.Context, userID int64) (lines int64, quantity int64, err error)
}
