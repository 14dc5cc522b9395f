package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

// 明細はスナップショットなので更新系は持たない
type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
}
