package repository

import (
	"context"
	"time"

	"ecshop/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status model.OrderStatus
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)

	// order.IDが埋まる。order_number重複はErrConflict。
	Create(ctx context.Context, order *model.Order) error

	// 現在のステータスがfromのときだけtoにする。paymentが空なら支払い状態は変えない。
	UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, payment model.PaymentStatus) (bool, error)

	// 明細ごと物理削除
	Delete(ctx context.Context, orderID int64) error

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
