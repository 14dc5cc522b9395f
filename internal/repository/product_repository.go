package repository

import (
	"context"

	"github.com/go-faster/errors"

	"ecshop/internal/domain/model"
)

var (
	ErrNotFound = errors.New("not found")

	// 一意制約違反
	ErrConflict = errors.New("conflict")

	// 在庫を超える数量
	ErrStockExceeded = errors.New("stock exceeded")
)

// 一覧検索
type ProductListQuery struct {
	Partition model.Partition // 空なら全区分
	Page      int
	Limit     int
}

// 商品カタログ（読み取り専用）。区分の振り分けは実装側で行う。
type ProductRepository interface {
	FindByRef(ctx context.Context, ref model.ProductRef) (model.Product, error)
	FindByRefs(ctx context.Context, refs []model.ProductRef) ([]model.Product, error)
	ListActive(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
}
