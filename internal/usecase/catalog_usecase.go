package usecase

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

// 商品一覧のキャッシュ。失敗してもDBから返す。
type ProductListCache interface {
	Get(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, bool, error)
	Set(ctx context.Context, q repo.ProductListQuery, items []model.Product, total int64) error
}

type CatalogUsecase struct {
	products repo.ProductRepository
	cache    ProductListCache
	log      *zap.Logger
}

// DI
func NewCatalogUsecase(products repo.ProductRepository, cache ProductListCache, log *zap.Logger) *CatalogUsecase {
	return &CatalogUsecase{products: products, cache: cache, log: log}
}

// GET /productsの入力
type ListProductsInput struct {
	Partition string
	Page      int
	Limit     int
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *CatalogUsecase) List(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, errValidation("invalid_page", "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, errValidation("invalid_limit", "invalid limit")
	}

	q := repo.ProductListQuery{Page: in.Page, Limit: in.Limit}
	if p := strings.ToLower(strings.TrimSpace(in.Partition)); p != "" {
		q.Partition = model.Partition(p)
		if !q.Partition.Valid() {
			return ProductListOutput{}, errValidation("invalid_partition", "invalid partition")
		}
	}

	items, total, hit, err := u.cache.Get(ctx, q)
	if err != nil {
		u.log.Warn("product cache get failed", zap.Error(err))
	}
	if !hit {
		items, total, err = u.products.ListActive(ctx, q)
		if err != nil {
			return ProductListOutput{}, internalError(u.log, "catalog.list", err)
		}
		if err := u.cache.Set(ctx, q, items, total); err != nil {
			u.log.Warn("product cache set failed", zap.Error(err))
		}
	}

	return ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// 公開向けの商品詳細。非公開は存在しない扱い。
func (u *CatalogUsecase) Get(ctx context.Context, ref model.ProductRef) (model.Product, error) {
	p, err := u.Lookup(ctx, ref)
	if ae, ok := AsAppError(err); ok && ae.Reason == "product_inactive" {
		return model.Product{}, errProductNotFound(ref)
	}
	return p, err
}

// 商品を引いて、公開中かを確かめる
func (u *CatalogUsecase) Lookup(ctx context.Context, ref model.ProductRef) (model.Product, error) {
	return lookupActiveProduct(ctx, u.products, u.log, ref)
}

// Tx内からも使う
func lookupActiveProduct(ctx context.Context, products repo.ProductRepository, log *zap.Logger, ref model.ProductRef) (model.Product, error) {
	if !ref.Valid() {
		return model.Product{}, errValidation("invalid_product_ref", "invalid product id or partition")
	}

	p, err := products.FindByRef(ctx, ref)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, errProductNotFound(ref)
	}
	if err != nil {
		return model.Product{}, internalError(log, "catalog.lookup", err,
			zap.Int64("product_id", ref.ID), zap.String("partition", string(ref.Partition)))
	}
	if !p.IsActive {
		return model.Product{}, errValidation("product_inactive", "product is not available").
			With("product_id", ref.ID).
			With("partition", ref.Partition)
	}
	return p, nil
}

func errProductNotFound(ref model.ProductRef) *AppError {
	return errNotFound("product_not_found", "product not found").
		With("product_id", ref.ID).
		With("partition", ref.Partition)
}
