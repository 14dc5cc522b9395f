package repository

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 区分+IDで1件取得。区分ごとのテーブル探索はしない。
func (r *ProductGormRepository) FindByRef(ctx context.Context, ref model.ProductRef) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Where("partition = ? AND id = ?", ref.Partition, ref.ID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, errors.Wrap(err, "find product")
	}
	return p, nil
}

// まとめて取得。見つからないものは結果に含まれない。
func (r *ProductGormRepository) FindByRefs(ctx context.Context, refs []model.ProductRef) ([]model.Product, error) {
	if len(refs) == 0 {
		return []model.Product{}, nil
	}

	pairs := make([][]interface{}, 0, len(refs))
	for _, ref := range refs {
		pairs = append(pairs, []interface{}{ref.Partition, ref.ID})
	}

	var products []model.Product
	if err := r.db.WithContext(ctx).
		Where("(partition, id) IN ?", pairs).
		Find(&products).Error; err != nil {
		return []model.Product{}, errors.Wrap(err, "find products")
	}
	return products, nil
}

// 公開商品のみ。区分が空なら全区分。
func (r *ProductGormRepository) ListActive(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Product{}).Where("is_active = ?", true)
	if q.Partition != "" {
		tx = tx.Where("partition = ?", q.Partition)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, errors.Wrap(err, "count products")
	}

	var products []model.Product
	offset := (q.Page - 1) * q.Limit
	if err := tx.
		Order("created_at desc").Order("partition asc").Order("id desc").
		Offset(offset).Limit(q.Limit).
		Find(&products).Error; err != nil {
		return []model.Product{}, 0, errors.Wrap(err, "list products")
	}
	return products, total, nil
}
