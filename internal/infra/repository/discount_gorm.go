package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type DiscountGormRepository struct {
	db *gorm.DB
}

func NewDiscountGormRepository(db *gorm.DB) *DiscountGormRepository {
	return &DiscountGormRepository{db: db}
}

func (r *DiscountGormRepository) FindByCode(ctx context.Context, code string) (model.DiscountCode, error) {
	var d model.DiscountCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DiscountCode{}, repo.ErrNotFound
	}
	if err != nil {
		return model.DiscountCode{}, errors.Wrap(err, "find discount code")
	}
	return d, nil
}

// 判定と加算を1文で行う。最後の1枠を同時に取り合っても片方しか更新できない。
func (r *DiscountGormRepository) IncrementUsage(ctx context.Context, discountID int64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.DiscountCode{}).
		Where("id = ? AND is_active = ?", discountID, true).
		Where("starts_at <= ? AND expires_at >= ?", now, now).
		Where("(usage_limit IS NULL OR used_count < usage_limit)").
		Updates(map[string]interface{}{
			"used_count": gorm.Expr("used_count + ?", 1),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "increment discount usage")
	}
	return res.RowsAffected > 0, nil
}
