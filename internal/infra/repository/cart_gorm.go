package repository

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

// ユーザーの明細一覧（古い順）
func (r *CartItemGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, errors.Wrap(err, "list cart items")
	}
	return items, nil
}

// 明細を取得。他人の明細はErrNotFound。
func (r *CartItemGormRepository) FindByID(ctx context.Context, userID int64, lineID int64) (model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", lineID, userID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, errors.Wrap(err, "find cart item")
	}
	return item, nil
}

// 同一キーは数量加算。
// 同時に同じキーで新規作成された場合は一意制約で弾かれるので、1回だけ加算としてやり直す。
func (r *CartItemGormRepository) AddOrMerge(ctx context.Context, key model.CartKey, addQty int64) (repo.CartWriteResult, error) {
	if addQty <= 0 {
		return repo.CartWriteResult{}, errors.New("invalid quantity")
	}

	res, err := r.addOrMerge(ctx, key, addQty)
	if isUniqueViolation(err) {
		return r.addOrMerge(ctx, key, addQty)
	}
	return res, err
}

func (r *CartItemGormRepository) addOrMerge(ctx context.Context, key model.CartKey, addQty int64) (repo.CartWriteResult, error) {
	var out repo.CartWriteResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//在庫は読むだけ（確保しない）
		p, err := lockProductShared(tx, key.Product)
		if err != nil {
			return err
		}
		out.Stock = p.StockQuantity

		var item model.CartItem
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND product_id = ? AND partition = ? AND color = ? AND size = ?",
				key.UserID, key.Product.ID, key.Product.Partition, key.Color, key.Size).
			First(&item).Error

		if findErr == nil {
			out.Item = item

			// 同一商品はプラス
			newQty := item.Quantity + addQty
			if newQty > p.StockQuantity {
				return repo.ErrStockExceeded
			}
			res := tx.Model(&item).Update("quantity", newQty)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
			item.Quantity = newQty
			out.Item = item
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		//無い場合は新規作成
		if addQty > p.StockQuantity {
			return repo.ErrStockExceeded
		}
		newItem := model.CartItem{
			UserID:    key.UserID,
			ProductID: key.Product.ID,
			Partition: key.Product.Partition,
			Color:     key.Color,
			Size:      key.Size,
			Quantity:  addQty,
		}
		if err := tx.Create(&newItem).Error; err != nil {
			return err
		}
		out.Item = newItem
		return nil
	})
	return out, err
}

// 数量を置き換える。在庫チェックは更新文の条件に含める。
func (r *CartItemGormRepository) SetQuantity(ctx context.Context, userID int64, lineID int64, qty int64) (repo.CartWriteResult, error) {
	if qty <= 0 {
		return repo.CartWriteResult{}, errors.New("invalid quantity")
	}

	var out repo.CartWriteResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.CartItem
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", lineID, userID).
			First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repo.ErrNotFound
		}
		if err != nil {
			return err
		}
		out.Item = item

		p, err := lockProductShared(tx, item.Ref())
		if err != nil {
			return err
		}
		out.Stock = p.StockQuantity

		res := tx.Model(&model.CartItem{}).
			Where("id = ? AND user_id = ?", lineID, userID).
			Where("? <= (SELECT stock_quantity FROM products WHERE products.partition = cart_items.partition AND products.id = cart_items.product_id)", qty).
			Update("quantity", qty)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrStockExceeded
		}

		item.Quantity = qty
		out.Item = item
		return nil
	})
	return out, err
}

// 明細を削除
func (r *CartItemGormRepository) Delete(ctx context.Context, userID int64, lineID int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", lineID, userID).
		Delete(&model.CartItem{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete cart item")
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ユーザーの明細を全削除して件数を返す
func (r *CartItemGormRepository) ClearByUserID(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.CartItem{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "clear cart")
	}
	return res.RowsAffected, nil
}

func (r *CartItemGormRepository) CountByUserID(ctx context.Context, userID int64) (int64, int64, error) {
	var row struct {
		LineCount     int64
		TotalQuantity int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Select("COUNT(*) AS line_count, COALESCE(SUM(quantity), 0) AS total_quantity").
		Where("user_id = ?", userID).
		Scan(&row).Error; err != nil {
		return 0, 0, errors.Wrap(err, "count cart")
	}
	return row.LineCount, row.TotalQuantity, nil
}

// 商品行を共有ロックで読む（在庫の読み取り中に更新されないように）
func lockProductShared(tx *gorm.DB, ref model.ProductRef) (model.Product, error) {
	var p model.Product
	err := tx.
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("partition = ? AND id = ?", ref.Partition, ref.ID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}
