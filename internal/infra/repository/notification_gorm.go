package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

type NotificationGormRepository struct {
	db *gorm.DB
}

func NewNotificationGormRepository(db *gorm.DB) *NotificationGormRepository {
	return &NotificationGormRepository{db: db}
}

func (r *NotificationGormRepository) Create(ctx context.Context, n model.Notification) error {
	if err := r.db.WithContext(ctx).Create(&n).Error; err != nil {
		return errors.Wrap(err, "create notification")
	}
	return nil
}

// 新しい順
func (r *NotificationGormRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var items []model.Notification
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Limit(limit).
		Find(&items).Error; err != nil {
		return []model.Notification{}, errors.Wrap(err, "list notifications")
	}
	return items, nil
}

func (r *NotificationGormRepository) MarkRead(ctx context.Context, userID int64, notificationID int64) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "mark notification read")
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
