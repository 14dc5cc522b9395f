package repository

import (
	"context"

	"ecshop/internal/domain/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, n model.Notification) error
	ListByUserID(ctx context.Context, userID int64, limit int) ([]model.Notification, error)

	// 他人の通知はErrNotFound
	MarkRead(ctx context.Context, userID int64, notificationID int64) error
}
