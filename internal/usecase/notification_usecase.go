package usecase

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

// 注文イベントの通知先。配信そのものは外部。
type NotificationSink interface {
	NotifyOrderEvent(ctx context.Context, userID int64, orderNumber string, event model.NotificationType) error
}

// 通知をテーブルに記録するだけの実装。一覧と既読化もここで持つ。
type NotificationUsecase struct {
	notifications repo.NotificationRepository
	log           *zap.Logger
}

func NewNotificationUsecase(notifications repo.NotificationRepository, log *zap.Logger) *NotificationUsecase {
	return &NotificationUsecase{notifications: notifications, log: log}
}

func (u *NotificationUsecase) NotifyOrderEvent(ctx context.Context, userID int64, orderNumber string, event model.NotificationType) error {
	title, message := notificationText(orderNumber, event)
	if err := u.notifications.Create(ctx, model.Notification{
		UserID:      userID,
		Type:        event,
		Title:       title,
		Message:     message,
		OrderNumber: orderNumber,
	}); err != nil {
		return errors.Wrap(err, "record notification")
	}
	return nil
}

func (u *NotificationUsecase) List(ctx context.Context, auth AuthContext, limit int) ([]model.Notification, error) {
	if err := requireUser(auth); err != nil {
		return nil, err
	}
	if limit < 1 || limit > 100 {
		return nil, errValidation("invalid_limit", "invalid limit")
	}

	items, err := u.notifications.ListByUserID(ctx, auth.UserID, limit)
	if err != nil {
		return nil, internalError(u.log, "notification.list", err, zap.Int64("user_id", auth.UserID))
	}
	return items, nil
}

func (u *NotificationUsecase) MarkRead(ctx context.Context, auth AuthContext, id int64) error {
	if err := requireUser(auth); err != nil {
		return err
	}
	if id <= 0 {
		return errValidation("invalid_id", "invalid id")
	}

	err := u.notifications.MarkRead(ctx, auth.UserID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound("notification_not_found", "notification not found")
	}
	if err != nil {
		return internalError(u.log, "notification.mark_read", err, zap.Int64("user_id", auth.UserID))
	}
	return nil
}

func notificationText(orderNumber string, event model.NotificationType) (string, string) {
	switch event {
	case model.NotificationOrderCreated:
		return "Order placed", fmt.Sprintf("Your order %s has been placed.", orderNumber)
	case model.NotificationOrderCancelled:
		return "Order cancelled", fmt.Sprintf("Your order %s has been cancelled.", orderNumber)
	default:
		return "Order updated", fmt.Sprintf("The status of your order %s has changed.", orderNumber)
	}
}

// 通知の失敗は注文に影響させない
func notifyQuietly(ctx context.Context, sink NotificationSink, log *zap.Logger, o model.Order, event model.NotificationType) {
	if sink == nil {
		return
	}
	if err := sink.NotifyOrderEvent(ctx, o.UserID, o.OrderNumber, event); err != nil {
		log.Warn("notify order event failed",
			zap.Int64("order_id", o.ID),
			zap.String("order_number", o.OrderNumber),
			zap.String("event", string(event)),
			zap.Error(err))
	}
}
