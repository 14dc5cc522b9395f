package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

const maxReasonLen = 255

// 遷移表の外側の操作（強制変更・物理削除）。全部監査ログに残す。
type AdminOrderUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
	now func() time.Time
}

func NewAdminOrderUsecase(tx repo.TransactionManager, log *zap.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, log: log, now: time.Now}
}

type AdminListOrdersInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OverrideStatusInput struct {
	Status string
	Reason string
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, auth AuthContext, in AdminListOrdersInput) (OrderListOutput, error) {
	if err := requireAdmin(auth); err != nil {
		return OrderListOutput{}, err
	}
	// page/limitの最低限チェック
	if in.Page < 1 {
		return OrderListOutput{}, errValidation("invalid_page", "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return OrderListOutput{}, errValidation("invalid_limit", "invalid limit")
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return OrderListOutput{}, errValidation("invalid_range", "from must be before to")
	}

	f := repo.AdminOrderListFilter{Page: in.Page, Limit: in.Limit, UserID: in.UserID, From: in.From, To: in.To}
	if strings.TrimSpace(in.Status) != "" {
		s, ok := model.ParseOrderStatus(in.Status)
		if !ok {
			return OrderListOutput{}, errValidation("invalid_status", "invalid status").With("status", in.Status)
		}
		f.Status = s
	}

	var out OrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return internalError(u.log, "admin_order.list", err)
		}
		out = OrderListOutput{Items: orders, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, txError(u.log, "admin_order.list", err)
	}
	return out, nil
}

// 遷移表を無視してステータスを変える。理由は必須。
func (u *AdminOrderUsecase) OverrideStatus(ctx context.Context, auth AuthContext, orderID int64, in OverrideStatusInput) (model.Order, error) {
	if err := requireAdmin(auth); err != nil {
		return model.Order{}, err
	}
	if orderID <= 0 {
		return model.Order{}, errValidation("invalid_id", "invalid id")
	}
	next, ok := model.ParseOrderStatus(in.Status)
	if !ok {
		return model.Order{}, errValidation("invalid_status", "invalid status").With("status", in.Status)
	}
	reason, err := requireReason(in.Reason)
	if err != nil {
		return model.Order{}, err
	}

	var out model.Order
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errOrderNotFound()
		}
		if err != nil {
			return internalError(u.log, "admin_order.override", err, zap.Int64("order_id", orderID))
		}

		// すでに同じなら何もしない
		if o.Status == next {
			out = o
			return nil
		}

		payment := paymentAfter(o, next)
		updated, err := r.Orders().UpdateStatus(ctx, orderID, o.Status, next, payment)
		if err != nil {
			return internalError(u.log, "admin_order.override", err, zap.Int64("order_id", orderID))
		}
		if !updated {
			return NewAppError(KindConflict, "concurrent_update", "order was modified concurrently")
		}

		before := o
		o.Status = next
		if payment != "" {
			o.PaymentStatus = payment
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  auth.UserID,
			Action:       model.AuditActionOverrideOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   orderStateJSON(before),
			AfterJSON:    orderStateJSON(o),
			Reason:       reason,
			CreatedAt:    u.now(),
		}); err != nil {
			return internalError(u.log, "admin_order.override.audit", err, zap.Int64("order_id", orderID))
		}

		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, txError(u.log, "admin_order.override", err, zap.Int64("order_id", orderID))
	}

	u.log.Info("order status overridden",
		zap.Int64("order_id", orderID), zap.Int64("actor_user_id", auth.UserID), zap.String("status", string(next)))
	return out, nil
}

// 注文を明細ごと物理削除する
func (u *AdminOrderUsecase) Purge(ctx context.Context, auth AuthContext, orderID int64, reason string) error {
	if err := requireAdmin(auth); err != nil {
		return err
	}
	if orderID <= 0 {
		return errValidation("invalid_id", "invalid id")
	}
	reason, err := requireReason(reason)
	if err != nil {
		return err
	}

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errOrderNotFound()
		}
		if err != nil {
			return internalError(u.log, "admin_order.purge", err, zap.Int64("order_id", orderID))
		}

		if err := r.Orders().Delete(ctx, orderID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return errOrderNotFound()
			}
			return internalError(u.log, "admin_order.purge", err, zap.Int64("order_id", orderID))
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  auth.UserID,
			Action:       model.AuditActionPurgeOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   orderStateJSON(o),
			Reason:       reason,
			CreatedAt:    u.now(),
		}); err != nil {
			return internalError(u.log, "admin_order.purge.audit", err, zap.Int64("order_id", orderID))
		}
		return nil
	})
	if err != nil {
		return txError(u.log, "admin_order.purge", err, zap.Int64("order_id", orderID))
	}

	u.log.Info("order purged", zap.Int64("order_id", orderID), zap.Int64("actor_user_id", auth.UserID))
	return nil
}

type AuditTrailInput struct {
	Limit  int
	Offset int
}

// 注文の監査ログ（新しい順）。削除済みの注文でも引ける。
func (u *AdminOrderUsecase) AuditTrail(ctx context.Context, auth AuthContext, orderID int64, in AuditTrailInput) ([]model.AuditLog, error) {
	if err := requireAdmin(auth); err != nil {
		return nil, err
	}
	if orderID <= 0 {
		return nil, errValidation("invalid_id", "invalid id")
	}
	if in.Limit < 1 || in.Limit > 200 {
		return nil, errValidation("invalid_limit", "invalid limit")
	}
	if in.Offset < 0 {
		return nil, errValidation("invalid_offset", "invalid offset")
	}

	var out []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		logs, err := r.AuditLogs().List(ctx, repo.AuditLogFilter{
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			Limit:        in.Limit,
			Offset:       in.Offset,
		})
		if err != nil {
			return internalError(u.log, "admin_order.audit_trail", err, zap.Int64("order_id", orderID))
		}
		out = logs
		return nil
	})
	if err != nil {
		return nil, txError(u.log, "admin_order.audit_trail", err, zap.Int64("order_id", orderID))
	}
	if out == nil {
		out = []model.AuditLog{}
	}
	return out, nil
}

func requireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", errValidation("reason_required", "reason is required")
	}
	if len(reason) > maxReasonLen {
		return "", errValidation("reason_too_long", "reason is too long")
	}
	return reason, nil
}
