package usecase

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

// 注文番号の衝突。Txごとやり直す。
var errOrderNumberTaken = errors.New("order number taken")

const placeOrderAttempts = 2

type OrderOptions struct {
	NumberPrefix string
	Tolerance    decimal.Decimal // 合計金額のずれの許容幅
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	discounts *DiscountUsecase
	notifier  NotificationSink
	opts      OrderOptions
	log       *zap.Logger

	now       func() time.Time
	newNumber func(prefix string, now time.Time) string
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	discounts *DiscountUsecase,
	notifier NotificationSink,
	opts OrderOptions,
	log *zap.Logger,
) *OrderUsecase {
	if opts.NumberPrefix == "" {
		opts.NumberPrefix = "ORD"
	}
	return &OrderUsecase{
		tx:        tx,
		orders:    orders,
		discounts: discounts,
		notifier:  notifier,
		opts:      opts,
		log:       log,
		now:       time.Now,
		newNumber: newOrderNumber,
	}
}

// 注文明細の入力。商品名と単価はクライアントの値をそのまま記録する。
type PlaceOrderItem struct {
	Product  model.ProductRef
	Name     string
	Price    decimal.Decimal
	Quantity int64
	Size     string
	Color    string
}

type PlaceOrderInput struct {
	Items           []PlaceOrderItem
	Shipping        model.ShippingAddress
	PaymentMethod   string
	PaymentIntentID string
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	DiscountCode    string
	DiscountAmount  decimal.Decimal // コード指定時はサーバー計算値と照合する
	Notes           string
	ClearCart       bool // 成功時に同じTxでカートを空にする
}

type OrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 注文作成。書き込みの前に入力を全部チェックし、注文・明細・割引使用を1つのTxで入れる。
func (u *OrderUsecase) Place(ctx context.Context, auth AuthContext, in PlaceOrderInput) (model.Order, error) {
	if err := requireUser(auth); err != nil {
		return model.Order{}, err
	}

	items, subtotal, err := u.validatePlaceInput(in)
	if err != nil {
		return model.Order{}, err
	}

	refs := make([]model.ProductRef, 0, len(items))
	for _, it := range items {
		refs = append(refs, it.Ref())
	}

	var out model.Order
	for attempt := 1; attempt <= placeOrderAttempts; attempt++ {
		//注文処理はトランザクション
		err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			discount := decimal.Zero
			code := ""
			if strings.TrimSpace(in.DiscountCode) != "" {
				q, err := u.discounts.applyWith(ctx, r.Discounts(), r.Products(), DiscountInput{
					Code:     in.DiscountCode,
					Subtotal: subtotal,
					Products: refs,
				})
				if err != nil {
					return err
				}
				if !in.DiscountAmount.IsZero() && !withinTolerance(in.DiscountAmount, q.DiscountAmount, u.opts.Tolerance) {
					return errValidation("discount_mismatch", "discount amount does not match the discount code").
						With("expected_discount", q.DiscountAmount.StringFixed(2)).
						With("given_discount", in.DiscountAmount.StringFixed(2))
				}
				discount = q.DiscountAmount
				code = q.Code
			}

			total := model.ComputeTotal(subtotal, discount, in.ShippingCost, in.TaxAmount)
			if !withinTolerance(in.TotalAmount, total, u.opts.Tolerance) {
				return errValidation("total_mismatch", "total does not match subtotal - discount + shipping + tax").
					With("expected_total", total.StringFixed(2)).
					With("given_total", in.TotalAmount.StringFixed(2))
			}
			if total.IsNegative() {
				return errValidation("negative_total", "total must not be negative")
			}

			now := u.now()
			order := model.Order{
				OrderNumber:     u.newNumber(u.opts.NumberPrefix, now),
				UserID:          auth.UserID,
				Status:          model.OrderStatusPending,
				Subtotal:        subtotal,
				DiscountCode:    code,
				DiscountAmount:  discount,
				ShippingCost:    in.ShippingCost,
				TaxAmount:       in.TaxAmount,
				TotalAmount:     total,
				PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
				PaymentStatus:   model.PaymentStatusPending,
				PaymentIntentID: strings.TrimSpace(in.PaymentIntentID),
				ShippingAddress: in.Shipping,
				Notes:           strings.TrimSpace(in.Notes),
			}

			err := r.Orders().Create(ctx, &order)
			if errors.Is(err, repo.ErrConflict) {
				return errOrderNumberTaken
			}
			if err != nil {
				return internalError(u.log, "order.place", err, zap.Int64("user_id", auth.UserID))
			}

			//明細は毎回コピーして入れる（失敗したTxのIDを残さない）
			rows := make([]model.OrderItem, len(items))
			copy(rows, items)
			if err := r.OrderItems().CreateBulk(ctx, order.ID, rows); err != nil {
				return internalError(u.log, "order.place.items", err,
					zap.Int64("user_id", auth.UserID), zap.String("order_number", order.OrderNumber))
			}

			if in.ClearCart {
				if _, err := r.CartItems().ClearByUserID(ctx, auth.UserID); err != nil {
					return internalError(u.log, "order.place.clear_cart", err, zap.Int64("user_id", auth.UserID))
				}
			}

			order.Items = rows
			out = order
			return nil
		})
		if !errors.Is(err, errOrderNumberTaken) {
			break
		}
		u.log.Warn("order number collision", zap.Int("attempt", attempt))
	}

	if errors.Is(err, errOrderNumberTaken) {
		return model.Order{}, NewAppError(KindConflict, "order_number_taken", "could not allocate an order number")
	}
	if err != nil {
		return model.Order{}, txError(u.log, "order.place", err, zap.Int64("user_id", auth.UserID))
	}

	u.log.Info("order placed",
		zap.Int64("order_id", out.ID),
		zap.String("order_number", out.OrderNumber),
		zap.Int64("user_id", out.UserID),
		zap.String("total", out.TotalAmount.StringFixed(2)))

	//コミット後に通知（失敗しても注文はそのまま）
	notifyQuietly(ctx, u.notifier, u.log, out, model.NotificationOrderCreated)
	return out, nil
}

// 書き込み前のチェック。明細スナップショットとサーバー計算の小計を返す。
func (u *OrderUsecase) validatePlaceInput(in PlaceOrderInput) ([]model.OrderItem, decimal.Decimal, error) {
	if len(in.Items) == 0 {
		return nil, decimal.Zero, errValidation("empty_items", "order must contain at least one item")
	}

	items := make([]model.OrderItem, 0, len(in.Items))
	subtotal := decimal.Zero
	for i, it := range in.Items {
		ref := it.Product.Normalize()
		switch {
		case !ref.Valid():
			return nil, decimal.Zero, errValidation("invalid_item", "item has invalid product id or partition").With("index", i)
		case strings.TrimSpace(it.Name) == "":
			return nil, decimal.Zero, errValidation("invalid_item", "item name is required").With("index", i)
		case it.Price.IsNegative():
			return nil, decimal.Zero, errValidation("invalid_item", "item price must not be negative").With("index", i)
		case it.Quantity < 1:
			return nil, decimal.Zero, errValidation("invalid_item", "item quantity must be at least 1").With("index", i)
		}

		line := it.Price.Mul(decimal.NewFromInt(it.Quantity)).Round(2)
		subtotal = subtotal.Add(line)
		items = append(items, model.OrderItem{
			ProductID:   ref.ID,
			Partition:   ref.Partition,
			ProductName: strings.TrimSpace(it.Name),
			UnitPrice:   it.Price,
			Quantity:    it.Quantity,
			Size:        strings.TrimSpace(it.Size),
			Color:       strings.TrimSpace(it.Color),
			Subtotal:    line,
		})
	}

	if missing := in.Shipping.MissingFields(); len(missing) > 0 {
		return nil, decimal.Zero, errValidation("missing_shipping_fields", "shipping address is incomplete").
			With("fields", missing)
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return nil, decimal.Zero, errValidation("missing_payment_method", "payment method is required")
	}
	if in.ShippingCost.IsNegative() || in.TaxAmount.IsNegative() {
		return nil, decimal.Zero, errValidation("negative_amount", "shipping cost and tax must not be negative")
	}
	if !withinTolerance(in.Subtotal, subtotal, u.opts.Tolerance) {
		return nil, decimal.Zero, errValidation("subtotal_mismatch", "subtotal does not match the items").
			With("expected_subtotal", subtotal.StringFixed(2)).
			With("given_subtotal", in.Subtotal.StringFixed(2))
	}
	if strings.TrimSpace(in.DiscountCode) == "" && !in.DiscountAmount.IsZero() {
		return nil, decimal.Zero, errValidation("discount_without_code", "discount amount requires a discount code")
	}

	return items, subtotal, nil
}

// 自分の注文（管理者は全件）。他人の注文は存在しない扱い。
func (u *OrderUsecase) Get(ctx context.Context, auth AuthContext, orderID int64) (model.Order, error) {
	if err := requireUser(auth); err != nil {
		return model.Order{}, err
	}
	if orderID <= 0 {
		return model.Order{}, errValidation("invalid_id", "invalid id")
	}
	return u.findVisible(ctx, auth, orderID)
}

// 自分の注文一覧（新しい順）
func (u *OrderUsecase) List(ctx context.Context, auth AuthContext, page, limit int) (OrderListOutput, error) {
	if err := requireUser(auth); err != nil {
		return OrderListOutput{}, err
	}
	if page < 1 {
		return OrderListOutput{}, errValidation("invalid_page", "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, errValidation("invalid_limit", "invalid limit")
	}

	items, total, err := u.orders.ListByUserID(ctx, auth.UserID, page, limit)
	if err != nil {
		return OrderListOutput{}, internalError(u.log, "order.list", err, zap.Int64("user_id", auth.UserID))
	}
	return OrderListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// pendingのときだけキャンセルできる。在庫・割引使用回数は戻さない。
func (u *OrderUsecase) Cancel(ctx context.Context, auth AuthContext, orderID int64) (model.Order, error) {
	if err := requireUser(auth); err != nil {
		return model.Order{}, err
	}
	if orderID <= 0 {
		return model.Order{}, errValidation("invalid_id", "invalid id")
	}

	o, err := u.findVisible(ctx, auth, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if o.Status != model.OrderStatusPending {
		return model.Order{}, errInvalidTransition(o.Status, model.OrderStatusCancelled)
	}

	ok, err := u.orders.UpdateStatus(ctx, orderID, model.OrderStatusPending, model.OrderStatusCancelled, "")
	if err != nil {
		return model.Order{}, internalError(u.log, "order.cancel", err, zap.Int64("order_id", orderID))
	}
	if !ok {
		// 読んだ後に別の更新が入った
		cur, err := u.orders.FindByID(ctx, orderID)
		if err != nil {
			return model.Order{}, internalError(u.log, "order.cancel", err, zap.Int64("order_id", orderID))
		}
		return model.Order{}, errInvalidTransition(cur.Status, model.OrderStatusCancelled)
	}

	o.Status = model.OrderStatusCancelled
	notifyQuietly(ctx, u.notifier, u.log, o, model.NotificationOrderCancelled)
	return o, nil
}

// 管理者によるステータス更新。遷移表にないものはInvalidTransition。
func (u *OrderUsecase) UpdateStatus(ctx context.Context, auth AuthContext, orderID int64, status string) (model.Order, error) {
	if err := requireAdmin(auth); err != nil {
		return model.Order{}, err
	}
	if orderID <= 0 {
		return model.Order{}, errValidation("invalid_id", "invalid id")
	}
	next, ok := model.ParseOrderStatus(status)
	if !ok {
		return model.Order{}, errValidation("invalid_status", "invalid status").With("status", status)
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errOrderNotFound()
		}
		if err != nil {
			return internalError(u.log, "order.update_status", err, zap.Int64("order_id", orderID))
		}

		if !o.Status.CanTransitionTo(next) {
			return errInvalidTransition(o.Status, next)
		}

		payment := paymentAfter(o, next)
		ok, err := r.Orders().UpdateStatus(ctx, orderID, o.Status, next, payment)
		if err != nil {
			return internalError(u.log, "order.update_status", err, zap.Int64("order_id", orderID))
		}
		if !ok {
			return NewAppError(KindConflict, "concurrent_update", "order was modified concurrently")
		}

		before := o
		o.Status = next
		if payment != "" {
			o.PaymentStatus = payment
		}

		// ★監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  auth.UserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   orderStateJSON(before),
			AfterJSON:    orderStateJSON(o),
			CreatedAt:    u.now(),
		}); err != nil {
			return internalError(u.log, "order.update_status.audit", err, zap.Int64("order_id", orderID))
		}

		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, txError(u.log, "order.update_status", err, zap.Int64("order_id", orderID))
	}

	event := model.NotificationOrderStatusChanged
	if next == model.OrderStatusCancelled {
		event = model.NotificationOrderCancelled
	}
	notifyQuietly(ctx, u.notifier, u.log, out, event)
	return out, nil
}

func (u *OrderUsecase) findVisible(ctx context.Context, auth AuthContext, orderID int64) (model.Order, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, errOrderNotFound()
	}
	if err != nil {
		return model.Order{}, internalError(u.log, "order.find", err, zap.Int64("order_id", orderID))
	}
	if o.UserID != auth.UserID && !auth.IsAdmin() {
		//他人の注文は「存在しない扱い」にする
		return model.Order{}, errOrderNotFound()
	}
	return o, nil
}

// 代引きは配達完了で支払い済みにする
func paymentAfter(o model.Order, next model.OrderStatus) model.PaymentStatus {
	switch {
	case next == model.OrderStatusDelivered && o.PaymentMethod == model.PaymentMethodCOD:
		return model.PaymentStatusPaid
	case next == model.OrderStatusRefunded:
		return model.PaymentStatusRefunded
	default:
		return ""
	}
}

// PREFIX-YYYYMMDD-XXXXXXXXXXXX（ランダム12桁）
func newOrderNumber(prefix string, now time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(id[:6])))
}

func withinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

func orderStateJSON(o model.Order) string {
	b, err := json.Marshal(map[string]any{
		"order_number":   o.OrderNumber,
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
		"total_amount":   o.TotalAmount.StringFixed(2),
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}

func errOrderNotFound() *AppError {
	return errNotFound("order_not_found", "order not found")
}

func errInvalidTransition(from, to model.OrderStatus) *AppError {
	return NewAppError(KindInvalidTransition, "invalid_transition",
		fmt.Sprintf("cannot change order status from %s to %s", from, to)).
		With("current_status", from).
		With("requested_status", to)
}
