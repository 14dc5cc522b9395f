package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecshop/internal/domain/model"
)

func newAdminFixture(t *testing.T) (*AdminOrderUsecase, *memStore) {
	t.Helper()
	s := newMemStore()
	s.orders[1] = model.Order{ID: 1, OrderNumber: "ORD-1", UserID: 1, Status: model.OrderStatusPending, PaymentStatus: model.PaymentStatusPending}
	s.orders[2] = model.Order{ID: 2, OrderNumber: "ORD-2", UserID: 2, Status: model.OrderStatusDelivered, PaymentStatus: model.PaymentStatusPaid}
	s.orderItems[1] = []model.OrderItem{{ID: 1, OrderID: 1, ProductID: 1, Partition: model.PartitionMen, Quantity: 1}}
	s.nextOrderID = 2

	uc := NewAdminOrderUsecase(memTxManager{s}, zap.NewNop())
	uc.now = func() time.Time { return discountNow }
	return uc, s
}

// =====================
// List
// =====================

func TestAdminOrder_List(t *testing.T) {
	uc, _ := newAdminFixture(t)
	ctx := context.Background()

	out, err := uc.List(ctx, adminAuth, AdminListOrdersInput{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)

	out, err = uc.List(ctx, adminAuth, AdminListOrdersInput{Page: 1, Limit: 20, Status: "DELIVERED"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "ORD-2", out.Items[0].OrderNumber)

	uid := int64(1)
	out, err = uc.List(ctx, adminAuth, AdminListOrdersInput{Page: 1, Limit: 20, UserID: &uid})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(1), out.Items[0].UserID)
}

func TestAdminOrder_List_Validation(t *testing.T) {
	uc, _ := newAdminFixture(t)
	ctx := context.Background()
	from := discountNow
	to := discountNow.Add(-time.Hour)

	_, err := uc.List(ctx, userAuth, AdminListOrdersInput{Page: 1, Limit: 20})
	requireAppError(t, err, KindForbidden, "")

	_, err = uc.List(ctx, adminAuth, AdminListOrdersInput{Page: 0, Limit: 20})
	requireAppError(t, err, KindValidation, "invalid_page")

	_, err = uc.List(ctx, adminAuth, AdminListOrdersInput{Page: 1, Limit: 101})
	requireAppError(t, err, KindValidation, "invalid_limit")

	_, err = uc.List(ctx, adminAuth, AdminListOrdersInput{Page: 1, Limit: 20, Status: "lost"})
	requireAppError(t, err, KindValidation, "invalid_status")

	_, err = uc.List(ctx, adminAuth, AdminListOrdersInput{Page: 1, Limit: 20, From: &from, To: &to})
	requireAppError(t, err, KindValidation, "invalid_range")
}

// =====================
// OverrideStatus
// =====================

// 遷移表に無い変更も理由付きなら通り、監査ログに残る
func TestAdminOrder_Override_Success(t *testing.T) {
	uc, s := newAdminFixture(t)

	o, err := uc.OverrideStatus(context.Background(), adminAuth, 2, OverrideStatusInput{Status: "refunded", Reason: " customer complaint "})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusRefunded, o.Status)
	assert.Equal(t, model.PaymentStatusRefunded, o.PaymentStatus)
	assert.Equal(t, model.OrderStatusRefunded, s.orders[2].Status)

	require.Len(t, s.audits, 1)
	a := s.audits[0]
	assert.Equal(t, model.AuditActionOverrideOrderStatus, a.Action)
	assert.Equal(t, model.AuditResourceOrder, a.ResourceType)
	assert.Equal(t, int64(2), a.ResourceID)
	assert.Equal(t, "customer complaint", a.Reason)
	assert.Contains(t, a.BeforeJSON, `"status":"delivered"`)
	assert.Contains(t, a.AfterJSON, `"status":"refunded"`)
	assert.Equal(t, discountNow, a.CreatedAt)
}

func TestAdminOrder_Override_Rejects(t *testing.T) {
	uc, s := newAdminFixture(t)
	ctx := context.Background()

	cases := map[string]struct {
		auth   AuthContext
		id     int64
		in     OverrideStatusInput
		kind   ErrorKind
		reason string
	}{
		"not admin":     {auth: userAuth, id: 1, in: OverrideStatusInput{Status: "shipped", Reason: "x"}, kind: KindForbidden},
		"no reason":     {auth: adminAuth, id: 1, in: OverrideStatusInput{Status: "shipped", Reason: "  "}, kind: KindValidation, reason: "reason_required"},
		"long reason":   {auth: adminAuth, id: 1, in: OverrideStatusInput{Status: "shipped", Reason: strings.Repeat("a", 256)}, kind: KindValidation, reason: "reason_too_long"},
		"bad status":    {auth: adminAuth, id: 1, in: OverrideStatusInput{Status: "lost", Reason: "x"}, kind: KindValidation, reason: "invalid_status"},
		"unknown order": {auth: adminAuth, id: 404, in: OverrideStatusInput{Status: "shipped", Reason: "x"}, kind: KindNotFound, reason: "order_not_found"},
		"invalid id":    {auth: adminAuth, id: 0, in: OverrideStatusInput{Status: "shipped", Reason: "x"}, kind: KindValidation, reason: "invalid_id"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.OverrideStatus(ctx, tc.auth, tc.id, tc.in)
			requireAppError(t, err, tc.kind, tc.reason)
		})
	}

	assert.Equal(t, model.OrderStatusPending, s.orders[1].Status)
	assert.Empty(t, s.audits)
}

// 同じステータスなら何もしない（監査ログも書かない）
func TestAdminOrder_Override_SameStatusIsNoop(t *testing.T) {
	uc, s := newAdminFixture(t)

	o, err := uc.OverrideStatus(context.Background(), adminAuth, 1, OverrideStatusInput{Status: "pending", Reason: "recheck"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Empty(t, s.audits)
}

// =====================
// Purge
// =====================

func TestAdminOrder_Purge(t *testing.T) {
	uc, s := newAdminFixture(t)

	err := uc.Purge(context.Background(), adminAuth, 1, "test order")
	require.NoError(t, err)

	_, ok := s.orders[1]
	assert.False(t, ok)
	assert.Empty(t, s.orderItems[1])

	require.Len(t, s.audits, 1)
	assert.Equal(t, model.AuditActionPurgeOrder, s.audits[0].Action)
	assert.Equal(t, "test order", s.audits[0].Reason)
	assert.Contains(t, s.audits[0].BeforeJSON, `"order_number":"ORD-1"`)
	assert.Empty(t, s.audits[0].AfterJSON)
}

func TestAdminOrder_Purge_Rejects(t *testing.T) {
	uc, s := newAdminFixture(t)
	ctx := context.Background()

	err := uc.Purge(ctx, adminAuth, 404, "gone")
	requireAppError(t, err, KindNotFound, "order_not_found")

	err = uc.Purge(ctx, adminAuth, 1, "")
	requireAppError(t, err, KindValidation, "reason_required")

	err = uc.Purge(ctx, otherAuth, 1, "mine")
	requireAppError(t, err, KindForbidden, "")

	assert.Len(t, s.orders, 2)
	assert.Empty(t, s.audits)
}

// =====================
// AuditTrail
// =====================

// 強制変更と削除の記録が新しい順に返り、削除後も読める
func TestAdminOrder_AuditTrail(t *testing.T) {
	uc, _ := newAdminFixture(t)
	ctx := context.Background()

	_, err := uc.OverrideStatus(ctx, adminAuth, 1, OverrideStatusInput{Status: "shipped", Reason: "manual ship"})
	require.NoError(t, err)
	_, err = uc.OverrideStatus(ctx, adminAuth, 2, OverrideStatusInput{Status: "refunded", Reason: "complaint"})
	require.NoError(t, err)
	require.NoError(t, uc.Purge(ctx, adminAuth, 1, "test order"))

	logs, err := uc.AuditTrail(ctx, adminAuth, 1, AuditTrailInput{Limit: 50})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditActionPurgeOrder, logs[0].Action)
	assert.Equal(t, model.AuditActionOverrideOrderStatus, logs[1].Action)

	logs, err = uc.AuditTrail(ctx, adminAuth, 1, AuditTrailInput{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "manual ship", logs[0].Reason)

	logs, err = uc.AuditTrail(ctx, adminAuth, 404, AuditTrailInput{Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestAdminOrder_AuditTrail_Rejects(t *testing.T) {
	uc, _ := newAdminFixture(t)
	ctx := context.Background()

	_, err := uc.AuditTrail(ctx, userAuth, 1, AuditTrailInput{Limit: 50})
	requireAppError(t, err, KindForbidden, "")

	_, err = uc.AuditTrail(ctx, adminAuth, 0, AuditTrailInput{Limit: 50})
	requireAppError(t, err, KindValidation, "invalid_id")

	_, err = uc.AuditTrail(ctx, adminAuth, 1, AuditTrailInput{Limit: 201})
	requireAppError(t, err, KindValidation, "invalid_limit")

	_, err = uc.AuditTrail(ctx, adminAuth, 1, AuditTrailInput{Limit: 10, Offset: -1})
	requireAppError(t, err, KindValidation, "invalid_offset")
}
