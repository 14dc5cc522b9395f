package usecase

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ecshop/internal/domain/model"
	repo "ecshop/internal/repository"
)

// =====================
// インメモリのストア
// WithinTxはfnが失敗したらスナップショットに戻す（rollbackの代わり）
// =====================

type memStore struct {
	mu sync.Mutex

	products   map[model.ProductRef]model.Product
	cart       map[int64]model.CartItem
	discounts  map[string]model.DiscountCode
	orders     map[int64]model.Order
	orderItems map[int64][]model.OrderItem
	audits     []model.AuditLog

	nextCartID  int64
	nextOrderID int64
	nextItemID  int64

	// 失敗の差し込み
	failCreateBulk error
	failAudit      error
	// IncrementUsageが条件負けする
	raceIncrement bool
	// CASの直前に割り込む更新
	onUpdateStatus func(o *model.Order)
	txCalls        int
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[model.ProductRef]model.Product{},
		cart:       map[int64]model.CartItem{},
		discounts:  map[string]model.DiscountCode{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64][]model.OrderItem{},
	}
}

type memSnapshot struct {
	cart        map[int64]model.CartItem
	discounts   map[string]model.DiscountCode
	orders      map[int64]model.Order
	orderItems  map[int64][]model.OrderItem
	audits      []model.AuditLog
	nextCartID  int64
	nextOrderID int64
	nextItemID  int64
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		cart:        cloneMap(s.cart),
		discounts:   cloneMap(s.discounts),
		orders:      cloneMap(s.orders),
		orderItems:  cloneMap(s.orderItems),
		audits:      append([]model.AuditLog(nil), s.audits...),
		nextCartID:  s.nextCartID,
		nextOrderID: s.nextOrderID,
		nextItemID:  s.nextItemID,
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = snap.cart
	s.discounts = snap.discounts
	s.orders = snap.orders
	s.orderItems = snap.orderItems
	s.audits = snap.audits
	s.nextCartID = snap.nextCartID
	s.nextOrderID = snap.nextOrderID
	s.nextItemID = snap.nextItemID
}

func (s *memStore) addProduct(p model.Product) {
	s.products[p.Ref()] = p
}

func (s *memStore) addDiscount(d model.DiscountCode) {
	if d.ID == 0 {
		d.ID = int64(len(s.discounts) + 1)
	}
	s.discounts[d.Code] = d
}

func (s *memStore) discount(code string) model.DiscountCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discounts[code]
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, items := range s.orderItems {
		n += len(items)
	}
	return n
}

// =====================
// TxManager
// =====================

type memTxManager struct{ s *memStore }

func (m memTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.s.mu.Lock()
	m.s.txCalls++
	m.s.mu.Unlock()

	snap := m.s.snapshot()
	if err := fn(memRepos{s: m.s}); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

type memRepos struct{ s *memStore }

func (r memRepos) Orders() repo.OrderRepository         { return memOrders{r.s} }
func (r memRepos) OrderItems() repo.OrderItemRepository { return memOrderItems{r.s} }
func (r memRepos) CartItems() repo.CartItemRepository   { return memCart{r.s} }
func (r memRepos) Discounts() repo.DiscountRepository   { return memDiscounts{r.s} }
func (r memRepos) Products() repo.ProductRepository     { return memProducts{r.s} }
func (r memRepos) AuditLogs() repo.AuditLogRepository   { return memAudits{r.s} }

var _ repo.TransactionManager = memTxManager{}

// =====================
// Products
// =====================

type memProducts struct{ s *memStore }

func (m memProducts) FindByRef(ctx context.Context, ref model.ProductRef) (model.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.products[ref]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (m memProducts) FindByRefs(ctx context.Context, refs []model.ProductRef) ([]model.Product, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Product
	seen := map[model.ProductRef]bool{}
	for _, ref := range refs {
		if p, ok := m.s.products[ref]; ok && !seen[ref] {
			seen[ref] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (m memProducts) ListActive(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Product
	for _, p := range m.s.products {
		if p.IsActive && (q.Partition == "" || p.Partition == q.Partition) {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

// =====================
// Cart
// =====================

type memCart struct{ s *memStore }

func (m memCart) ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.CartItem
	for _, it := range m.s.cart {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memCart) FindByID(ctx context.Context, userID int64, lineID int64) (model.CartItem, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	it, ok := m.s.cart[lineID]
	if !ok || it.UserID != userID {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (m memCart) AddOrMerge(ctx context.Context, key model.CartKey, addQty int64) (repo.CartWriteResult, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	p, ok := m.s.products[key.Product]
	if !ok {
		return repo.CartWriteResult{}, repo.ErrNotFound
	}

	for id, it := range m.s.cart {
		if it.UserID == key.UserID && it.Ref() == key.Product && it.Color == key.Color && it.Size == key.Size {
			if it.Quantity+addQty > p.StockQuantity {
				return repo.CartWriteResult{Item: it, Stock: p.StockQuantity}, repo.ErrStockExceeded
			}
			it.Quantity += addQty
			m.s.cart[id] = it
			return repo.CartWriteResult{Item: it, Stock: p.StockQuantity}, nil
		}
	}

	if addQty > p.StockQuantity {
		return repo.CartWriteResult{Stock: p.StockQuantity}, repo.ErrStockExceeded
	}
	m.s.nextCartID++
	it := model.CartItem{
		ID:        m.s.nextCartID,
		UserID:    key.UserID,
		ProductID: key.Product.ID,
		Partition: key.Product.Partition,
		Color:     key.Color,
		Size:      key.Size,
		Quantity:  addQty,
	}
	m.s.cart[it.ID] = it
	return repo.CartWriteResult{Item: it, Stock: p.StockQuantity}, nil
}

func (m memCart) SetQuantity(ctx context.Context, userID int64, lineID int64, qty int64) (repo.CartWriteResult, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	it, ok := m.s.cart[lineID]
	if !ok || it.UserID != userID {
		return repo.CartWriteResult{}, repo.ErrNotFound
	}
	p, ok := m.s.products[it.Ref()]
	if !ok {
		return repo.CartWriteResult{Item: it}, repo.ErrNotFound
	}
	if qty > p.StockQuantity {
		return repo.CartWriteResult{Item: it, Stock: p.StockQuantity}, repo.ErrStockExceeded
	}
	it.Quantity = qty
	m.s.cart[lineID] = it
	return repo.CartWriteResult{Item: it, Stock: p.StockQuantity}, nil
}

func (m memCart) Delete(ctx context.Context, userID int64, lineID int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	it, ok := m.s.cart[lineID]
	if !ok || it.UserID != userID {
		return repo.ErrNotFound
	}
	delete(m.s.cart, lineID)
	return nil
}

func (m memCart) ClearByUserID(ctx context.Context, userID int64) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for id, it := range m.s.cart {
		if it.UserID == userID {
			delete(m.s.cart, id)
			n++
		}
	}
	return n, nil
}

func (m memCart) CountByUserID(ctx context.Context, userID int64) (int64, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var lines, qty int64
	for _, it := range m.s.cart {
		if it.UserID == userID {
			lines++
			qty += it.Quantity
		}
	}
	return lines, qty, nil
}

// =====================
// Discounts
// =====================

type memDiscounts struct{ s *memStore }

func (m memDiscounts) FindByCode(ctx context.Context, code string) (model.DiscountCode, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	d, ok := m.s.discounts[code]
	if !ok {
		return model.DiscountCode{}, repo.ErrNotFound
	}
	return d, nil
}

func (m memDiscounts) IncrementUsage(ctx context.Context, discountID int64, now time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.raceIncrement {
		return false, nil
	}
	for code, d := range m.s.discounts {
		if d.ID != discountID {
			continue
		}
		if !d.IsValid(now) {
			return false, nil
		}
		d.UsedCount++
		m.s.discounts[code] = d
		return true, nil
	}
	return false, nil
}

// =====================
// Orders
// =====================

type memOrders struct{ s *memStore }

func (m memOrders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	o.Items = append([]model.OrderItem(nil), m.s.orderItems[orderID]...)
	return o, nil
}

func (m memOrders) sorted(filter func(model.Order) bool) []model.Order {
	var out []model.Order
	for _, o := range m.s.orders {
		if filter(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m memOrders) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := m.sorted(func(o model.Order) bool { return o.UserID == userID })
	return out, int64(len(out)), nil
}

func (m memOrders) Create(ctx context.Context, order *model.Order) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, o := range m.s.orders {
		if o.OrderNumber == order.OrderNumber {
			return repo.ErrConflict
		}
	}
	m.s.nextOrderID++
	order.ID = m.s.nextOrderID
	stored := *order
	stored.Items = nil
	m.s.orders[order.ID] = stored
	return nil
}

func (m memOrders) UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, payment model.PaymentStatus) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	o, ok := m.s.orders[orderID]
	if !ok {
		return false, nil
	}
	if m.s.onUpdateStatus != nil {
		m.s.onUpdateStatus(&o)
		m.s.orders[orderID] = o
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	if payment != "" {
		o.PaymentStatus = payment
	}
	m.s.orders[orderID] = o
	return true, nil
}

func (m memOrders) Delete(ctx context.Context, orderID int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.orders[orderID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.orderItems, orderID)
	delete(m.s.orders, orderID)
	return nil
}

func (m memOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := m.sorted(func(o model.Order) bool {
		if f.Status != "" && o.Status != f.Status {
			return false
		}
		if f.UserID != nil && o.UserID != *f.UserID {
			return false
		}
		return true
	})
	return out, int64(len(out)), nil
}

type memOrderItems struct{ s *memStore }

func (m memOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failCreateBulk != nil {
		return m.s.failCreateBulk
	}
	for i := range items {
		m.s.nextItemID++
		items[i].ID = m.s.nextItemID
		items[i].OrderID = orderID
	}
	m.s.orderItems[orderID] = append([]model.OrderItem(nil), items...)
	return nil
}

// =====================
// AuditLogs
// =====================

type memAudits struct{ s *memStore }

func (m memAudits) Create(ctx context.Context, log model.AuditLog) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failAudit != nil {
		return m.s.failAudit
	}
	log.ID = int64(len(m.s.audits) + 1)
	m.s.audits = append(m.s.audits, log)
	return nil
}

func (m memAudits) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.AuditLog
	for i := len(m.s.audits) - 1; i >= 0; i-- {
		a := m.s.audits[i]
		if a.ResourceType == filter.ResourceType && a.ResourceID == filter.ResourceID {
			out = append(out, a)
		}
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// =====================
// NotificationSink モック
// =====================

type NotificationSinkMock struct{ mock.Mock }

func (m *NotificationSinkMock) NotifyOrderEvent(ctx context.Context, userID int64, orderNumber string, event model.NotificationType) error {
	args := m.Called(ctx, userID, orderNumber, event)
	return args.Error(0)
}

var _ NotificationSink = (*NotificationSinkMock)(nil)

// =====================
// helper
// =====================

var (
	userAuth  = AuthContext{UserID: 1, Role: model.RoleUser}
	otherAuth = AuthContext{UserID: 2, Role: model.RoleUser}
	adminAuth = AuthContext{UserID: 99, Role: model.RoleAdmin}
)

// AppErrorのKindとReasonを確認して返す
func requireAppError(t *testing.T, err error, kind ErrorKind, reason string) *AppError {
	t.Helper()
	require.Error(t, err)
	ae, ok := AsAppError(err)
	require.True(t, ok, "not an AppError: %v", err)
	require.Equal(t, kind, ae.Kind, "err=%v", err)
	if reason != "" {
		require.Equal(t, reason, ae.Reason, "err=%v", err)
	}
	return ae
}
