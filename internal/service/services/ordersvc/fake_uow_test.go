package ordersvc

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	iaudit "github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iauditrepo"
	iorder "github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iorderrepo"
	iorderitem "github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/istreakrepo"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
)

var errCommitFailed = errors.New("commit failed")

// memStore is an in-memory database shared by fake units of work. A
// transaction holds txMu from Begin to Commit or Rollback, which serializes
// transactions the way row locks serialize writers to one order.
type memStore struct {
	txMu sync.Mutex

	mu         sync.Mutex
	orders     map[string]order.Order
	items      []orderitem.OrderItem
	audit      []auditlog.AuditLogOrder
	outbox     []outbox.OutboxMessage
	streaks    map[string]time.Time
	failCommit bool
	streakErr  error
}

func newMemStore() *memStore {
	return &memStore{
		orders:  make(map[string]order.Order),
		streaks: make(map[string]time.Time),
	}
}

func (s *memStore) put(o order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.ID] = o
}

func (s *memStore) get(id string) order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.orders[id]
}

func (s *memStore) auditFor(id string) []auditlog.AuditLogOrder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []auditlog.AuditLogOrder
	for _, e := range s.audit {
		if e.OrderID == id {
			out = append(out, e)
		}
	}

	return out
}

func (s *memStore) outboxLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.outbox)
}

func (s *memStore) factory() func() unitOfWork {
	return func() unitOfWork {
		return &fakeUOW{store: s}
	}
}

// fakeUOW buffers writes and applies them to the store on Commit.
type fakeUOW struct {
	store   *memStore
	inTx    bool
	pending []func()
}

func (u *fakeUOW) Begin(_ context.Context) error {
	u.store.txMu.Lock()
	u.inTx = true

	return nil
}

func (u *fakeUOW) Commit(_ context.Context) error {
	if !u.inTx {
		return errors.New("no transaction")
	}
	defer u.end()

	if u.store.failCommit {
		return errCommitFailed
	}

	u.store.mu.Lock()
	for _, apply := range u.pending {
		apply()
	}
	u.store.mu.Unlock()

	return nil
}

func (u *fakeUOW) Rollback(_ context.Context) error {
	if u.inTx {
		u.end()
	}

	return nil
}

func (u *fakeUOW) end() {
	u.inTx = false
	u.pending = nil
	u.store.txMu.Unlock()
}

// write runs apply now outside a transaction, or on Commit inside one.
func (u *fakeUOW) write(apply func()) {
	if u.inTx {
		u.pending = append(u.pending, apply)

		return
	}
	u.store.mu.Lock()
	apply()
	u.store.mu.Unlock()
}

func (u *fakeUOW) OrderRepository() iorder.IOrderRepository { return &fakeOrderRepo{u} }
func (u *fakeUOW) OrderItemRepository() iorderitem.IOrderItemRepository { return &fakeItemRepo{u} }
func (u *fakeUOW) AuditRepository() iaudit.IAuditRepository { return &fakeAuditRepo{u} }
func (u *fakeUOW) OutboxRepository() ioutboxrepo.IOutboxRepository { return &fakeOutboxRepo{u} }
func (u *fakeUOW) StreakRepository() istreakrepo.IStreakRepository { return &fakeStreakRepo{u} }

type fakeOrderRepo struct{ u *fakeUOW }

func (r *fakeOrderRepo) Insert(_ context.Context, o order.Order) (order.Order, error) {
	stored := o
	stored.OrderItems = nil
	r.u.write(func() { r.u.store.orders[o.ID] = stored })

	return o, nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (order.Order, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()

	o, ok := r.u.store.orders[id]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}

	return o, nil
}

func (r *fakeOrderRepo) GetForUpdate(ctx context.Context, id string) (order.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeOrderRepo) Update(_ context.Context, o order.Order) error {
	r.u.store.mu.Lock()
	_, ok := r.u.store.orders[o.ID]
	r.u.store.mu.Unlock()
	if !ok {
		return order.ErrNotFound
	}

	stored := o
	stored.OrderItems = nil
	r.u.write(func() { r.u.store.orders[o.ID] = stored })

	return nil
}

func (r *fakeOrderRepo) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()

	out := make([]order.Order, 0)
	for _, o := range r.u.store.orders {
		if len(filter.UserIds) > 0 && !contains(filter.UserIds, o.UserID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, o.Status) {
			continue
		}
		if !filter.UpdatedBefore.IsZero() && !o.UpdatedAt.Before(filter.UpdatedBefore) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out, nil
}

type fakeItemRepo struct{ u *fakeUOW }

func (r *fakeItemRepo) BulkInsert(_ context.Context, items []orderitem.OrderItem) ([]orderitem.OrderItem, error) {
	r.u.store.mu.Lock()
	next := int64(len(r.u.store.items))
	r.u.store.mu.Unlock()

	out := make([]orderitem.OrderItem, len(items))
	for i, item := range items {
		item.ID = next + int64(i) + 1
		out[i] = item
	}
	r.u.write(func() { r.u.store.items = append(r.u.store.items, out...) })

	return out, nil
}

func (r *fakeItemRepo) Query(_ context.Context, filter *orderitem.QueryOrderItemsModel) ([]orderitem.OrderItem, error) {
	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()

	out := make([]orderitem.OrderItem, 0)
	for _, item := range r.u.store.items {
		if len(filter.OrderIds) > 0 && !contains(filter.OrderIds, item.OrderID) {
			continue
		}
		out = append(out, item)
	}

	return out, nil
}

type fakeAuditRepo struct{ u *fakeUOW }

func (r *fakeAuditRepo) Insert(_ context.Context, entry auditlog.AuditLogOrder) (auditlog.AuditLogOrder, error) {
	r.u.write(func() {
		entry.ID = int64(len(r.u.store.audit)) + 1
		r.u.store.audit = append(r.u.store.audit, entry)
	})

	return entry, nil
}

func (r *fakeAuditRepo) ListByOrder(_ context.Context, orderID string) ([]auditlog.AuditLogOrder, error) {
	return r.u.store.auditFor(orderID), nil
}

type fakeOutboxRepo struct{ u *fakeUOW }

func (r *fakeOutboxRepo) EnqueueStatusChanged(_ context.Context, event auditlog.StatusChangedEvent) error {
	msg, err := outbox.NewStatusChanged(event)
	if err != nil {
		return err
	}
	r.u.write(func() { r.u.store.outbox = append(r.u.store.outbox, msg) })

	return nil
}

func (r *fakeOutboxRepo) ClaimPending(_ context.Context, _ int, _ time.Duration) ([]outbox.OutboxMessage, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkPublished(_ context.Context, _ int64) error {
	return nil
}

func (r *fakeOutboxRepo) ScheduleRetry(_ context.Context, _ int64, _ int, _ string, _ time.Time) error {
	return nil
}

type fakeStreakRepo struct{ u *fakeUOW }

func (r *fakeStreakRepo) CreateIfAbsent(_ context.Context, userID string, at time.Time) (bool, error) {
	if r.u.store.streakErr != nil {
		return false, r.u.store.streakErr
	}

	r.u.store.mu.Lock()
	defer r.u.store.mu.Unlock()

	if _, ok := r.u.store.streaks[userID]; ok {
		return false, nil
	}
	r.u.store.streaks[userID] = at

	return true, nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}

	return false
}

func containsStatus(values []order.Status, v order.Status) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}

	return false
}
