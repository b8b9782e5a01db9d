package ordersvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/cart"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/currency"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(store *memStore) *OrderService {
	return MustNewOrderService(
		WithUnitOfWorkFactory(store.factory()),
		WithClock(func() time.Time { return fixedNow }),
		WithDeliveryFee(500),
	)
}

func seedOrder(store *memStore, status order.Status, reference *string) order.Order {
	o := order.Order{
		ID:               uuid.NewString(),
		UserID:           "user-1",
		RestaurantID:     "r1",
		TotalAmount:      3500,
		DeliveryFee:      500,
		Currency:         currency.CurrencyNGN,
		DeliveryAddress:  order.Address{Address: "1 Marina"},
		Status:           status,
		PaymentReference: reference,
		CreatedAt:        fixedNow.Add(-time.Hour),
		UpdatedAt:        fixedNow.Add(-time.Hour),
	}
	store.put(o)

	return o
}

func ref(s string) *string {
	return &s
}

func TestCreateOrder(t *testing.T) {
	address := order.Address{Name: "Ada", Address: "1 Marina", Latitude: 6.45, Longitude: 3.39}

	tests := []struct {
		name    string
		items   []cart.Item
		address order.Address
		wantErr error
	}{
		{"empty cart", nil, address, order.ErrEmptyCart},
		{
			"multiple restaurants",
			[]cart.Item{
				{ItemID: "a", Price: 100, Quantity: 1, RestaurantID: "r1"},
				{ItemID: "b", Price: 100, Quantity: 1, RestaurantID: "r2"},
			},
			address,
			order.ErrMultipleRestaurants,
		},
		{
			"missing address",
			[]cart.Item{{ItemID: "a", Price: 100, Quantity: 1, RestaurantID: "r1"}},
			order.Address{},
			order.ErrMissingAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMemStore())

			_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
				UserID:          "user-1",
				Items:           tt.items,
				DeliveryAddress: tt.address,
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("success", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store)

		created, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
			UserID: "user-1",
			Items: []cart.Item{
				{ItemID: "jollof", Name: "Jollof", Price: 1500, Quantity: 2, RestaurantID: "r1"},
				{ItemID: "suya", Name: "Suya", Price: 2000, Quantity: 1, RestaurantID: "r1"},
			},
			DeliveryAddress: address,
		})
		require.NoError(t, err)

		assert.Equal(t, order.StatusPending, created.Status)
		assert.Equal(t, "r1", created.RestaurantID)
		assert.Equal(t, int64(500), created.DeliveryFee)
		assert.Equal(t, int64(2*1500+2000+500), created.TotalAmount)
		assert.Equal(t, currency.CurrencyNGN, created.Currency)
		assert.Nil(t, created.PaymentReference)
		require.Len(t, created.OrderItems, 2)
		assert.NotZero(t, created.OrderItems[0].ID)
		assert.Equal(t, created.ID, created.OrderItems[1].OrderID)

		fetched, err := svc.GetOrder(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.TotalAmount, fetched.TotalAmount)
		assert.Len(t, fetched.OrderItems, 2)
	})
}

func TestTransition(t *testing.T) {
	tests := []struct {
		from    order.Status
		to      order.Status
		wantErr bool
	}{
		{order.StatusPending, order.StatusConfirmed, false},
		{order.StatusPending, order.StatusCancelled, false},
		{order.StatusPaymentPending, order.StatusConfirmed, false},
		{order.StatusConfirmed, order.StatusPreparing, false},
		{order.StatusPreparing, order.StatusReady, false},
		{order.StatusReady, order.StatusCompleted, false},
		{order.StatusPending, order.StatusReady, true},
		{order.StatusConfirmed, order.StatusPending, true},
		{order.StatusCompleted, order.StatusCancelled, true},
		{order.StatusCancelled, order.StatusConfirmed, true},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			store := newMemStore()
			svc := newTestService(store)
			o := seedOrder(store, tt.from, nil)

			updated, err := svc.Transition(context.Background(), o.ID, tt.to, WithActor("tester"))
			if tt.wantErr {
				var te *order.TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, tt.from, te.From)
				assert.Equal(t, tt.to, te.To)
				assert.Equal(t, tt.from, store.get(o.ID).Status)
				assert.Empty(t, store.auditFor(o.ID))
				assert.Zero(t, store.outboxLen())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, updated.Status)
			assert.Equal(t, fixedNow, updated.UpdatedAt)
			assert.Equal(t, tt.to, store.get(o.ID).Status)

			entries := store.auditFor(o.ID)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.from.String(), entries[0].FromStatus)
			assert.Equal(t, tt.to.String(), entries[0].ToStatus)
			assert.Equal(t, "tester", entries[0].Actor)
			require.Equal(t, 1, store.outboxLen())
			assert.Equal(t, o.ID, store.outbox[0].OrderID)
			assert.Equal(t, outbox.RoutingKeyStatusChanged, store.outbox[0].RoutingKey)
		})
	}
}

func TestTransitionUnknownOrder(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.Transition(context.Background(), uuid.NewString(), order.StatusCancelled)
	assert.ErrorIs(t, err, order.ErrNotFound)

	_, err = svc.Transition(context.Background(), "not-a-uuid", order.StatusCancelled)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestCancelClearsDeliveryStatus(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	o := seedOrder(store, order.StatusPreparing, nil)
	assigned := order.DeliveryStatusAssigned
	o.DeliveryStatus = &assigned
	store.put(o)

	updated, err := svc.Transition(context.Background(), o.ID, order.StatusCancelled)
	require.NoError(t, err)
	assert.Nil(t, updated.DeliveryStatus)
	assert.Nil(t, store.get(o.ID).DeliveryStatus)
}

func TestTransitionExpectedReference(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	o := seedOrder(store, order.StatusPaymentPending, ref("fd_2_new"))

	_, err := svc.Transition(context.Background(), o.ID, order.StatusConfirmed, WithExpectedReference("fd_1_old"))
	assert.ErrorIs(t, err, order.ErrStaleReference)
	assert.Equal(t, order.StatusPaymentPending, store.get(o.ID).Status)

	updated, err := svc.Transition(context.Background(), o.ID, order.StatusConfirmed, WithExpectedReference("fd_2_new"))
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, updated.Status)
}

func TestTransitionCommitFailureLeavesOrderUnchanged(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	o := seedOrder(store, order.StatusPending, nil)
	store.failCommit = true

	_, err := svc.Transition(context.Background(), o.ID, order.StatusCancelled)
	require.ErrorIs(t, err, errCommitFailed)

	assert.Equal(t, order.StatusPending, store.get(o.ID).Status)
	assert.Empty(t, store.auditFor(o.ID))
	assert.Zero(t, store.outboxLen())
}

func TestConcurrentConfirmAndCancel(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	o := seedOrder(store, order.StatusPaymentPending, ref("fd_1_a"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, target := range []order.Status{order.StatusConfirmed, order.StatusCancelled} {
		i, target := i, target
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Transition(context.Background(), o.ID, target, WithExpectedReference("fd_1_a"))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	final := store.get(o.ID).Status

	// confirmed -> cancelled is legal, so both may apply in that order.
	if succeeded == 2 {
		assert.Equal(t, order.StatusCancelled, final)
	} else {
		assert.Equal(t, 1, succeeded)
		assert.True(t, errors.Is(errs[0], order.ErrInvalidTransition) || errors.Is(errs[1], order.ErrInvalidTransition))
	}
	assert.Len(t, store.auditFor(o.ID), succeeded)
}

func TestBeginPayment(t *testing.T) {
	t.Run("pending moves to payment pending", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store)
		o := seedOrder(store, order.StatusPending, nil)

		updated, err := svc.BeginPayment(context.Background(), o.ID, "fd_1_a")
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaymentPending, updated.Status)
		assert.True(t, updated.HasReference("fd_1_a"))
		assert.Equal(t, 1, store.outboxLen())
	})

	t.Run("new attempt supersedes the previous reference", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store)
		o := seedOrder(store, order.StatusPaymentPending, ref("fd_1_a"))

		updated, err := svc.BeginPayment(context.Background(), o.ID, "fd_2_b")
		require.NoError(t, err)
		assert.True(t, updated.HasReference("fd_2_b"))

		entries := store.auditFor(o.ID)
		require.Len(t, entries, 1)
		assert.Equal(t, entries[0].FromStatus, entries[0].ToStatus)
		assert.Zero(t, store.outboxLen())

		_, err = svc.Transition(context.Background(), o.ID, order.StatusConfirmed, WithExpectedReference("fd_1_a"))
		assert.ErrorIs(t, err, order.ErrStaleReference)
	})

	t.Run("settled order is rejected", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store)
		o := seedOrder(store, order.StatusConfirmed, ref("fd_1_a"))

		_, err := svc.BeginPayment(context.Background(), o.ID, "fd_2_b")
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
		assert.True(t, store.get(o.ID).HasReference("fd_1_a"))
	})
}

func TestAbortPayment(t *testing.T) {
	t.Run("reverts to pending", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store)
		o := seedOrder(store, order.StatusPaymentPending, ref("fd_1_a"))

		updated, err := svc.AbortPayment(context.Background(), o.ID, "fd_1_a")
		require.NoError(t, err)
		assert.Equal(t, order.StatusPending, updated.Status)
		assert.Nil(t, updated.PaymentReference)
	})

	t.Run("stale reference", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store)
		o := seedOrder(store, order.StatusPaymentPending, ref("fd_2_b"))

		_, err := svc.AbortPayment(context.Background(), o.ID, "fd_1_a")
		assert.ErrorIs(t, err, order.ErrStaleReference)
		assert.Equal(t, order.StatusPaymentPending, store.get(o.ID).Status)
	})

	t.Run("already settled", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(store)
		o := seedOrder(store, order.StatusConfirmed, ref("fd_1_a"))

		_, err := svc.AbortPayment(context.Background(), o.ID, "fd_1_a")
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
	})
}

func TestConfirmationStartsStreakOnce(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	first := seedOrder(store, order.StatusPaymentPending, ref("fd_1_a"))
	second := seedOrder(store, order.StatusPending, nil)

	_, err := svc.Transition(context.Background(), first.ID, order.StatusConfirmed)
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), second.ID, order.StatusConfirmed)
	require.NoError(t, err)

	require.Len(t, store.streaks, 1)
	assert.Equal(t, fixedNow, store.streaks["user-1"])
}

func TestStreakFailureDoesNotFailTransition(t *testing.T) {
	store := newMemStore()
	store.streakErr = errors.New("streak store down")
	svc := newTestService(store)
	o := seedOrder(store, order.StatusPending, nil)

	updated, err := svc.Transition(context.Background(), o.ID, order.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, updated.Status)
}

func TestHistory(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	o := seedOrder(store, order.StatusPending, nil)

	_, err := svc.BeginPayment(context.Background(), o.ID, "fd_1_a")
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), o.ID, order.StatusConfirmed, WithActor("payment:callback"))
	require.NoError(t, err)

	entries, err := svc.History(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "payment_pending", entries[0].ToStatus)
	assert.Equal(t, "confirmed", entries[1].ToStatus)
	assert.Equal(t, "payment:callback", entries[1].Actor)

	_, err = svc.History(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestGetOrders(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	seedOrder(store, order.StatusPending, nil)
	seedOrder(store, order.StatusConfirmed, nil)

	orders, err := svc.GetOrders(context.Background(), order.QueryOrdersModel{
		UserIds:  []string{"user-1"},
		Statuses: []order.Status{order.StatusConfirmed},
	})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.StatusConfirmed, orders[0].Status)

	orders, err = svc.GetOrders(context.Background(), order.QueryOrdersModel{UserIds: []string{"someone-else"}})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestExpireStalePayments(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	stale := seedOrder(store, order.StatusPaymentPending, ref("fd_1_a"))
	fresh := seedOrder(store, order.StatusPaymentPending, ref("fd_2_b"))
	fresh.UpdatedAt = fixedNow.Add(-time.Minute)
	store.put(fresh)
	pending := seedOrder(store, order.StatusPending, nil)

	expired, err := svc.ExpireStalePayments(context.Background(), 30*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	assert.Equal(t, order.StatusCancelled, store.get(stale.ID).Status)
	assert.Equal(t, order.StatusPaymentPending, store.get(fresh.ID).Status)
	assert.Equal(t, order.StatusPending, store.get(pending.ID).Status)

	entries := store.auditFor(stale.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, ActorExpiry, entries[0].Actor)
}
