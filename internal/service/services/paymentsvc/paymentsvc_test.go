package paymentsvc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	memoryrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/signal/memory"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/payment"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/ordersvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrders follows the transition rules of the order service on a single mutex.
type fakeOrders struct {
	mu          sync.Mutex
	orders      map[string]order.Order
	actors      []string
	transitions int
	failWith    error
}

func newFakeOrders(orders ...order.Order) *fakeOrders {
	f := &fakeOrders{orders: make(map[string]order.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}

	return f
}

func (f *fakeOrders) get(id string) order.Order {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.orders[id]
}

func (f *fakeOrders) GetOrder(_ context.Context, orderID string) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}

	return o, nil
}

func (f *fakeOrders) BeginPayment(_ context.Context, orderID, reference string) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	if o.Status != order.StatusPaymentPending {
		if err := order.ValidateTransition(o.Status, order.StatusPaymentPending); err != nil {
			return order.Order{}, err
		}
		o.Status = order.StatusPaymentPending
	}
	o.PaymentReference = &reference
	f.orders[orderID] = o

	return o, nil
}

func (f *fakeOrders) AbortPayment(_ context.Context, orderID, reference string) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o := f.orders[orderID]
	if o.Status != order.StatusPaymentPending {
		return order.Order{}, &order.TransitionError{From: o.Status, To: order.StatusPending}
	}
	if !o.HasReference(reference) {
		return order.Order{}, order.ErrStaleReference
	}
	o.Status = order.StatusPending
	o.PaymentReference = nil
	f.orders[orderID] = o

	return o, nil
}

func (f *fakeOrders) Transition(
	_ context.Context,
	orderID string,
	target order.Status,
	opts ...ordersvc.TransitionOption,
) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return order.Order{}, f.failWith
	}

	o, ok := f.orders[orderID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}

	reference, actor := ordersvc.ResolveTransitionOptions(opts...)
	if reference != nil && !o.HasReference(*reference) {
		return order.Order{}, order.ErrStaleReference
	}
	if err := order.ValidateTransition(o.Status, target); err != nil {
		return order.Order{}, err
	}

	o.Status = target
	f.orders[orderID] = o
	f.actors = append(f.actors, actor)
	f.transitions++

	return o, nil
}

type fakeGateway struct {
	calls []payment.InitializeRequest
	err   error

	verified     []string
	verification *payment.Verification
	verifyErr    error
}

// Verify reports every reference as paid for the test order total unless
// verification or verifyErr is set.
func (g *fakeGateway) Verify(_ context.Context, reference string) (payment.Verification, error) {
	g.verified = append(g.verified, reference)
	if g.verifyErr != nil {
		return payment.Verification{}, g.verifyErr
	}
	if g.verification != nil {
		return *g.verification, nil
	}

	return payment.Verification{Reference: reference, Status: "success", Amount: 4500}, nil
}

func (g *fakeGateway) Initialize(_ context.Context, req payment.InitializeRequest) (payment.Initialization, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return payment.Initialization{}, g.err
	}

	return payment.Initialization{
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

type fakeCarts struct {
	cleared atomic.Int32
	users   sync.Map
}

func (c *fakeCarts) Clear(userID string) {
	c.cleared.Add(1)
	c.users.Store(userID, true)
}

type fixture struct {
	svc     *PaymentService
	orders  *fakeOrders
	gateway *fakeGateway
	signals *memoryrepo.SignalMemoryRepository
	carts   *fakeCarts
}

func newFixture(orders ...order.Order) *fixture {
	f := &fixture{
		orders:  newFakeOrders(orders...),
		gateway: &fakeGateway{},
		signals: memoryrepo.NewSignalMemoryRepository(),
		carts:   &fakeCarts{},
	}
	f.svc = MustNewPaymentService(
		WithOrderService(f.orders),
		WithGateway(f.gateway),
		WithSignalRepository(f.signals),
		WithCartService(f.carts),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
		WithCallbackURL("https://app.example/api/payments/callback"),
	)

	return f
}

func testOrder(status order.Status, reference *string) order.Order {
	return order.Order{
		ID:               "order-1",
		UserID:           "user-1",
		TotalAmount:      4500,
		Status:           status,
		PaymentReference: reference,
	}
}

func strPtr(s string) *string {
	return &s
}

func TestInitiate(t *testing.T) {
	f := newFixture(testOrder(order.StatusPending, nil))

	session, err := f.svc.Initiate(context.Background(), InitiateRequest{
		OrderID: "order-1",
		UserID:  "user-1",
		Email:   "ada@example.com",
	})
	require.NoError(t, err)

	assert.Regexp(t, `^fd_1700000000000_[0-9a-f]{12}$`, session.Reference)
	assert.Equal(t, int64(4500), session.Amount)
	assert.Equal(t, "https://checkout.example/"+session.Reference, session.AuthorizationURL)

	require.Len(t, f.gateway.calls, 1)
	call := f.gateway.calls[0]
	assert.Equal(t, int64(4500), call.Amount)
	assert.Equal(t, "ada@example.com", call.Email)
	assert.Equal(t, "order-1", call.Metadata.OrderID)
	assert.Equal(t, "https://app.example/api/payments/callback", call.CallbackURL)

	stored := f.orders.get("order-1")
	assert.Equal(t, order.StatusPaymentPending, stored.Status)
	assert.True(t, stored.HasReference(session.Reference))
}

func TestInitiateGatewayFailureRevertsOrder(t *testing.T) {
	f := newFixture(testOrder(order.StatusPending, nil))
	f.gateway.err = errors.New("gateway unavailable")

	_, err := f.svc.Initiate(context.Background(), InitiateRequest{OrderID: "order-1", UserID: "user-1", Email: "a@b.c"})
	require.ErrorIs(t, err, payment.ErrPaymentInitializationFailed)

	stored := f.orders.get("order-1")
	assert.Equal(t, order.StatusPending, stored.Status)
	assert.Nil(t, stored.PaymentReference)
}

func TestInitiateRejections(t *testing.T) {
	tests := []struct {
		name    string
		order   order.Order
		userID  string
		wantErr error
	}{
		{"settled order", testOrder(order.StatusConfirmed, strPtr("fd_1_a")), "user-1", order.ErrInvalidTransition},
		{"cancelled order", testOrder(order.StatusCancelled, nil), "user-1", order.ErrInvalidTransition},
		{"foreign order", testOrder(order.StatusPending, nil), "user-2", order.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.order)

			_, err := f.svc.Initiate(context.Background(), InitiateRequest{OrderID: "order-1", UserID: tt.userID})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.gateway.calls)
		})
	}
}

func TestRetryWhilePaymentPendingSupersedesReference(t *testing.T) {
	f := newFixture(testOrder(order.StatusPending, nil))

	first, err := f.svc.Initiate(context.Background(), InitiateRequest{OrderID: "order-1", UserID: "user-1"})
	require.NoError(t, err)
	second, err := f.svc.Initiate(context.Background(), InitiateRequest{OrderID: "order-1", UserID: "user-1"})
	require.NoError(t, err)
	require.NotEqual(t, first.Reference, second.Reference)

	result, err := f.svc.OnSignal(context.Background(), payment.Signal{
		Reference: first.Reference,
		OrderID:   "order-1",
		Outcome:   payment.OutcomeSuccess,
		Channel:   payment.ChannelCallback,
	})
	require.ErrorIs(t, err, order.ErrStaleReference)
	assert.Equal(t, RouteCart, result.Route)
	assert.False(t, f.signals.Marked(first.Reference))

	result, err = f.svc.OnSignal(context.Background(), payment.Signal{
		Reference: second.Reference,
		OrderID:   "order-1",
		Outcome:   payment.OutcomeSuccess,
		Channel:   payment.ChannelCallback,
	})
	require.NoError(t, err)
	assert.Equal(t, RouteOrderInProgress, result.Route)
	assert.Equal(t, order.StatusConfirmed, f.orders.get("order-1").Status)
}

func TestOnSignal(t *testing.T) {
	tests := []struct {
		name       string
		outcome    payment.Outcome
		wantStatus order.Status
	}{
		{"success confirms", payment.OutcomeSuccess, order.StatusConfirmed},
		{"failure cancels", payment.OutcomeFailure, order.StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(testOrder(order.StatusPaymentPending, strPtr("fd_1_a")))

			result, err := f.svc.OnSignal(context.Background(), payment.Signal{
				Reference: "fd_1_a",
				OrderID:   "order-1",
				Outcome:   tt.outcome,
				Channel:   payment.ChannelEmbedded,
			})
			require.NoError(t, err)

			assert.False(t, result.Duplicate)
			assert.Equal(t, RouteOrderInProgress, result.Route)
			require.NotNil(t, result.Order)
			assert.Equal(t, tt.wantStatus, result.Order.Status)
			assert.True(t, f.signals.Marked("fd_1_a"))
			assert.Equal(t, int32(1), f.carts.cleared.Load())
			assert.Equal(t, []string{"payment:embedded"}, f.orders.actors)
		})
	}
}

func TestOnSignalDuplicateIsDiscarded(t *testing.T) {
	f := newFixture(testOrder(order.StatusPaymentPending, strPtr("fd_1_a")))
	sig := payment.Signal{Reference: "fd_1_a", OrderID: "order-1", Outcome: payment.OutcomeSuccess, Channel: payment.ChannelEmbedded}

	_, err := f.svc.OnSignal(context.Background(), sig)
	require.NoError(t, err)

	sig.Channel = payment.ChannelCallback
	sig.Outcome = payment.OutcomeFailure
	result, err := f.svc.OnSignal(context.Background(), sig)
	require.NoError(t, err)

	assert.True(t, result.Duplicate)
	assert.Equal(t, RouteNone, result.Route)
	assert.Equal(t, order.StatusConfirmed, f.orders.get("order-1").Status)
	assert.Equal(t, 1, f.orders.transitions)
	assert.Equal(t, int32(1), f.carts.cleared.Load())
}

func TestOnSignalConcurrentDuplicatesApplyOnce(t *testing.T) {
	f := newFixture(testOrder(order.StatusPaymentPending, strPtr("fd_1_a")))

	channels := []payment.Channel{
		payment.ChannelEmbedded,
		payment.ChannelCallback,
		payment.ChannelGatewayEvent,
		payment.ChannelRPC,
	}

	var wg sync.WaitGroup
	var duplicates atomic.Int32
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.OnSignal(context.Background(), payment.Signal{
				Reference: "fd_1_a",
				OrderID:   "order-1",
				Outcome:   payment.OutcomeSuccess,
				Channel:   channels[i%len(channels)],
			})
			assert.NoError(t, err)
			if result.Duplicate {
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.orders.transitions)
	assert.Equal(t, int32(19), duplicates.Load())
	assert.Equal(t, int32(1), f.carts.cleared.Load())
}

func TestOnSignalFailureUnmarksReference(t *testing.T) {
	tests := []struct {
		name    string
		order   order.Order
		sig     payment.Signal
		wantErr error
	}{
		{
			name:    "already settled",
			order:   testOrder(order.StatusCancelled, strPtr("fd_1_a")),
			sig:     payment.Signal{Reference: "fd_1_a", OrderID: "order-1", Outcome: payment.OutcomeSuccess},
			wantErr: order.ErrInvalidTransition,
		},
		{
			name:    "unknown order",
			order:   testOrder(order.StatusPaymentPending, strPtr("fd_1_a")),
			sig:     payment.Signal{Reference: "fd_1_a", OrderID: "order-2", Outcome: payment.OutcomeSuccess},
			wantErr: order.ErrNotFound,
		},
		{
			name:    "stale reference",
			order:   testOrder(order.StatusPaymentPending, strPtr("fd_2_b")),
			sig:     payment.Signal{Reference: "fd_1_a", OrderID: "order-1", Outcome: payment.OutcomeFailure},
			wantErr: order.ErrStaleReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.order)

			result, err := f.svc.OnSignal(context.Background(), tt.sig)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, RouteCart, result.Route)
			assert.False(t, result.Duplicate)
			assert.False(t, f.signals.Marked(tt.sig.Reference))
			assert.Zero(t, f.carts.cleared.Load())
		})
	}
}

func TestOnSignalAfterMarkerExpiry(t *testing.T) {
	tests := []struct {
		name          string
		order         order.Order
		outcome       payment.Outcome
		wantDuplicate bool
		wantErr       error
	}{
		{
			name:          "success redelivered to confirmed order",
			order:         testOrder(order.StatusConfirmed, strPtr("fd_1_a")),
			outcome:       payment.OutcomeSuccess,
			wantDuplicate: true,
		},
		{
			name:          "success redelivered after kitchen progress",
			order:         testOrder(order.StatusPreparing, strPtr("fd_1_a")),
			outcome:       payment.OutcomeSuccess,
			wantDuplicate: true,
		},
		{
			name:          "failure redelivered to cancelled order",
			order:         testOrder(order.StatusCancelled, strPtr("fd_1_a")),
			outcome:       payment.OutcomeFailure,
			wantDuplicate: true,
		},
		{
			name:    "success for cancelled order",
			order:   testOrder(order.StatusCancelled, strPtr("fd_1_a")),
			outcome: payment.OutcomeSuccess,
			wantErr: order.ErrInvalidTransition,
		},
		{
			name:    "success for order that dropped the reference",
			order:   testOrder(order.StatusPending, nil),
			outcome: payment.OutcomeSuccess,
			wantErr: order.ErrStaleReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A fresh signal store stands in for a marker that expired.
			f := newFixture(tt.order)

			result, err := f.svc.OnSignal(context.Background(), payment.Signal{
				Reference: "fd_1_a",
				OrderID:   "order-1",
				Outcome:   tt.outcome,
				Channel:   payment.ChannelGatewayEvent,
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, RouteCart, result.Route)
				assert.False(t, f.signals.Marked("fd_1_a"))
			} else {
				require.NoError(t, err)
				assert.Equal(t, RouteNone, result.Route)
				assert.True(t, f.signals.Marked("fd_1_a"))
			}
			assert.Equal(t, tt.wantDuplicate, result.Duplicate)
			assert.Zero(t, f.orders.transitions)
			assert.Zero(t, f.carts.cleared.Load())
			assert.Equal(t, tt.order.Status, f.orders.get("order-1").Status)
		})
	}
}

func TestOnSignalTransientFailureCanBeRetried(t *testing.T) {
	f := newFixture(testOrder(order.StatusPaymentPending, strPtr("fd_1_a")))
	f.orders.failWith = errors.New("database unavailable")
	sig := payment.Signal{Reference: "fd_1_a", OrderID: "order-1", Outcome: payment.OutcomeSuccess}

	_, err := f.svc.OnSignal(context.Background(), sig)
	require.Error(t, err)

	f.orders.failWith = nil
	result, err := f.svc.OnSignal(context.Background(), sig)
	require.NoError(t, err)
	assert.Equal(t, RouteOrderInProgress, result.Route)
}

func TestOnSignalValidation(t *testing.T) {
	f := newFixture()

	_, err := f.svc.OnSignal(context.Background(), payment.Signal{OrderID: "order-1"})
	assert.ErrorIs(t, err, payment.ErrMissingReference)

	_, err = f.svc.OnSignal(context.Background(), payment.Signal{Reference: "fd_1_a"})
	assert.ErrorIs(t, err, payment.ErrMissingOrderID)
}

func TestHandleEmbeddedMessage(t *testing.T) {
	session := EmbeddedSession{OrderID: "order-1", Reference: "fd_1_a"}

	tests := []struct {
		name       string
		raw        string
		wantErr    error
		wantRoute  Route
		wantStatus order.Status
	}{
		{
			name:       "flat success",
			raw:        `{"status":"success"}`,
			wantRoute:  RouteOrderInProgress,
			wantStatus: order.StatusConfirmed,
		},
		{
			name:       "string encoded event failure",
			raw:        `"{\"event\":\"closed\",\"data\":{\"status\":\"failed\",\"reference\":\"fd_1_a\"}}"`,
			wantRoute:  RouteOrderInProgress,
			wantStatus: order.StatusCancelled,
		},
		{
			name:       "unrecognized",
			raw:        `{"hello":"world"}`,
			wantErr:    payment.ErrUnrecognizedMessage,
			wantRoute:  RouteNone,
			wantStatus: order.StatusPaymentPending,
		},
		{
			name:       "message for another attempt",
			raw:        `{"status":"success","reference":"fd_0_old"}`,
			wantErr:    order.ErrStaleReference,
			wantRoute:  RouteCart,
			wantStatus: order.StatusPaymentPending,
		},
		{
			name:       "message for another order",
			raw:        `{"status":"success","orderId":"order-9"}`,
			wantErr:    order.ErrStaleReference,
			wantRoute:  RouteCart,
			wantStatus: order.StatusPaymentPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(testOrder(order.StatusPaymentPending, strPtr("fd_1_a")))

			result, err := f.svc.HandleEmbeddedMessage(context.Background(), session, []byte(tt.raw))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantRoute, result.Route)
			assert.Equal(t, tt.wantStatus, f.orders.get("order-1").Status)
		})
	}
}

func TestHandleCallback(t *testing.T) {
	f := newFixture(testOrder(order.StatusPaymentPending, strPtr("fd_1_a")))

	result, err := f.svc.HandleCallback(context.Background(), CallbackParams{
		Status:    "success",
		Reference: "fd_1_a",
		OrderID:   "order-1",
	})
	require.NoError(t, err)
	assert.Equal(t, RouteOrderInProgress, result.Route)
	assert.Equal(t, []string{"payment:callback"}, f.orders.actors)
	assert.Equal(t, []string{"fd_1_a"}, f.gateway.verified)
}

func TestClientReportedSuccessIsVerified(t *testing.T) {
	session := EmbeddedSession{OrderID: "order-1", Reference: "fd_1_a"}
	callback := CallbackParams{Status: "success", Reference: "fd_1_a", OrderID: "order-1"}

	tests := []struct {
		name         string
		verification *payment.Verification
		verifyErr    error
		wantErr      error
	}{
		{
			name:         "not paid",
			verification: &payment.Verification{Reference: "fd_1_a", Status: "abandoned", Amount: 4500},
			wantErr:      payment.ErrPaymentNotVerified,
		},
		{
			name:         "paid less than total",
			verification: &payment.Verification{Reference: "fd_1_a", Status: "success", Amount: 100},
			wantErr:      payment.ErrPaymentNotVerified,
		},
		{
			name:         "paid for another reference",
			verification: &payment.Verification{Reference: "fd_9_z", Status: "success", Amount: 4500},
			wantErr:      payment.ErrPaymentNotVerified,
		},
		{
			name:      "gateway unreachable",
			verifyErr: errors.New("connection refused"),
		},
	}

	handlers := map[string]func(f *fixture) (Result, error){
		"embedded": func(f *fixture) (Result, error) {
			return f.svc.HandleEmbeddedMessage(context.Background(), session, []byte(`{"status":"success"}`))
		},
		"callback": func(f *fixture) (Result, error) {
			return f.svc.HandleCallback(context.Background(), callback)
		},
	}

	for _, tt := range tests {
		for surface, handle := range handlers {
			t.Run(tt.name+" via "+surface, func(t *testing.T) {
				f := newFixture(testOrder(order.StatusPaymentPending, strPtr("fd_1_a")))
				f.gateway.verification = tt.verification
				f.gateway.verifyErr = tt.verifyErr

				result, err := handle(f)
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.NotErrorIs(t, err, payment.ErrPaymentNotVerified)
				}
				assert.Equal(t, RouteCart, result.Route)
				assert.Equal(t, []string{"fd_1_a"}, f.gateway.verified)
				assert.Equal(t, order.StatusPaymentPending, f.orders.get("order-1").Status)
				assert.False(t, f.signals.Marked("fd_1_a"))
				assert.Zero(t, f.carts.cleared.Load())
			})
		}
	}
}

func TestClientReportedFailureSkipsVerification(t *testing.T) {
	f := newFixture(testOrder(order.StatusPaymentPending, strPtr("fd_1_a")))

	result, err := f.svc.HandleCallback(context.Background(), CallbackParams{
		Status:    "abandoned",
		Reference: "fd_1_a",
		OrderID:   "order-1",
	})
	require.NoError(t, err)
	assert.Equal(t, RouteOrderInProgress, result.Route)
	assert.Empty(t, f.gateway.verified)
	assert.Equal(t, order.StatusCancelled, f.orders.get("order-1").Status)
}

func TestGatewayEventSkipsVerification(t *testing.T) {
	f := newFixture(testOrder(order.StatusPaymentPending, strPtr("fd_1_a")))
	f.gateway.verification = &payment.Verification{Reference: "fd_1_a", Status: "abandoned"}

	_, err := f.svc.OnSignal(context.Background(), payment.Signal{
		Reference: "fd_1_a",
		OrderID:   "order-1",
		Outcome:   payment.OutcomeSuccess,
		Channel:   payment.ChannelGatewayEvent,
	})
	require.NoError(t, err)
	assert.Empty(t, f.gateway.verified)
	assert.Equal(t, order.StatusConfirmed, f.orders.get("order-1").Status)
}
