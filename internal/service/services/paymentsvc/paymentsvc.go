package paymentsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/isignalrepo"
	"github.com/corray333/backend-labs/foodorder/internal/metrics"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/payment"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/ordersvc"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Route tells the caller where the user should be sent after a signal.
type Route string

const (
	RouteNone            Route = ""
	RouteOrderInProgress Route = "order_in_progress"
	RouteCart            Route = "cart"
)

type orderService interface {
	GetOrder(ctx context.Context, orderID string) (order.Order, error)
	BeginPayment(ctx context.Context, orderID, reference string) (order.Order, error)
	AbortPayment(ctx context.Context, orderID, reference string) (order.Order, error)
	Transition(
		ctx context.Context,
		orderID string,
		target order.Status,
		opts ...ordersvc.TransitionOption,
	) (order.Order, error)
}

type gateway interface {
	Initialize(ctx context.Context, req payment.InitializeRequest) (payment.Initialization, error)
	Verify(ctx context.Context, reference string) (payment.Verification, error)
}

type cartService interface {
	Clear(userID string)
}

// PaymentService starts payment attempts and reconciles their outcomes.
type PaymentService struct {
	orders      orderService
	gateway     gateway
	signals     isignalrepo.ISignalRepository
	carts       cartService
	now         func() time.Time
	callbackURL string
	appID       string
}

// option is a function that configures the PaymentService.
type option func(*PaymentService)

// MustNewPaymentService creates a new PaymentService.
func MustNewPaymentService(opts ...option) *PaymentService {
	s := &PaymentService{
		now:         time.Now,
		callbackURL: viper.GetString("payment.callback_url"),
		appID:       viper.GetString("payment.app_id"),
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case s.orders == nil:
		panic("payment service requires an order service")
	case s.gateway == nil:
		panic("payment service requires a gateway")
	case s.signals == nil:
		panic("payment service requires a signal repository")
	case s.carts == nil:
		panic("payment service requires a cart service")
	}

	return s
}

// WithOrderService sets the order state machine.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderService(orders orderService) option {
	return func(s *PaymentService) {
		s.orders = orders
	}
}

// WithGateway sets the payment gateway client.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithGateway(gw gateway) option {
	return func(s *PaymentService) {
		s.gateway = gw
	}
}

// WithSignalRepository sets the processed marker store.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSignalRepository(repo isignalrepo.ISignalRepository) option {
	return func(s *PaymentService) {
		s.signals = repo
	}
}

// WithCartService sets the carts cleared after a reconciled payment.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCartService(carts cartService) option {
	return func(s *PaymentService) {
		s.carts = carts
	}
}

// WithClock overrides the time source used for references.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *PaymentService) {
		s.now = now
	}
}

// WithCallbackURL sets where the gateway returns the user after checkout.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCallbackURL(url string) option {
	return func(s *PaymentService) {
		s.callbackURL = url
	}
}

// InitiateRequest starts a payment for an order owned by UserID.
type InitiateRequest struct {
	OrderID string
	UserID  string
	Email   string
}

// Initiate opens a gateway session for the order. The order moves to
// payment_pending before the gateway is contacted and is moved back to
// pending if the gateway fails.
func (s *PaymentService) Initiate(ctx context.Context, req InitiateRequest) (payment.Session, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "PaymentService.Initiate")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", req.OrderID))

	o, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return payment.Session{}, err
	}
	if req.UserID != "" && o.UserID != req.UserID {
		return payment.Session{}, order.ErrNotFound
	}

	reference := payment.NewReference(s.now())
	span.SetAttributes(attribute.String("payment.reference", reference))

	if _, err := s.orders.BeginPayment(ctx, o.ID, reference); err != nil {
		metrics.PaymentInitializations.WithLabelValues("rejected").Inc()

		return payment.Session{}, err
	}

	initialized, err := s.gateway.Initialize(ctx, payment.InitializeRequest{
		Email:       req.Email,
		Amount:      o.TotalAmount,
		Reference:   reference,
		CallbackURL: s.callbackURL,
		Metadata: payment.Metadata{
			OrderID: o.ID,
			AppID:   s.appID,
		},
	})
	if err != nil {
		span.RecordError(err)
		metrics.PaymentInitializations.WithLabelValues("failed").Inc()

		if _, revertErr := s.orders.AbortPayment(context.WithoutCancel(ctx), o.ID, reference); revertErr != nil {
			slog.Error("Failed to revert order after payment initialization failure",
				"order_id", o.ID,
				"reference", reference,
				"error", revertErr,
			)
		}

		return payment.Session{}, fmt.Errorf("%w: %w", payment.ErrPaymentInitializationFailed, err)
	}

	metrics.PaymentInitializations.WithLabelValues("ok").Inc()
	slog.Info("Payment initialized", "order_id", o.ID, "reference", reference, "amount", o.TotalAmount)

	return payment.Session{
		OrderID:          o.ID,
		Reference:        reference,
		AuthorizationURL: initialized.AuthorizationURL,
		AccessCode:       initialized.AccessCode,
		Amount:           o.TotalAmount,
	}, nil
}

// Result is the outcome of reconciling one signal.
type Result struct {
	// Duplicate is set when the reference was already processed and the
	// signal was discarded.
	Duplicate bool
	Route     Route
	Order     *order.Order
}

// OnSignal applies a payment outcome to its order at most once per reference.
// The reference is marked before the transition so concurrent duplicates are
// discarded, and unmarked again if the transition fails.
func (s *PaymentService) OnSignal(ctx context.Context, sig payment.Signal) (Result, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "PaymentService.OnSignal")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.reference", sig.Reference),
		attribute.String("payment.channel", string(sig.Channel)),
	)

	if err := sig.Validate(); err != nil {
		metrics.PaymentSignals.WithLabelValues(string(sig.Channel), "invalid").Inc()

		return Result{Route: RouteCart}, err
	}

	marked, err := s.signals.TryMark(ctx, sig.Reference)
	if err != nil {
		metrics.PaymentSignals.WithLabelValues(string(sig.Channel), "error").Inc()

		return Result{Route: RouteCart}, err
	}
	if !marked {
		metrics.PaymentSignals.WithLabelValues(string(sig.Channel), "duplicate").Inc()
		slog.Info("Discarding duplicate payment signal", "reference", sig.Reference, "channel", sig.Channel)

		return Result{Duplicate: true, Route: RouteNone}, nil
	}

	target := order.StatusCancelled
	if sig.Outcome == payment.OutcomeSuccess {
		target = order.StatusConfirmed
	}

	o, err := s.orders.Transition(
		ctx,
		sig.OrderID,
		target,
		ordersvc.WithExpectedReference(sig.Reference),
		ordersvc.WithActor(ordersvc.ActorPayment+":"+string(sig.Channel)),
	)
	if err != nil {
		if errors.Is(err, order.ErrInvalidTransition) && s.alreadyApplied(ctx, sig, target) {
			metrics.PaymentSignals.WithLabelValues(string(sig.Channel), "duplicate").Inc()
			slog.Info("Discarding payment signal already applied to order",
				"reference", sig.Reference,
				"order_id", sig.OrderID,
				"channel", sig.Channel,
			)

			return Result{Duplicate: true, Route: RouteNone}, nil
		}
		if unmarkErr := s.signals.Unmark(context.WithoutCancel(ctx), sig.Reference); unmarkErr != nil {
			slog.Error("Failed to unmark payment reference", "reference", sig.Reference, "error", unmarkErr)
		}
		metrics.PaymentSignals.WithLabelValues(string(sig.Channel), signalFailure(err)).Inc()
		slog.Warn("Payment signal not applied",
			"reference", sig.Reference,
			"order_id", sig.OrderID,
			"outcome", sig.Outcome,
			"error", err,
		)

		return Result{Route: RouteCart}, err
	}

	s.carts.Clear(o.UserID)
	metrics.PaymentSignals.WithLabelValues(string(sig.Channel), "applied").Inc()

	return Result{Route: RouteOrderInProgress, Order: &o}, nil
}

// EmbeddedSession identifies the payment attempt an embedded checkout belongs to.
type EmbeddedSession struct {
	OrderID   string
	Reference string
}

// HandleEmbeddedMessage reconciles a message posted by the embedded checkout.
func (s *PaymentService) HandleEmbeddedMessage(
	ctx context.Context,
	session EmbeddedSession,
	raw []byte,
) (Result, error) {
	msg, err := payment.DecodeEmbeddedMessage(raw)
	if err != nil {
		metrics.PaymentSignals.WithLabelValues(string(payment.ChannelEmbedded), "unrecognized").Inc()

		return Result{Route: RouteNone}, err
	}

	if (msg.Reference != "" && msg.Reference != session.Reference) ||
		(msg.OrderID != "" && msg.OrderID != session.OrderID) {
		metrics.PaymentSignals.WithLabelValues(string(payment.ChannelEmbedded), "stale_reference").Inc()

		return Result{Route: RouteCart}, order.ErrStaleReference
	}

	return s.onClientSignal(ctx, payment.Signal{
		Reference: session.Reference,
		OrderID:   session.OrderID,
		Outcome:   payment.ParseOutcome(msg.Status),
		Channel:   payment.ChannelEmbedded,
	})
}

// CallbackParams are the parameters of the gateway return path.
type CallbackParams struct {
	Status    string `schema:"status"`
	Reference string `schema:"reference"`
	OrderID   string `schema:"orderId"`
}

// HandleCallback reconciles the external return path.
func (s *PaymentService) HandleCallback(ctx context.Context, params CallbackParams) (Result, error) {
	return s.onClientSignal(ctx, payment.Signal{
		Reference: params.Reference,
		OrderID:   params.OrderID,
		Outcome:   payment.ParseOutcome(params.Status),
		Channel:   payment.ChannelCallback,
	})
}

// onClientSignal reconciles an outcome reported by the user's browser. A
// reported success is only applied once the gateway confirms the reference
// was paid in full.
func (s *PaymentService) onClientSignal(ctx context.Context, sig payment.Signal) (Result, error) {
	if sig.Outcome != payment.OutcomeSuccess {
		return s.OnSignal(ctx, sig)
	}
	if err := sig.Validate(); err != nil {
		metrics.PaymentSignals.WithLabelValues(string(sig.Channel), "invalid").Inc()

		return Result{Route: RouteCart}, err
	}

	if err := s.verify(ctx, sig); err != nil {
		metrics.PaymentSignals.WithLabelValues(string(sig.Channel), signalFailure(err)).Inc()
		slog.Warn("Client reported payment not verified",
			"reference", sig.Reference,
			"order_id", sig.OrderID,
			"channel", sig.Channel,
			"error", err,
		)

		return Result{Route: RouteCart}, err
	}

	return s.OnSignal(ctx, sig)
}

func (s *PaymentService) verify(ctx context.Context, sig payment.Signal) error {
	ctx, span := otel.Tracer("service").Start(ctx, "PaymentService.verify")
	defer span.End()

	o, err := s.orders.GetOrder(ctx, sig.OrderID)
	if err != nil {
		return err
	}

	v, err := s.gateway.Verify(ctx, sig.Reference)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to verify payment: %w", err)
	}
	if !v.Covers(sig.Reference, o.TotalAmount) {
		return fmt.Errorf("%w: reference %s is %q for %d of %d",
			payment.ErrPaymentNotVerified, sig.Reference, v.Status, v.Amount, o.TotalAmount)
	}

	return nil
}

// alreadyApplied reports whether the order already holds the signal's
// reference and has reached target, or moved on from confirmed to a later
// kitchen state. It covers redeliveries that arrive after the marker expired.
func (s *PaymentService) alreadyApplied(ctx context.Context, sig payment.Signal, target order.Status) bool {
	o, err := s.orders.GetOrder(ctx, sig.OrderID)
	if err != nil {
		slog.Error("Failed to load order for duplicate check", "order_id", sig.OrderID, "error", err)

		return false
	}
	if !o.HasReference(sig.Reference) {
		return false
	}

	switch target {
	case order.StatusConfirmed:
		switch o.Status {
		case order.StatusConfirmed, order.StatusPreparing, order.StatusReady, order.StatusCompleted:
			return true
		}
	case order.StatusCancelled:
		return o.Status == order.StatusCancelled
	}

	return false
}

func signalFailure(err error) string {
	switch {
	case errors.Is(err, order.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, order.ErrStaleReference):
		return "stale_reference"
	case errors.Is(err, order.ErrNotFound):
		return "not_found"
	case errors.Is(err, payment.ErrPaymentNotVerified):
		return "not_verified"
	default:
		return "error"
	}
}
