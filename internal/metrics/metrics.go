package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodorder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foodorder_http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)

	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodorder_order_transitions_total",
			Help: "Applied order status transitions",
		},
		[]string{"from", "to"},
	)

	RejectedTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodorder_order_transitions_rejected_total",
			Help: "Order status transitions rejected by the state machine",
		},
		[]string{"reason"},
	)

	PaymentInitializations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodorder_payment_initializations_total",
			Help: "Payment initialization attempts by result",
		},
		[]string{"result"},
	)

	PaymentSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foodorder_payment_signals_total",
			Help: "Payment signals by channel and result",
		},
		[]string{"channel", "result"},
	)

	ExpiredOrders = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodorder_expired_orders_total",
			Help: "Orders cancelled because their payment was abandoned",
		},
	)

	EvictedCarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foodorder_evicted_carts_total",
			Help: "Carts dropped after staying idle past the cart TTL",
		},
	)
)
