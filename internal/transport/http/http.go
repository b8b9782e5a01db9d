package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/corray333/backend-labs/foodorder/docs"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/auditlog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/cart"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/payment"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/cartsvc"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/paymentsvc"
	createorder "github.com/corray333/backend-labs/foodorder/internal/transport/http/create_order"
	getorder "github.com/corray333/backend-labs/foodorder/internal/transport/http/get_order"
	initiatepayment "github.com/corray333/backend-labs/foodorder/internal/transport/http/initiate_payment"
	listorders "github.com/corray333/backend-labs/foodorder/internal/transport/http/list_orders"
	managecart "github.com/corray333/backend-labs/foodorder/internal/transport/http/manage_cart"
	paymentcallback "github.com/corray333/backend-labs/foodorder/internal/transport/http/payment_callback"
	paymentmessage "github.com/corray333/backend-labs/foodorder/internal/transport/http/payment_message"
	"github.com/corray333/backend-labs/foodorder/internal/transport/http/respond"
	updatestatus "github.com/corray333/backend-labs/foodorder/internal/transport/http/update_status"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/auth"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/metrics"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/ratelimit"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/foodorder/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type orderService interface {
	CreateOrder(ctx context.Context, req ordersvc.CreateOrderRequest) (order.Order, error)
	GetOrder(ctx context.Context, orderID string) (order.Order, error)
	GetOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.Order, error)
	History(ctx context.Context, orderID string) ([]auditlog.AuditLogOrder, error)
	Transition(
		ctx context.Context,
		orderID string,
		target order.Status,
		opts ...ordersvc.TransitionOption,
	) (order.Order, error)
}

type cartService interface {
	Get(userID string) cartsvc.View
	AddItem(userID string, item cart.Item) cartsvc.View
	UpdateQuantity(userID, itemID string, quantity int) (cartsvc.View, bool)
	RemoveItem(userID, itemID string) cartsvc.View
	Clear(userID string)
	Items(userID string) []cart.Item
}

type paymentService interface {
	Initiate(ctx context.Context, req paymentsvc.InitiateRequest) (payment.Session, error)
	HandleEmbeddedMessage(ctx context.Context, session paymentsvc.EmbeddedSession, raw []byte) (paymentsvc.Result, error)
	HandleCallback(ctx context.Context, params paymentsvc.CallbackParams) (paymentsvc.Result, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type HTTPTransport struct {
	server    *http.Server
	router    *chi.Mux
	orders    orderService
	carts     cartService
	payments  paymentService
	verifier  *auth.Verifier
	limiter   *ratelimit.Limiter
	redirects paymentcallback.Redirects
	checks    map[string]ReadinessCheck
	stopCh    chan struct{}
}

func NewHTTPTransport(
	orders orderService,
	carts cartService,
	payments paymentService,
	verifier *auth.Verifier,
) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	rps := viper.GetFloat64("ratelimit.payment.rps")
	if rps == 0 {
		rps = 1
	}
	burst := viper.GetInt("ratelimit.payment.burst")
	if burst == 0 {
		burst = 5
	}

	return &HTTPTransport{
		server:   server,
		router:   router,
		orders:   orders,
		carts:    carts,
		payments: payments,
		verifier: verifier,
		limiter:  ratelimit.New(rps, burst),
		redirects: paymentcallback.Redirects{
			InProgressURL: viper.GetString("payment.redirect.in_progress_url"),
			CartURL:       viper.GetString("payment.redirect.cart_url"),
		},
		checks: make(map[string]ReadinessCheck),
		stopCh: make(chan struct{}),
	}
}

// Handler exposes the router, mostly for tests.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

// AddReadinessCheck registers a dependency checked by /readyz.
func (h *HTTPTransport) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

func (h *HTTPTransport) Run() error {
	go h.cleanupLimiter()

	return h.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	close(h.stopCh)

	return h.server.Shutdown(ctx)
}

func (h *HTTPTransport) cleanupLimiter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.limiter.Cleanup()
		}
	}
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/healthz", h.healthz)
	h.router.Get("/readyz", h.readyz)
	h.router.Handle("/metrics", promhttp.Handler())
	h.router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	h.router.Route("/api", func(r chi.Router) {
		r.With(h.limiter.Middleware(ratelimit.ByIP)).Get("/payments/callback", h.paymentCallback)

		r.Group(func(r chi.Router) {
			r.Use(h.verifier.Middleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.getCart)
				r.Delete("/", h.clearCart)
				r.Post("/items", h.addItem)
				r.Patch("/items/{itemId}", h.updateQuantity)
				r.Delete("/items/{itemId}", h.removeItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.listOrders)
				r.Post("/", h.createOrder)
				r.Get("/{id}", h.getOrder)
				r.Get("/{id}/history", h.history)
				r.Patch("/{id}/status", h.cancelOrder)

				r.Group(func(r chi.Router) {
					r.Use(h.limiter.Middleware(byUser, ratelimit.ByIP))
					r.Post("/{id}/payments", h.initiatePayment)
					r.Post("/{id}/payments/{reference}/messages", h.paymentMessage)
				})
			})
		})
	})

	h.router.Route("/ops", func(r chi.Router) {
		r.Use(auth.StaticToken(viper.GetString("server.http.operator_token")))
		r.Patch("/orders/{id}/status", h.updateStatus)
	})
}

func byUser(r *http.Request) string {
	if userID, ok := auth.UserID(r.Context()); ok {
		return "user:" + userID
	}

	return ""
}

func (h *HTTPTransport) healthz(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPTransport) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			slog.Error("Readiness check failed", "dependency", name, "error", err)
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		respond.JSON(w, http.StatusServiceUnavailable, failed)

		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HTTPTransport) getCart(w http.ResponseWriter, r *http.Request) {
	managecart.GetCart(w, r, h.carts)
}

func (h *HTTPTransport) addItem(w http.ResponseWriter, r *http.Request) {
	managecart.AddItem(w, r, h.carts)
}

func (h *HTTPTransport) updateQuantity(w http.ResponseWriter, r *http.Request) {
	managecart.UpdateQuantity(w, r, h.carts)
}

func (h *HTTPTransport) removeItem(w http.ResponseWriter, r *http.Request) {
	managecart.RemoveItem(w, r, h.carts)
}

func (h *HTTPTransport) clearCart(w http.ResponseWriter, r *http.Request) {
	managecart.ClearCart(w, r, h.carts)
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.orders, h.carts)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.orders)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.orders)
}

func (h *HTTPTransport) history(w http.ResponseWriter, r *http.Request) {
	getorder.History(w, r, h.orders)
}

func (h *HTTPTransport) cancelOrder(w http.ResponseWriter, r *http.Request) {
	updatestatus.CancelOrder(w, r, h.orders)
}

func (h *HTTPTransport) updateStatus(w http.ResponseWriter, r *http.Request) {
	updatestatus.UpdateStatus(w, r, h.orders)
}

func (h *HTTPTransport) initiatePayment(w http.ResponseWriter, r *http.Request) {
	initiatepayment.InitiatePayment(w, r, h.payments)
}

func (h *HTTPTransport) paymentMessage(w http.ResponseWriter, r *http.Request) {
	paymentmessage.PaymentMessage(w, r, h.payments, h.orders)
}

func (h *HTTPTransport) paymentCallback(w http.ResponseWriter, r *http.Request) {
	paymentcallback.PaymentCallback(w, r, h.payments, h.redirects)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(trace.NewTraceMiddleware)
	router.Use(metrics.NewMetricsMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
