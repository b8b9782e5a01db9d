package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/isignalrepo"
	"github.com/corray333/backend-labs/foodorder/internal/dal/paystack"
	"github.com/corray333/backend-labs/foodorder/internal/dal/postgres"
	"github.com/corray333/backend-labs/foodorder/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/foodorder/internal/dal/redis"
	outboxrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/outbox/postgres"
	memoryrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/signal/memory"
	redisrepo "github.com/corray333/backend-labs/foodorder/internal/dal/repositories/signal/redis"
	"github.com/corray333/backend-labs/foodorder/internal/otel"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/cartsvc"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/paymentsvc"
	"github.com/corray333/backend-labs/foodorder/internal/transport/consumer"
	grpctransport "github.com/corray333/backend-labs/foodorder/internal/transport/grpc"
	httptransport "github.com/corray333/backend-labs/foodorder/internal/transport/http"
	"github.com/corray333/backend-labs/foodorder/internal/worker/cartsweep"
	expiryworker "github.com/corray333/backend-labs/foodorder/internal/worker/expiry"
	outboxworker "github.com/corray333/backend-labs/foodorder/internal/worker/outbox"
	"github.com/corray333/backend-labs/foodorder/pkg/http/middleware/auth"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	httpTransport  *httptransport.HTTPTransport
	grpcTransport  *grpctransport.GRPCTransport
	consumer       *consumer.Consumer
	outboxWorker   *outboxworker.Worker
	expiryWorker   *expiryworker.Worker
	cartSweeper    *cartsweep.Worker
	postgresClient *postgres.Client
	redisClient    *redis.Client
	rabbitMqClient *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()

	if err := rabbitMqClient.DeclareExchange(rabbitmq.DeclareExchangeConfig{
		Name:    outbox.ExchangeOrders,
		Durable: true,
	}); err != nil {
		panic(err)
	}

	var redisClient *redis.Client
	var signalRepo isignalrepo.ISignalRepository
	if viper.GetString("redis.addr") != "" {
		redisClient = redis.MustNewClient()
		ttlHours := viper.GetInt("payment.signal_ttl_hours")
		if ttlHours == 0 {
			ttlHours = 72
		}
		signalRepo = redisrepo.NewSignalRedisRepository(redisClient.Redis(), time.Duration(ttlHours)*time.Hour)
	} else {
		slog.Warn("redis.addr is empty, processed payment references are kept in memory")
		signalRepo = memoryrepo.NewSignalMemoryRepository()
	}

	cartSvc := cartsvc.MustNewCartService()
	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
	)
	paymentSvc := paymentsvc.MustNewPaymentService(
		paymentsvc.WithOrderService(orderSvc),
		paymentsvc.WithGateway(paystack.MustNewClient()),
		paymentsvc.WithSignalRepository(signalRepo),
		paymentsvc.WithCartService(cartSvc),
	)

	verifier := auth.NewVerifier(
		os.Getenv("FOODORDER_JWT_SECRET"),
		viper.GetString("auth.issuer"),
		viper.GetString("auth.audience"),
	)

	httpTransport := httptransport.NewHTTPTransport(orderSvc, cartSvc, paymentSvc, verifier)
	httpTransport.RegisterRoutes()
	httpTransport.AddReadinessCheck("postgres", postgresClient.Ping)
	if redisClient != nil {
		httpTransport.AddReadinessCheck("redis", redisClient.Ping)
	}

	return &App{
		httpTransport:  httpTransport,
		grpcTransport:  grpctransport.NewGRPCTransport(paymentSvc, orderSvc),
		consumer:       consumer.NewConsumer(rabbitMqClient, paymentSvc),
		outboxWorker:   outboxworker.NewWorker(outboxrepo.NewOutboxRepository(postgresClient.Pool()), rabbitMqClient),
		expiryWorker:   expiryworker.NewWorker(orderSvc),
		cartSweeper:    cartsweep.NewWorker(cartSvc),
		postgresClient: postgresClient,
		redisClient:    redisClient,
		rabbitMqClient: rabbitMqClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.httpTransport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		if err := a.grpcTransport.Run(); err != nil {
			slog.Error("gRPC server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting payment events consumer")
		if err := a.consumer.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	go a.outboxWorker.Start(ctx)
	go a.expiryWorker.Start(ctx)
	go a.cartSweeper.Start(ctx)

	<-stop
	slog.Info("Shutdown signal received")

	a.gracefulShutdown()
	cancel()
}

// gracefulShutdown stops intake first, then workers, then closes connections.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpTransport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.grpcTransport.Shutdown(ctx); err != nil {
		slog.Error("gRPC server shutdown error", "error", err)
	} else {
		slog.Info("gRPC server stopped gracefully")
	}

	if err := a.consumer.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	}

	a.outboxWorker.Stop()
	a.expiryWorker.Stop()
	a.cartSweeper.Stop()

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			slog.Error("Redis connection close error", "error", err)
		}
	}

	a.postgresClient.Close()
	slog.Info("Database connection closed gracefully")

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider shutdown error", "error", err)
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
