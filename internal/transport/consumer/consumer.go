package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/payment"
	"github.com/corray333/backend-labs/foodorder/internal/service/services/paymentsvc"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// service represents the service layer interface.
type service interface {
	OnSignal(ctx context.Context, sig payment.Signal) (paymentsvc.Result, error)
}

// Consumer reads gateway payment events from RabbitMQ.
type Consumer struct {
	client      *rabbitmq.Client
	service     service
	queue       string
	consumerTag string
	concurrency int
	stop        chan struct{}
	done        chan struct{}
}

// NewConsumer declares the payment events queue and creates a Consumer.
func NewConsumer(client *rabbitmq.Client, service service) *Consumer {
	queueName := viper.GetString("rabbitmq.payment_events.queue")
	if queueName == "" {
		queueName = "payment.events"
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    queueName,
		Durable: true,
	})
	if err != nil {
		panic(err)
	}

	if exchange := viper.GetString("rabbitmq.payment_events.exchange"); exchange != "" {
		if err := client.DeclareExchange(rabbitmq.DeclareExchangeConfig{Name: exchange, Durable: true}); err != nil {
			panic(err)
		}
		routingKey := viper.GetString("rabbitmq.payment_events.routing_key")
		if routingKey == "" {
			routingKey = "payment.#"
		}
		if err := client.BindQueue(queue.Name, routingKey, exchange); err != nil {
			panic(err)
		}
	}

	c := newConsumer(service)
	c.client = client
	c.queue = queue.Name

	return c
}

func newConsumer(service service) *Consumer {
	consumerTag := viper.GetString("rabbitmq.payment_events.consumer_tag")
	if consumerTag == "" {
		consumerTag = "foodorder-payments"
	}

	concurrency := viper.GetInt("rabbitmq.payment_events.concurrency")
	if concurrency == 0 {
		concurrency = 50
	}

	return &Consumer{
		service:     service,
		consumerTag: consumerTag,
		concurrency: concurrency,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run starts consuming messages from RabbitMQ and blocks until Shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue,
		Consumer: c.consumerTag,
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue, "consumer_tag", c.consumerTag)

	c.consume(ctx, msgs)

	return nil
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(c.concurrency)

	go func() {
		defer close(c.done)

		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")

					return
				}

				g.Go(func() error {
					c.processMessage(gctx, msg)

					return nil
				})
			}
		}
	}()

	<-c.done
	if err := g.Wait(); err != nil {
		slog.Error("Error processing messages", "error", err)
	}
}

// processMessage reconciles a single gateway event. Errors are settled on the
// delivery and never cancel the group.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()

	sig, err := payment.DecodeGatewayEvent(msg.Body)
	if err != nil {
		slog.Error("Failed to decode payment event", "delivery_tag", msg.DeliveryTag, "error", err)
		// Reject the message without requeuing
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}
	span.SetAttributes(attribute.String("payment.reference", sig.Reference))

	result, err := c.service.OnSignal(ctx, sig)
	switch {
	case err == nil:
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrStaleReference):
		// Settled by another channel or superseded by a newer attempt.
		slog.Info("Payment event not applicable", "reference", sig.Reference, "error", err)
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, payment.ErrMissingReference),
		errors.Is(err, payment.ErrMissingOrderID):
		slog.Error("Rejecting payment event", "reference", sig.Reference, "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	default:
		span.RecordError(err)
		slog.Error("Failed to reconcile payment event", "reference", sig.Reference, "error", err)
		// Requeue the message for retry
		if err := msg.Nack(false, true); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return
	}

	slog.Info("Payment event processed",
		"reference", sig.Reference,
		"duplicate", result.Duplicate,
		"route", result.Route,
	)
}

// Shutdown stops the delivery loop and waits for in-flight messages.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	if c.client != nil {
		if err := c.client.Cancel(c.consumerTag); err != nil {
			slog.Error("Failed to cancel consumer", "error", err)
		}
	}
	close(c.stop)

	// Wait for processing to finish with timeout
	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
