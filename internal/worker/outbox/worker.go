package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/corray333/backend-labs/foodorder/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
	"github.com/spf13/viper"
)

// publisher delivers one message to the broker.
type publisher interface {
	Publish(ctx context.Context, exchange, routingKey, contentType string, body []byte) error
}

// Worker relays order events from the outbox table to the broker.
type Worker struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	publisher    publisher
	pollInterval time.Duration
	batchSize    int
	lease        time.Duration
	baseBackoff  time.Duration
	now          func() time.Time
	stopCh       chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher publisher,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	leaseSeconds := viper.GetInt("rabbitmq.outbox.lease_seconds")
	if leaseSeconds == 0 {
		leaseSeconds = 60
	}

	retryIntervalSeconds := viper.GetInt("rabbitmq.outbox.retry_interval_seconds")
	if retryIntervalSeconds == 0 {
		retryIntervalSeconds = 30
	}

	return &Worker{
		outboxRepo:   outboxRepo,
		publisher:    publisher,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:    batchSize,
		lease:        time.Duration(leaseSeconds) * time.Second,
		baseBackoff:  time.Duration(retryIntervalSeconds) * time.Second,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// Start begins processing messages from the outbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// backoff doubles the base interval per attempt: 1x, 2x, 4x, ...
func (w *Worker) backoff(retryCount int) time.Duration {
	return time.Duration(math.Pow(2, float64(retryCount-1))) * w.baseBackoff
}

// processMessages claims due order events and publishes them. Claimed
// messages stay invisible to other workers until the lease runs out.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.ClaimPending(ctx, w.batchSize, w.lease)
	if err != nil {
		slog.Error("Failed to claim pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing outbox messages", "count", len(messages))

	for _, msg := range messages {
		err := w.publisher.Publish(ctx, msg.ExchangeName, msg.RoutingKey, msg.ContentType, msg.Payload)
		if err != nil {
			w.scheduleRetry(ctx, msg, err)

			continue
		}

		if err := w.outboxRepo.MarkPublished(ctx, msg.ID); err != nil {
			slog.Error("Failed to delete message from outbox after successful publish",
				"outbox_id", msg.ID,
				"order_id", msg.OrderID,
				"error", err,
			)

			continue
		}

		slog.Debug("Message published and removed from outbox", "outbox_id", msg.ID, "order_id", msg.OrderID)
	}
}

func (w *Worker) scheduleRetry(ctx context.Context, msg outbox.OutboxMessage, publishErr error) {
	msg.RetryCount++
	nextRetryAt := w.now().Add(w.backoff(msg.RetryCount))

	if msg.Exhausted() {
		slog.Error("Giving up on outbox message, later events of the order are released",
			"outbox_id", msg.ID,
			"order_id", msg.OrderID,
			"retry_count", msg.RetryCount,
			"error", publishErr,
		)
	} else {
		slog.Warn("Failed to publish message from outbox, will retry",
			"outbox_id", msg.ID,
			"order_id", msg.OrderID,
			"retry_count", msg.RetryCount,
			"next_retry", nextRetryAt,
			"error", publishErr,
		)
	}

	if err := w.outboxRepo.ScheduleRetry(ctx, msg.ID, msg.RetryCount, publishErr.Error(), nextRetryAt); err != nil {
		slog.Error("Failed to update retry information", "outbox_id", msg.ID, "error", err)
	}
}
