package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

type service interface {
	ExpireStalePayments(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// Worker cancels orders whose payment attempt was abandoned.
type Worker struct {
	service      service
	pollInterval time.Duration
	ttl          time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates a new expiry worker.
func NewWorker(service service) *Worker {
	pollIntervalSeconds := viper.GetInt("payment.expiry.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 60
	}

	ttlMinutes := viper.GetInt("payment.expiry.ttl_minutes")
	if ttlMinutes == 0 {
		ttlMinutes = 30
	}

	batchSize := viper.GetInt("payment.expiry.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	return &Worker{
		service:      service,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		ttl:          time.Duration(ttlMinutes) * time.Minute,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start runs expiry passes until ctx is done or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Expiry worker started", "poll_interval", w.pollInterval, "ttl", w.ttl)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiry worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Expiry worker stopped")

			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) runOnce(ctx context.Context) {
	expired, err := w.service.ExpireStalePayments(ctx, w.ttl, w.batchSize)
	if err != nil {
		slog.Error("Failed to expire stale payments", "error", err)

		return
	}

	if expired > 0 {
		slog.Info("Expired stale payments", "count", expired)
	}
}
